package cache

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) (*ListCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, time.Minute, zap.NewNop()), mr
}

func TestKeyIgnoresParameterOrder(t *testing.T) {
	a := Key("public", url.Values{"city": {"Austin"}, "minPrice": {"100"}})
	b, _ := url.ParseQuery("minPrice=100&city=Austin")
	if a != Key("public", b) {
		t.Fatalf("expected equal keys for reordered params")
	}
	if a == Key("agent", b) {
		t.Fatalf("expected scope to change the key")
	}
}

func TestGetSetAndTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := Key("public", url.Values{"page": {"1"}})

	if _, ok := c.Get(ctx, key); ok {
		t.Fatalf("expected miss on empty cache")
	}
	c.Set(ctx, key, []byte(`{"success":true}`))
	data, ok := c.Get(ctx, key)
	if !ok || string(data) != `{"success":true}` {
		t.Fatalf("unexpected cached value %q (hit=%v)", data, ok)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok := c.Get(ctx, key); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestInvalidateRemovesOnlyListings(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		c.Set(ctx, Key("public", url.Values{"page": {string(rune('1' + i))}}), []byte("x"))
	}
	mr.Set("session:abc", "keep")

	n, err := c.Invalidate(ctx)
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 keys removed, got %d", n)
	}
	if !mr.Exists("session:abc") {
		t.Fatalf("unrelated key was removed")
	}
}

func TestNilClientIsNoop(t *testing.T) {
	c := New(nil, time.Minute, zap.NewNop())
	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"))
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("expected miss without redis")
	}
	if n, err := c.Invalidate(ctx); n != 0 || err != nil {
		t.Fatalf("unexpected invalidate result %d %v", n, err)
	}
}
