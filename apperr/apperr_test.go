package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:     http.StatusNotFound,
		KindValidation:   http.StatusBadRequest,
		KindBadRequest:   http.StatusBadRequest,
		KindConflict:     http.StatusConflict,
		KindForbidden:    http.StatusForbidden,
		KindUnauthorized: http.StatusUnauthorized,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := New(kind, "x").HTTPStatus(); got != want {
			t.Fatalf("kind %d: expected %d, got %d", kind, want, got)
		}
	}
}

func TestAsThroughWrapping(t *testing.T) {
	base := Forbidden("not yours")
	wrapped := fmt.Errorf("update property: %w", base)

	got, ok := As(wrapped)
	if !ok || got != base {
		t.Fatalf("expected to unwrap the forbidden error")
	}
	if !Is(wrapped, KindForbidden) {
		t.Fatalf("expected Is to report forbidden")
	}
	if Is(errors.New("plain"), KindForbidden) {
		t.Fatalf("plain error must not match")
	}
}
