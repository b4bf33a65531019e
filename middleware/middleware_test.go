package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dcode-github/realestate_platform/backend/models"
	"github.com/dcode-github/realestate_platform/backend/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func echoActor() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			w.Write([]byte("anonymous"))
			return
		}
		w.Write([]byte(actor.ID.Hex() + ":" + actor.Role))
	})
}

func TestAuth(t *testing.T) {
	tokens := utils.NewTokenIssuer("test-secret", time.Hour)
	id := primitive.NewObjectID()
	token, err := tokens.GenerateJWT(id.Hex(), models.RoleAgent)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	h := Auth(tokens, zap.NewNop())(echoActor())

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token " + token, http.StatusUnauthorized},
		{"bad signature", "Bearer " + token + "x", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if c.header != "" {
			req.Header.Set("Authorization", c.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != c.status {
			t.Fatalf("%s: expected %d, got %d", c.name, c.status, rec.Code)
		}
		if c.status == http.StatusOK && rec.Body.String() != id.Hex()+":agent" {
			t.Fatalf("%s: unexpected actor %q", c.name, rec.Body.String())
		}
		if c.status != http.StatusOK && !strings.Contains(rec.Body.String(), `"success":false`) {
			t.Fatalf("%s: expected envelope, got %s", c.name, rec.Body.String())
		}
	}
}

func TestOptionalAuthLetsAnonymousThrough(t *testing.T) {
	tokens := utils.NewTokenIssuer("test-secret", time.Hour)
	h := OptionalAuth(tokens)(echoActor())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "anonymous" {
		t.Fatalf("expected anonymous pass-through, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(models.RoleAdmin)(echoActor())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithActor(req.Context(), &Actor{ID: primitive.NewObjectID(), Role: models.RoleAgent}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for agent, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithActor(req.Context(), &Actor{ID: primitive.NewObjectID(), Role: models.RoleAdmin}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
}

func TestActorOwns(t *testing.T) {
	owner := primitive.NewObjectID()
	agent := &Actor{ID: owner, Role: models.RoleAgent}
	other := &Actor{ID: primitive.NewObjectID(), Role: models.RoleAgent}
	admin := &Actor{ID: primitive.NewObjectID(), Role: models.RoleAdmin}

	if !agent.Owns(&owner) || other.Owns(&owner) || !admin.Owns(&owner) {
		t.Fatalf("unexpected ownership results")
	}
	if agent.Owns(nil) || !admin.Owns(nil) {
		t.Fatalf("unexpected ownership results for unowned record")
	}
}

func TestRecoverHidesDetailInProduction(t *testing.T) {
	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("kaboom") })

	rec := httptest.NewRecorder()
	Recover(zap.NewNop(), false)(boom).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "kaboom") {
		t.Fatalf("unexpected production response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	Recover(zap.NewNop(), true)(boom).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(rec.Body.String(), "kaboom") {
		t.Fatalf("expected panic detail outside production, got %s", rec.Body.String())
	}
}

func TestLoggingSetsCorrelationID(t *testing.T) {
	h := Logging(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CorrelationID(r.Context()) == "" {
			t.Errorf("correlation id missing from context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("X-Correlation-ID") != "abc-123" {
		t.Fatalf("expected incoming correlation id echoed, got %q", rec.Header().Get("X-Correlation-ID"))
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected status to pass through, got %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected third request to be limited, got %d", last)
	}
}
