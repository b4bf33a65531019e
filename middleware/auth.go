package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dcode-github/realestate_platform/backend/models"
	"github.com/dcode-github/realestate_platform/backend/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ContextKey string

const actorKey = ContextKey("actor")

// Actor is the authenticated caller.
type Actor struct {
	ID   primitive.ObjectID
	Role string
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == models.RoleAdmin
}

// Owns reports whether the actor may act on a record whose authorization
// field holds owner.
func (a *Actor) Owns(owner *primitive.ObjectID) bool {
	if a == nil {
		return false
	}
	return a.IsAdmin() || (owner != nil && *owner == a.ID)
}

func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFrom returns the caller stored by Auth or OptionalAuth, if any.
func ActorFrom(ctx context.Context) (*Actor, bool) {
	a, ok := ctx.Value(actorKey).(*Actor)
	return a, ok && a != nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func actorFromClaims(claims *utils.Claims) (*Actor, bool) {
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, false
	}
	return &Actor{ID: id, Role: claims.Role}, true
}

// Auth rejects requests without a valid bearer token.
func Auth(tokens *utils.TokenIssuer, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				log.Debug("missing or malformed Authorization header", zap.String("path", r.URL.Path))
				writeError(w, http.StatusUnauthorized, "Not authorized to access this route")
				return
			}
			claims, err := tokens.ValidateJWT(token)
			if err != nil {
				log.Debug("invalid or expired token", zap.Error(err))
				writeError(w, http.StatusUnauthorized, "Not authorized to access this route")
				return
			}
			actor, ok := actorFromClaims(claims)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Not authorized to access this route")
				return
			}
			setLoggedActor(r.Context(), actor.ID.Hex())
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// OptionalAuth attaches the caller when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(tokens *utils.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok {
				if claims, err := tokens.ValidateJWT(token); err == nil {
					if actor, ok := actorFromClaims(claims); ok {
						setLoggedActor(r.Context(), actor.ID.Hex())
						r = r.WithContext(WithActor(r.Context(), actor))
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole must run after Auth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Not authorized to access this route")
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "User role "+actor.Role+" is not authorized to access this route")
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, models.APIResponse{Success: false, Message: message})
}

func WriteJSON(w http.ResponseWriter, status int, body models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
