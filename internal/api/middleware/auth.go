package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/chloekuoi/cowork-connect/internal/models"
	"github.com/chloekuoi/cowork-connect/internal/store"
)

type contextKey string

const UserContextKey contextKey = "user"

// AuthMiddleware resolves bearer tokens to user profiles.
type AuthMiddleware struct {
	db    store.DataStore
	redis *store.RedisStore
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(db store.DataStore, redis *store.RedisStore) *AuthMiddleware {
	return &AuthMiddleware{db: db, redis: redis}
}

// RequireAuth verifies the Authorization bearer token and puts the
// authenticated profile on the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			jsonError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, err := m.redis.GetUserForToken(r.Context(), token)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "auth lookup failed")
			return
		}
		if userID == uuid.Nil {
			jsonError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		profile, err := m.db.GetProfileByID(r.Context(), userID)
		if err != nil || profile == nil {
			jsonError(w, http.StatusUnauthorized, "unknown user")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, profile)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetUserFromContext retrieves the authenticated profile from the request context.
func GetUserFromContext(ctx context.Context) *models.Profile {
	profile, ok := ctx.Value(UserContextKey).(*models.Profile)
	if !ok {
		return nil
	}
	return profile
}
