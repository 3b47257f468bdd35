package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/teamboard/teamboard/services"
)

type contextKey string

const identityContextKey contextKey = "identity"

// IdentityFrom extracts the verified identity middleware placed in the
// request context.
func IdentityFrom(r *http.Request) (services.Identity, bool) {
	id, ok := r.Context().Value(identityContextKey).(services.Identity)
	return id, ok
}

type AuthMiddleware struct {
	authService *services.AuthService
	adminUIDs   map[string]bool
}

func NewAuthMiddleware(authService *services.AuthService, adminUIDs []string) *AuthMiddleware {
	admins := make(map[string]bool, len(adminUIDs))
	for _, uid := range adminUIDs {
		admins[uid] = true
	}
	return &AuthMiddleware{
		authService: authService,
		adminUIDs:   admins,
	}
}

// Auth verifies the bearer token (or, for WebSocket upgrades, the token
// query parameter) and stores the identity in the request context.
func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			http.Error(w, "missing authorization", http.StatusUnauthorized)
			return
		}

		identity, err := m.authService.VerifyJWT(tokenString)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin allows only identities on the configured admin list. Must be
// wrapped inside Auth.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r)
		if !ok || !m.adminUIDs[identity.UID] {
			http.Error(w, "admin privileges required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	// Browsers cannot set headers on WebSocket upgrades.
	return r.URL.Query().Get("token")
}
