package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/despasys/despasys/libs/auth"
)

type ctxKey int

const claimsKey ctxKey = iota

// RequireAuth verifies the Bearer token and stashes the claims in the
// request context. Every authenticated route is tenant-scoped through
// the tenant_id claim; handlers never trust a tenant id from the body.
func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		claims, err := auth.ParseAndVerifyHS256(token, h.jwtSecret)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if claims.TenantID == "" {
			http.Error(w, "token has no tenant", http.StatusForbidden)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	}
}

func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

func tenantFrom(r *http.Request) (tenantID, userID string) {
	if claims, ok := ClaimsFrom(r.Context()); ok {
		return claims.TenantID, claims.Sub
	}
	return "", ""
}
