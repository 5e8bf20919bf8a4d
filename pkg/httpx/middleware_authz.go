package httpx

import (
	"net/http"
	"slices"
)

// RequireRole lets the request through only when the authenticated caller
// holds one of roles. Must run after AuthnMiddleware.
func RequireRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if AccountID(r.Context()) == "" {
				WriteUnauthorized(w, "missing bearer token")
				return
			}
			if !slices.Contains(roles, Role(r.Context())) {
				WriteError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
