package session

import (
	"net/http"
)

const loginPath = "/api/v1/auth/login"

// RequireAuth gates admin routes on token presence. The check is synchronous
// and happens on every request; a token revoked server-side is only
// discovered when the backend rejects the proxied call.
func RequireAuth(gate *Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !gate.IsAuthenticated() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Location", loginPath)
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"authentication required","login":"` + loginPath + `"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
