package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"bandmon-server/internal/config"
)

// ValidToken compares a presented token against the configured secret in
// constant time.
func ValidToken(cfg *config.Config, token string) bool {
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(cfg.APIToken)) == 1
}

// StaticToken guards a route with the shared API secret, presented as a
// bearer token or an X-API-Token header.
func StaticToken(cfg *config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-API-Token")
			if token == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					token = strings.TrimPrefix(auth, "Bearer ")
				}
			}

			if !ValidToken(cfg, token) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
