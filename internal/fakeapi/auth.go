package fakeapi

import (
	"net/http"
	"strings"
)

// bearerAuth rejects requests whose Authorization header does not carry apiKey.
// An empty apiKey disables the check.
func bearerAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, "unauthorized", "authorization header must use Bearer scheme")
				return
			}

			if auth[len(bearerPrefix):] != apiKey {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
