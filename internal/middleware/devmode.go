package middleware

import (
	"net/http"
	"os"
)

// DevModeOnly rejects requests unless APP_ENV=development. It guards
// the tenant registry admin routes, which carry no auth of their own.
func DevModeOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if os.Getenv("APP_ENV") != "development" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"endpoint only available in development mode (APP_ENV=development)"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
