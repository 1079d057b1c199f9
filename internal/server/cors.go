package server

import (
	"net/http"
	"strings"
)

// CORSMiddleware emits CORS response headers for origins in the allowed set.
// Unrecognized origins receive no Access-Control headers, which is what
// refuses them to browsers; the request itself still proceeds so server-side
// callers are unaffected.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.ToLower(o)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if _, ok := allowed[strings.ToLower(origin)]; ok {
					h := w.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
					h.Set("Access-Control-Allow-Credentials", "true")
					h.Set("Vary", "Origin")
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
