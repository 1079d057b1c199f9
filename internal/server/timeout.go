package server

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds each request's context. Handlers observe the
// deadline through ctx; the pipeline still records timed-out requests on the
// way out.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
