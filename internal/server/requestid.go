package server

import (
	"context"
	"net/http"
	"time"

	"github.com/profilemesh/gateway/internal/monitor"
)

// requestIDKey is the context key for request IDs.
type requestIDKey struct{}

// RequestIDMiddleware assigns each request a correlation id and echoes it as
// the X-Request-ID response header. An id supplied by the caller is ignored;
// ids are always minted here.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := monitor.NewRequestID(time.Now())
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from context, or "" if unset.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return requestID
	}
	return ""
}
