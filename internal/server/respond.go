package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/profilemesh/gateway/internal/domain"
)

// errorHolder lets handlers report the error they answered with so the
// pipeline's completion record carries the code and message. Same mutable
// context-value pattern as the log fields map.
type errorHolder struct {
	code    string
	message string
}

type errorHolderKey struct{}

func withErrorHolder(ctx context.Context) (context.Context, *errorHolder) {
	h := &errorHolder{}
	return context.WithValue(ctx, errorHolderKey{}, h), h
}

func recordError(ctx context.Context, e *domain.APIError) {
	if h, ok := ctx.Value(errorHolderKey{}).(*errorHolder); ok {
		h.code = string(e.Code)
		h.message = e.Message
	}
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError writes the uniform error envelope for e and notes the error in
// the request-scoped log fields and the monitoring record.
func WriteError(w http.ResponseWriter, r *http.Request, e *domain.APIError) {
	AddError(r.Context(), e)
	recordError(r.Context(), e)
	WriteJSON(w, e.HTTPStatusCode(), e.Envelope(time.Now()))
}

// VersionMiddleware stamps every response with the service version header.
func VersionMiddleware(version string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Service-Version", version)
			next.ServeHTTP(w, r)
		})
	}
}
