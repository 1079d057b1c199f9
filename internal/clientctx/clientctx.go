// Package clientctx derives a caller identity from a raw HTTP request.
package clientctx

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// ClientContext identifies the caller of a single request. It lives for the
// request only; the rate limiter and monitor use Key() and IP as keys.
type ClientContext struct {
	IP        string
	UserAgent string
	Origin    string
	// UserID is the authenticated user id, empty for anonymous callers.
	UserID string
}

// Anonymous reports whether the caller carries no authenticated identity.
func (c ClientContext) Anonymous() bool {
	return c.UserID == ""
}

// Key returns the rate-limit/monitoring key for this caller: the user id
// when authenticated, otherwise the client IP.
func (c ClientContext) Key() string {
	if c.UserID != "" {
		return "user:" + c.UserID
	}
	return "ip:" + c.IP
}

// FromRequest extracts the client context from r. The authenticated user id,
// if any, is read from the request context (set by the auth middleware).
func FromRequest(r *http.Request) ClientContext {
	return ClientContext{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Origin:    r.Header.Get("Origin"),
		UserID:    UserID(r.Context()),
	}
}

// clientIP resolves the originating IP, preferring proxy headers over the
// socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the original client.
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return strings.TrimSpace(real)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type userIDKey struct{}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID retrieves the authenticated user id from ctx, or "" if anonymous.
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey{}).(string); ok {
		return id
	}
	return ""
}
