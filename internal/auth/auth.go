// Package auth issues and validates bearer session tokens. It is the
// authenticated-identity provider for the pipeline: a request either maps to
// a user id or stays anonymous. Sessions are process-local.
package auth

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/profilemesh/gateway/internal/clientctx"
)

// Session binds a bearer token to a user for a bounded lifetime.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionManager is an in-memory session table.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// Option configures a SessionManager.
type Option func(*SessionManager)

// WithClock overrides the manager's time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *SessionManager) { m.now = now }
}

// NewSessionManager creates a session table with the given token lifetime.
func NewSessionManager(ttl time.Duration, opts ...Option) *SessionManager {
	m := &SessionManager{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue creates a session for userID and returns its opaque token.
func (m *SessionManager) Issue(userID string) string {
	now := m.now()
	token := "pmt_" + strings.ReplaceAll(uuid.New().String(), "-", "")

	m.mu.Lock()
	m.sessions[token] = Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	m.mu.Unlock()

	return token
}

// Validate resolves a token to its user id. Expired sessions are removed on
// the way out.
func (m *SessionManager) Validate(token string) (string, bool) {
	m.mu.RLock()
	s, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return "", false
	}

	if !m.now().Before(s.ExpiresAt) {
		m.mu.Lock()
		delete(m.sessions, token)
		m.mu.Unlock()
		return "", false
	}

	return s.UserID, true
}

// Revoke invalidates a token. Returns false if the token was unknown.
func (m *SessionManager) Revoke(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[token]; !ok {
		return false
	}
	delete(m.sessions, token)
	return true
}

// SweepExpired drops expired sessions and returns how many were removed.
// Called from the periodic janitor.
func (m *SessionManager) SweepExpired() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for token, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed
}

// ExtractToken pulls the bearer token from an Authorization header.
// Returns "" when absent or not bearer-shaped.
func ExtractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// Middleware resolves the caller's identity and stores the user id in the
// request context. Identity is optional here: anonymous callers pass
// through untouched, and handlers that require authentication reject them
// with 401 at the handler layer.
func Middleware(sessions *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token != "" {
				if userID, ok := sessions.Validate(token); ok {
					ctx := clientctx.WithUserID(r.Context(), userID)
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser returns the authenticated user id from ctx or "" when the
// caller is anonymous.
func RequireUser(ctx context.Context) string {
	return clientctx.UserID(ctx)
}
