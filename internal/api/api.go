// Package api implements the gateway's HTTP handlers: the profile directory,
// search, appointment requests, the agent (MCP) surface, session auth, and
// the health/metrics endpoints. Handlers run behind the server pipeline, so
// by the time one executes the request has already passed security, method,
// rate-limit, and payload gates.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/profilemesh/gateway/internal/auth"
	"github.com/profilemesh/gateway/internal/domain"
	"github.com/profilemesh/gateway/internal/monitor"
	"github.com/profilemesh/gateway/internal/server"
	"github.com/profilemesh/gateway/internal/storage"
)

// Handlers carries the collaborators shared by all endpoint handlers.
type Handlers struct {
	store    storage.Store
	sessions *auth.SessionManager
	recorder *monitor.Recorder
	logger   *slog.Logger
}

// New creates the handler set.
func New(store storage.Store, sessions *auth.SessionManager, recorder *monitor.Recorder, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:    store,
		sessions: sessions,
		recorder: recorder,
		logger:   logger,
	}
}

// decode reads the (already validated) JSON body into v.
func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// requireUser resolves the authenticated user id or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := auth.RequireUser(r.Context())
	if userID == "" {
		server.WriteError(w, r, domain.ErrUnauthorized("authentication required"))
		return "", false
	}
	return userID, true
}
