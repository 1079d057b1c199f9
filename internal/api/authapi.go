package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/profilemesh/gateway/internal/auth"
	"github.com/profilemesh/gateway/internal/domain"
	"github.com/profilemesh/gateway/internal/server"
	"github.com/profilemesh/gateway/internal/storage"
)

type loginRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Login answers POST /auth/login. Accounts are created on first login; the
// response carries the bearer token for subsequent requests.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		server.WriteError(w, r, domain.ErrValidation("malformed JSON body"))
		return
	}
	email := strings.TrimSpace(req.Email)
	if !strings.Contains(email, "@") {
		server.WriteError(w, r, domain.ErrValidation("invalid email address"))
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), email)
	if errors.Is(err, storage.ErrNotFound) {
		user = &domain.User{
			ID:    uuid.New().String(),
			Email: email,
			Name:  strings.TrimSpace(req.Name),
		}
		err = h.store.CreateUser(r.Context(), user)
		if errors.Is(err, storage.ErrConflict) {
			// Lost a create race; the account exists now.
			user, err = h.store.GetUserByEmail(r.Context(), email)
		}
	}
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}

	token := h.sessions.Issue(user.ID)
	server.AddLogField(r.Context(), "user_id", user.ID)
	server.WriteJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

// Logout answers POST /auth/logout, revoking the presented bearer token.
// Revoking an unknown or already-revoked token still answers 200.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if token := auth.ExtractToken(r); token != "" {
		h.sessions.Revoke(token)
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}
