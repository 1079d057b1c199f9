package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/profilemesh/gateway/internal/auth"
	"github.com/profilemesh/gateway/internal/domain"
	"github.com/profilemesh/gateway/internal/privacy"
	"github.com/profilemesh/gateway/internal/server"
	"github.com/profilemesh/gateway/internal/storage"
)

type profileUpsertRequest struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Bio          string   `json:"bio"`
	Skills       []string `json:"skills"`
	AvailableFor []string `json:"available_for"`
	IsPublic     *bool    `json:"is_public"`
	IsActive     *bool    `json:"is_active"`
}

// ListProfiles returns the directory listing shaped for the public API.
// Authenticated owners also see their own profile even when private.
func (h *Handlers) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.ListProfiles(r.Context())
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}

	viewerID := auth.RequireUser(r.Context())
	visible := privacy.FilterForViewer(profiles, viewerID)
	out, err := privacy.SanitizeCollection(visible, viewerID, privacy.ContextPublicAPI)
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"profiles": out, "count": len(out)})
}

// GetProfile returns one profile by id or slug, shaped for the public API.
// A private, inactive, or nonexistent profile all answer the same 404.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "id")

	profile, err := h.store.GetProfile(r.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		profile, err = h.store.GetProfileBySlug(r.Context(), key)
	}
	if errors.Is(err, storage.ErrNotFound) {
		server.WriteError(w, r, domain.ErrNotFound())
		return
	}
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}

	viewerID := auth.RequireUser(r.Context())
	if reason := privacy.ViolationReason(profile, viewerID, privacy.ActionView); reason != privacy.ReasonNone {
		server.AddLogField(r.Context(), "privacy_denial", string(reason))
		server.WriteError(w, r, privacy.ToPrivacySafeError(reason))
		return
	}

	out, err := privacy.SanitizeForContext(profile, viewerID, privacy.ContextOwnerAPI)
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}
	server.WriteJSON(w, http.StatusOK, out)
}

// GetOwnProfile returns the caller's profile in the owner projection.
func (h *Handlers) GetOwnProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	profile, err := h.store.GetProfileByOwner(r.Context(), userID)
	if errors.Is(err, storage.ErrNotFound) {
		server.WriteError(w, r, domain.ErrNotFound())
		return
	}
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}

	out, err := privacy.SanitizeForContext(profile, userID, privacy.ContextOwnerAPI)
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}
	server.WriteJSON(w, http.StatusOK, out)
}

// UpsertProfile creates the caller's profile or updates it in place. Each
// user has at most one profile; a second create becomes an update.
func (h *Handlers) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req profileUpsertRequest
	if err := decode(r, &req); err != nil {
		server.WriteError(w, r, domain.ErrValidation("malformed JSON body"))
		return
	}

	existing, err := h.store.GetProfileByOwner(r.Context(), userID)
	switch {
	case err == nil:
		h.updateProfile(w, r, existing, req)
	case errors.Is(err, storage.ErrNotFound):
		h.createProfile(w, r, userID, req)
	default:
		server.WriteError(w, r, domain.ErrInternal(err))
	}
}

func (h *Handlers) createProfile(w http.ResponseWriter, r *http.Request, userID string, req profileUpsertRequest) {
	profile := &domain.Profile{
		ID:           uuid.New().String(),
		OwnerID:      userID,
		Slug:         slugify(req.Name),
		Name:         req.Name,
		Email:        req.Email,
		Bio:          req.Bio,
		Skills:       orEmpty(req.Skills),
		AvailableFor: orEmpty(req.AvailableFor),
		IsPublic:     req.IsPublic == nil || *req.IsPublic,
		IsActive:     req.IsActive == nil || *req.IsActive,
	}

	err := h.store.CreateProfile(r.Context(), profile)
	if errors.Is(err, storage.ErrConflict) {
		// Slug collision with another owner; disambiguate and retry once.
		profile.Slug = profile.Slug + "-" + profile.ID[:6]
		err = h.store.CreateProfile(r.Context(), profile)
	}
	if errors.Is(err, storage.ErrConflict) {
		server.WriteError(w, r, domain.ErrConflict("profile already exists"))
		return
	}
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}

	out, err := privacy.SanitizeForContext(profile, userID, privacy.ContextOwnerAPI)
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}
	server.WriteJSON(w, http.StatusCreated, out)
}

func (h *Handlers) updateProfile(w http.ResponseWriter, r *http.Request, existing *domain.Profile, req profileUpsertRequest) {
	existing.Name = req.Name
	existing.Email = req.Email
	existing.Bio = req.Bio
	existing.Skills = orEmpty(req.Skills)
	existing.AvailableFor = orEmpty(req.AvailableFor)
	if req.IsPublic != nil {
		existing.IsPublic = *req.IsPublic
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}

	if err := h.store.UpdateProfile(r.Context(), existing); err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}

	out, err := privacy.SanitizeForContext(existing, existing.OwnerID, privacy.ContextOwnerAPI)
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}
	server.WriteJSON(w, http.StatusOK, out)
}

// slugify derives a URL-safe slug from a display name.
func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, c := range strings.ToLower(name) {
		switch {
		case c >= 'a' && c <= 'z' || c >= '0' && c <= '9':
			b.WriteRune(c)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
