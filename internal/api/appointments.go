package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/profilemesh/gateway/internal/auth"
	"github.com/profilemesh/gateway/internal/domain"
	"github.com/profilemesh/gateway/internal/privacy"
	"github.com/profilemesh/gateway/internal/server"
	"github.com/profilemesh/gateway/internal/storage"
)

type appointmentCreateRequest struct {
	ProfileID      string `json:"profile_id"`
	RequesterName  string `json:"requester_name"`
	RequesterEmail string `json:"requester_email"`
	Message        string `json:"message"`
	PreferredTime  string `json:"preferred_time"`
	RequestType    string `json:"request_type"`
}

// CreateAppointment files a contact request against a profile. Anonymous
// callers are allowed; authenticated callers are recorded as the sender.
// A target that is private, inactive, owned by the caller, or nonexistent
// answers the same 404.
func (h *Handlers) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointmentCreateRequest
	if err := decode(r, &req); err != nil {
		server.WriteError(w, r, domain.ErrValidation("malformed JSON body"))
		return
	}
	h.fileRequest(w, r, req)
}

func (h *Handlers) fileRequest(w http.ResponseWriter, r *http.Request, req appointmentCreateRequest) {
	if !domain.ValidRequestType(req.RequestType) {
		server.WriteError(w, r, domain.ErrValidation("unknown request_type"))
		return
	}

	profile, err := h.store.GetProfile(r.Context(), req.ProfileID)
	if errors.Is(err, storage.ErrNotFound) {
		server.WriteError(w, r, domain.ErrNotFound())
		return
	}
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}

	senderID := auth.RequireUser(r.Context())
	if reason := privacy.ViolationReason(profile, senderID, privacy.ActionContact); reason != privacy.ReasonNone {
		server.AddLogField(r.Context(), "privacy_denial", string(reason))
		server.WriteError(w, r, privacy.ToPrivacySafeError(reason))
		return
	}

	appt := &domain.AppointmentRequest{
		ID:             uuid.New().String(),
		ProfileID:      profile.ID,
		RequesterName:  req.RequesterName,
		RequesterEmail: req.RequesterEmail,
		Message:        req.Message,
		PreferredTime:  req.PreferredTime,
		RequestType:    domain.RequestType(req.RequestType),
		Status:         domain.RequestStatusPending,
		SenderUserID:   senderID,
	}
	if err := h.store.CreateRequest(r.Context(), appt); err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}

	server.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":     appt.ID,
		"status": appt.Status,
	})
}

// ListReceivedAppointments returns the requests filed against the caller's
// profile.
func (h *Handlers) ListReceivedAppointments(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	profile, err := h.store.GetProfileByOwner(r.Context(), userID)
	if errors.Is(err, storage.ErrNotFound) {
		server.WriteJSON(w, http.StatusOK, map[string]any{"requests": []any{}, "count": 0})
		return
	}
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}

	requests, err := h.store.ListRequestsForProfile(r.Context(), profile.ID)
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"requests": requests, "count": len(requests)})
}

// ListSentAppointments returns the requests the caller has filed.
func (h *Handlers) ListSentAppointments(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	requests, err := h.store.ListRequestsBySender(r.Context(), userID)
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"requests": requests, "count": len(requests)})
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

// UpdateAppointmentStatus lets the receiving profile's owner accept or
// decline a request. Non-owners get the same 404 as a missing request.
func (h *Handlers) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req statusUpdateRequest
	if err := decode(r, &req); err != nil {
		server.WriteError(w, r, domain.ErrValidation("malformed JSON body"))
		return
	}
	if !domain.ValidRequestStatus(req.Status) {
		server.WriteError(w, r, domain.ErrValidation("unknown status"))
		return
	}

	id := chi.URLParam(r, "id")
	appt, err := h.store.GetRequest(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		server.WriteError(w, r, domain.ErrNotFound())
		return
	}
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}

	profile, err := h.store.GetProfile(r.Context(), appt.ProfileID)
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}
	if profile.OwnerID != userID {
		server.AddLogField(r.Context(), "privacy_denial", string(privacy.ReasonNotOwner))
		server.WriteError(w, r, domain.ErrNotFound())
		return
	}

	if err := h.store.UpdateRequestStatus(r.Context(), id, domain.RequestStatus(req.Status)); err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "status": req.Status})
}
