package api

import (
	"net/http"
	"strings"

	"github.com/profilemesh/gateway/internal/domain"
	"github.com/profilemesh/gateway/internal/privacy"
	"github.com/profilemesh/gateway/internal/server"
)

// The MCP surface is the machine-consumption view of the directory. It only
// ever serves the agent projection: no contact addresses, no owner identity
// references, and no owner bypass regardless of the caller's session.

// MCPListProfiles answers GET /mcp/profiles.
func (h *Handlers) MCPListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.ListProfiles(r.Context())
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}

	out, err := privacy.SanitizeCollection(privacy.FilterPublic(profiles), "", privacy.ContextAgent)
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"profiles": out, "count": len(out)})
}

type mcpSearchRequest struct {
	Query  string   `json:"query"`
	Skills []string `json:"skills"`
}

// MCPSearch answers GET and POST /mcp/search. GET reads query parameters,
// POST reads the validated JSON body.
func (h *Handlers) MCPSearch(w http.ResponseWriter, r *http.Request) {
	var query string
	var skills []string

	if r.Method == http.MethodPost {
		var req mcpSearchRequest
		if err := decode(r, &req); err != nil {
			server.WriteError(w, r, domain.ErrValidation("malformed JSON body"))
			return
		}
		query = strings.TrimSpace(req.Query)
		skills = req.Skills
	} else {
		query = strings.TrimSpace(r.URL.Query().Get("query"))
		if query == "" {
			query = strings.TrimSpace(r.URL.Query().Get("q"))
		}
		skills = splitSkills(r.URL.Query().Get("skills"))
	}

	profiles, err := h.store.ListProfiles(r.Context())
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}

	matched := matchProfiles(privacy.FilterPublic(profiles), query, skills)
	out, err := privacy.SanitizeCollection(matched, "", privacy.ContextAgent)
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"results": out, "count": len(out)})
}

type mcpMeetingRequest struct {
	ProfileID      string `json:"profile_id"`
	RequesterName  string `json:"requester_name"`
	RequesterEmail string `json:"requester_email"`
	Message        string `json:"message"`
	PreferredTime  string `json:"preferred_time"`
}

// MCPRequestMeeting answers POST /mcp/request_meeting. Agent-filed requests
// are always of the meeting type; the same privacy gate applies as for the
// web appointment endpoint.
func (h *Handlers) MCPRequestMeeting(w http.ResponseWriter, r *http.Request) {
	var req mcpMeetingRequest
	if err := decode(r, &req); err != nil {
		server.WriteError(w, r, domain.ErrValidation("malformed JSON body"))
		return
	}

	h.fileRequest(w, r, appointmentCreateRequest{
		ProfileID:      req.ProfileID,
		RequesterName:  req.RequesterName,
		RequesterEmail: req.RequesterEmail,
		Message:        req.Message,
		PreferredTime:  req.PreferredTime,
		RequestType:    string(domain.RequestTypeMeeting),
	})
}
