package api

import (
	"net/http"
	"strings"

	"github.com/profilemesh/gateway/internal/domain"
	"github.com/profilemesh/gateway/internal/privacy"
	"github.com/profilemesh/gateway/internal/server"
)

// SearchProfiles answers GET /search/profiles?q=&skills=a,b with the search
// projection. Only public, active profiles are searchable, including for
// their own owner: search results never reveal the caller's private items.
func (h *Handlers) SearchProfiles(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	skills := splitSkills(r.URL.Query().Get("skills"))

	profiles, err := h.store.ListProfiles(r.Context())
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}

	matched := matchProfiles(privacy.FilterPublic(profiles), query, skills)
	out, err := privacy.SanitizeCollection(matched, "", privacy.ContextSearch)
	if err != nil {
		server.WriteError(w, r, domain.ErrInternal(err))
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{
		"results": out,
		"count":   len(out),
		"query":   query,
	})
}

// matchProfiles filters by free-text query (name, bio, skills) and by the
// requested skills. Text matching is case-insensitive substring; a profile
// qualifies when it carries at least one of the requested skills.
func matchProfiles(profiles []domain.Profile, query string, skills []string) []domain.Profile {
	query = strings.ToLower(query)

	out := make([]domain.Profile, 0, len(profiles))
	for _, p := range profiles {
		if query != "" && !textMatches(p, query) {
			continue
		}
		if len(skills) > 0 && !hasAnySkill(p.Skills, skills) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func textMatches(p domain.Profile, loweredQuery string) bool {
	if strings.Contains(strings.ToLower(p.Name), loweredQuery) ||
		strings.Contains(strings.ToLower(p.Bio), loweredQuery) {
		return true
	}
	for _, s := range p.Skills {
		if strings.Contains(strings.ToLower(s), loweredQuery) {
			return true
		}
	}
	return false
}

func hasAnySkill(have, want []string) bool {
	for _, w := range want {
		for _, s := range have {
			if strings.EqualFold(s, w) {
				return true
			}
		}
	}
	return false
}

func splitSkills(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
