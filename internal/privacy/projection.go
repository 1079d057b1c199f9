package privacy

import (
	"time"

	"github.com/profilemesh/gateway/internal/domain"
)

// OutputContext selects which projection of a profile a response carries.
type OutputContext string

const (
	// ContextOwnerAPI is the owner's own view; the only context that may
	// include the private contact address, and only for the owner.
	ContextOwnerAPI OutputContext = "owner-api"

	// ContextPublicAPI is the human-facing web API view.
	ContextPublicAPI OutputContext = "public-api"

	// ContextAgent is the machine-consumption (MCP) view. Never includes
	// the contact address or the owner's internal identity reference.
	ContextAgent OutputContext = "agent-protocol"

	// ContextSearch is the search-result view, shaped like ContextAgent
	// but trimmed further.
	ContextSearch OutputContext = "search"
)

// OwnerProfile is the projection returned to a profile's owner.
type OwnerProfile struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Skills       []string  `json:"skills"`
	Bio          string    `json:"bio"`
	AvailableFor []string  `json:"available_for"`
	IsPublic     bool      `json:"is_public"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicProfile is the projection for the human-facing web API. No contact
// address, ever.
type PublicProfile struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	Skills       []string  `json:"skills"`
	Bio          string    `json:"bio"`
	AvailableFor []string  `json:"available_for"`
	CreatedAt    time.Time `json:"created_at"`
}

// AgentProfile is the machine-consumption projection. No contact address and
// no owner identity reference.
type AgentProfile struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Skills       []string `json:"skills"`
	Bio          string   `json:"bio"`
	AvailableFor []string `json:"available_for"`
}

// SearchProfile is the search-result projection.
type SearchProfile struct {
	ID     string   `json:"id"`
	Slug   string   `json:"slug"`
	Name   string   `json:"name"`
	Skills []string `json:"skills"`
	Bio    string   `json:"bio"`
}

func ownerProjection(p *domain.Profile) OwnerProfile {
	return OwnerProfile{
		ID:           p.ID,
		OwnerID:      p.OwnerID,
		Slug:         p.Slug,
		Name:         p.Name,
		Email:        p.Email,
		Skills:       p.Skills,
		Bio:          p.Bio,
		AvailableFor: p.AvailableFor,
		IsPublic:     p.IsPublic,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func publicProjection(p *domain.Profile) PublicProfile {
	return PublicProfile{
		ID:           p.ID,
		Slug:         p.Slug,
		Name:         p.Name,
		Skills:       p.Skills,
		Bio:          p.Bio,
		AvailableFor: p.AvailableFor,
		CreatedAt:    p.CreatedAt,
	}
}

func agentProjection(p *domain.Profile) AgentProfile {
	return AgentProfile{
		ID:           p.ID,
		Name:         p.Name,
		Skills:       p.Skills,
		Bio:          p.Bio,
		AvailableFor: p.AvailableFor,
	}
}

func searchProjection(p *domain.Profile) SearchProfile {
	return SearchProfile{
		ID:     p.ID,
		Slug:   p.Slug,
		Name:   p.Name,
		Skills: p.Skills,
		Bio:    p.Bio,
	}
}

// SanitizeForContext projects p for the given output context and viewer.
// The owner projection (including the contact address) is only produced for
// ContextOwnerAPI when viewerID matches the owner; a non-owner asking for
// the owner context degrades to the public projection. Returns
// ErrNilResource for a nil profile.
func SanitizeForContext(p *domain.Profile, viewerID string, ctx OutputContext) (any, error) {
	if p == nil {
		return nil, ErrNilResource
	}

	switch ctx {
	case ContextOwnerAPI:
		if viewerID != "" && viewerID == p.OwnerID {
			return ownerProjection(p), nil
		}
		return publicProjection(p), nil
	case ContextAgent:
		return agentProjection(p), nil
	case ContextSearch:
		return searchProjection(p), nil
	default:
		return publicProjection(p), nil
	}
}

// SanitizeCollection projects each profile in ps for the given context.
func SanitizeCollection(ps []domain.Profile, viewerID string, ctx OutputContext) ([]any, error) {
	out := make([]any, 0, len(ps))
	for i := range ps {
		proj, err := SanitizeForContext(&ps[i], viewerID, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, proj)
	}
	return out, nil
}
