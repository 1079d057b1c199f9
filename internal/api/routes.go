package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/profilemesh/gateway/internal/server"
)

// Mount registers every route behind the gating pipeline. Tier assignment:
// read-only directory traffic uses "search", the agent surface "agent", and
// anything mutating "mutate". Health and admin metrics are not rate limited.
func (h *Handlers) Mount(r chi.Router, p *server.Pipeline) {
	r.Handle("/auth/login", p.Wrap(server.Endpoint{
		Name: "/auth/login", Methods: []string{http.MethodPost},
		Tier: "mutate", Schema: loginSchema(), Mutating: true,
		Handler: h.Login,
	}))
	r.Handle("/auth/logout", p.Wrap(server.Endpoint{
		Name: "/auth/logout", Methods: []string{http.MethodPost},
		Tier:    "mutate",
		Handler: h.Logout,
	}))

	r.Handle("/profiles", perMethod(p, "/profiles", map[string]server.Endpoint{
		http.MethodGet: {Tier: "search", Handler: h.ListProfiles},
		http.MethodPost: {Tier: "mutate", Schema: profileUpsertSchema(),
			Mutating: true, Handler: h.UpsertProfile},
	}))
	r.Handle("/profiles/me", p.Wrap(server.Endpoint{
		Name: "/profiles/me", Methods: []string{http.MethodGet},
		Tier:    "search",
		Handler: h.GetOwnProfile,
	}))
	r.Handle("/profiles/{id}", p.Wrap(server.Endpoint{
		Name: "/profiles/{id}", Methods: []string{http.MethodGet},
		Tier:    "search",
		Handler: h.GetProfile,
	}))

	r.Handle("/search/profiles", p.Wrap(server.Endpoint{
		Name: "/search/profiles", Methods: []string{http.MethodGet},
		Tier:    "search",
		Handler: h.SearchProfiles,
	}))

	r.Handle("/appointments", p.Wrap(server.Endpoint{
		Name: "/appointments", Methods: []string{http.MethodPost},
		Tier: "mutate", Schema: appointmentCreateSchema(), Mutating: true,
		Handler: h.CreateAppointment,
	}))
	r.Handle("/appointments/received", p.Wrap(server.Endpoint{
		Name: "/appointments/received", Methods: []string{http.MethodGet},
		Tier:    "search",
		Handler: h.ListReceivedAppointments,
	}))
	r.Handle("/appointments/sent", p.Wrap(server.Endpoint{
		Name: "/appointments/sent", Methods: []string{http.MethodGet},
		Tier:    "search",
		Handler: h.ListSentAppointments,
	}))
	r.Handle("/appointments/{id}/status", p.Wrap(server.Endpoint{
		Name: "/appointments/{id}/status", Methods: []string{http.MethodPost},
		Tier: "mutate", Schema: statusUpdateSchema(), Mutating: true,
		Handler: h.UpdateAppointmentStatus,
	}))

	r.Handle("/mcp/profiles", p.Wrap(server.Endpoint{
		Name: "/mcp/profiles", Methods: []string{http.MethodGet},
		Tier:    "agent",
		Handler: h.MCPListProfiles,
	}))
	r.Handle("/mcp/search", perMethod(p, "/mcp/search", map[string]server.Endpoint{
		http.MethodGet: {Tier: "agent", Handler: h.MCPSearch},
		http.MethodPost: {Tier: "agent", Schema: mcpSearchSchema(),
			Mutating: true, Handler: h.MCPSearch},
	}))
	r.Handle("/mcp/request_meeting", p.Wrap(server.Endpoint{
		Name: "/mcp/request_meeting", Methods: []string{http.MethodPost},
		Tier: "agent", Schema: mcpMeetingSchema(), Mutating: true,
		Handler: h.MCPRequestMeeting,
	}))

	r.Handle("/healthz", p.Wrap(server.Endpoint{
		Name: "/healthz", Methods: []string{http.MethodGet},
		Handler: h.Health,
	}))
	r.Handle("/admin/metrics/hourly", p.Wrap(server.Endpoint{
		Name: "/admin/metrics/hourly", Methods: []string{http.MethodGet},
		Handler: h.HourlyMetrics,
	}))
	r.Handle("/admin/metrics/daily", p.Wrap(server.Endpoint{
		Name: "/admin/metrics/daily", Methods: []string{http.MethodGet},
		Handler: h.DailyMetrics,
	}))
}

// perMethod builds one gated handler per method for a path whose methods
// need different tiers or schemas, dispatching by request method. Every
// per-method endpoint carries the full allow-list so a disallowed method
// still gets the pipeline's 405 treatment.
func perMethod(p *server.Pipeline, name string, byMethod map[string]server.Endpoint) http.Handler {
	methods := make([]string, 0, len(byMethod))
	for m := range byMethod {
		methods = append(methods, m)
	}

	wrapped := make(map[string]http.Handler, len(byMethod))
	var fallback http.Handler
	for m, ep := range byMethod {
		ep.Name = name
		ep.Methods = methods
		h := p.Wrap(ep)
		wrapped[m] = h
		if fallback == nil {
			fallback = h
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := wrapped[r.Method]; ok {
			h.ServeHTTP(w, r)
			return
		}
		// Unknown method (or OPTIONS): any gated variant answers correctly.
		fallback.ServeHTTP(w, r)
	})
}
