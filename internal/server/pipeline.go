// Package server hosts the HTTP surface: the request-gating pipeline, its
// middleware, and the chi-based server wiring. Every registered endpoint
// passes through the same gate sequence before its handler runs: client
// context extraction, security validation, method allow-list, rate limiting,
// and payload validation. Rejections at any gate use the uniform error
// envelope and are still recorded by the monitor.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/profilemesh/gateway/internal/clientctx"
	"github.com/profilemesh/gateway/internal/domain"
	"github.com/profilemesh/gateway/internal/monitor"
	"github.com/profilemesh/gateway/internal/ratelimit"
	"github.com/profilemesh/gateway/internal/security"
)

// Endpoint describes one gated route. The pipeline consults it at every gate:
// Methods drives the allow-list, Tier selects the rate-limit policy, Schema
// shapes payload validation for mutating endpoints.
type Endpoint struct {
	// Name is the monitoring key, e.g. "/profiles". Path parameters are
	// collapsed so all ids share one endpoint entry.
	Name    string
	Methods []string
	// Tier names the rate-limit policy. An unknown tier disables limiting
	// for the endpoint.
	Tier string
	// Schema validates the JSON body of mutating requests. Nil skips shape
	// checks but still enforces size and well-formedness.
	Schema *security.Schema
	// Mutating marks endpoints whose non-GET requests carry a JSON body.
	Mutating bool
	Handler  http.HandlerFunc
}

// Pipeline runs the gate sequence around endpoint handlers.
type Pipeline struct {
	validator *security.Validator
	limiter   *ratelimit.Limiter
	tiers     map[string]ratelimit.Tier
	recorder  *monitor.Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewPipeline assembles the gating pipeline from its collaborators.
func NewPipeline(validator *security.Validator, limiter *ratelimit.Limiter,
	tiers map[string]ratelimit.Tier, recorder *monitor.Recorder, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		validator: validator,
		limiter:   limiter,
		tiers:     tiers,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// Wrap returns the gated handler for ep. The monitoring record is opened
// before any gate and closed on the way out, so rejected, timed-out and
// panicked requests are all counted.
func (p *Pipeline) Wrap(ep Endpoint) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := p.recorder.StartRequest(ep.Name, r.Method)
		if rid := GetRequestID(r.Context()); rid != "" {
			h.RequestID = rid
		}

		cc := clientctx.FromRequest(r)

		rw, ok := w.(*responseWriter)
		if !ok {
			rw = &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		}

		ctx, held := withErrorHolder(r.Context())
		r = r.WithContext(ctx)

		requestSize := r.ContentLength
		if requestSize < 0 {
			requestSize = 0
		}

		defer func() {
			if rec := recover(); rec != nil {
				p.logger.Error("handler panic",
					slog.String("endpoint", ep.Name),
					slog.String("request_id", h.RequestID),
					slog.Any("panic", rec),
				)
				apiErr := domain.ErrInternal(fmt.Errorf("panic: %v", rec))
				if !rw.wroteHead {
					WriteError(rw, r, apiErr)
				} else {
					recordError(r.Context(), apiErr)
				}
			}
			// A handler that observed cancellation and wrote nothing still
			// needs a response, and the record must show the timeout.
			if errors.Is(r.Context().Err(), context.DeadlineExceeded) && !rw.wroteHead {
				WriteError(rw, r, domain.ErrTimeout())
			}
			p.recorder.EndRequest(h, monitor.Outcome{
				Status:       rw.statusCode,
				IP:           cc.IP,
				UserAgent:    cc.UserAgent,
				RequestSize:  requestSize,
				ResponseSize: rw.written,
				ErrorCode:    held.code,
				ErrorMessage: held.message,
			})
		}()

		// CORS preflight never reaches the gates.
		if r.Method == http.MethodOptions {
			rw.WriteHeader(http.StatusOK)
			return
		}

		finding := p.validator.ValidateRequest(r.Method, r.ContentLength, cc.Origin, ep.Methods)
		if finding.Risk != security.RiskSafe {
			p.logFinding("request flagged", ep.Name, cc, finding)
		}
		if !slices.Contains(ep.Methods, r.Method) {
			WriteError(rw, r, domain.ErrMethodNotAllowed(r.Method))
			return
		}
		if finding.Blocked() {
			WriteError(rw, r, domain.ErrSecurityRejected("request rejected"))
			return
		}

		if tier, ok := p.tiers[ep.Tier]; ok {
			d := p.limiter.Check(cc.Key(), tier)
			hdr := rw.Header()
			hdr.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			hdr.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			hdr.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
			if !d.Allowed {
				hdr.Set("Retry-After", strconv.Itoa(d.RetryAfter(p.now())))
				WriteError(rw, r, domain.ErrRateLimited())
				return
			}
		}

		if ep.Mutating && r.Method != http.MethodGet {
			raw, err := io.ReadAll(io.LimitReader(r.Body, p.validator.MaxBodyBytes()+1))
			if err != nil {
				WriteError(rw, r, domain.ErrValidation("unreadable request body"))
				return
			}
			bodyFinding := p.validator.ValidateBody(raw, ep.Schema)
			if bodyFinding.Risk != security.RiskSafe {
				p.logFinding("payload flagged", ep.Name, cc, bodyFinding)
			}
			if bodyFinding.Blocked() {
				if bodyFinding.Risk == security.RiskMalicious {
					WriteError(rw, r, domain.ErrSecurityRejected("request rejected"))
				} else {
					WriteError(rw, r, domain.ErrValidation(strings.Join(bodyFinding.Errors, "; ")).
						WithDetails(map[string]any{"errors": bodyFinding.Errors}))
				}
				return
			}
			// Hand the consumed body back to the handler.
			r.Body = io.NopCloser(bytes.NewReader(raw))
			r.ContentLength = int64(len(raw))
			requestSize = int64(len(raw))
		}

		ep.Handler(rw, r)
	})
}

func (p *Pipeline) logFinding(msg, endpoint string, cc clientctx.ClientContext, f security.Finding) {
	p.logger.Warn(msg,
		slog.String("endpoint", endpoint),
		slog.String("risk", string(f.Risk)),
		slog.String("client", cc.Key()),
		slog.String("user_agent", cc.UserAgent),
		slog.Any("errors", f.Errors),
		slog.Any("warnings", f.Warnings),
	)
}
