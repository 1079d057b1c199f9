// Package privacy decides who may view, contact, or edit a profile and
// shapes profile output per caller context. Denial is always a value, never
// an error: the only error this package produces is the programming-error
// case of sanitizing a nil profile.
//
// The externally observable rule: a denied private resource must be
// indistinguishable from a nonexistent one. ToPrivacySafeError collapses
// every access-shaped reason into the same generic not-found error.
package privacy

import (
	"errors"

	"github.com/profilemesh/gateway/internal/domain"
)

// Action is an operation a viewer attempts against a profile.
type Action string

const (
	ActionView    Action = "view"
	ActionContact Action = "contact"
	ActionEdit    Action = "edit"
)

// Reason is an internal denial reason, for logging only. It must never
// cross the process boundary; see ToPrivacySafeError.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonPrivate     Reason = "private"
	ReasonInactive    Reason = "inactive"
	ReasonSelfContact Reason = "self-contact"
	ReasonNotOwner    Reason = "not-owner"
)

// ErrNilResource is returned when a nil profile is passed to a sanitizer.
var ErrNilResource = errors.New("privacy: cannot sanitize nil resource")

// CanView reports whether viewerID may see p. Owners see their own profile
// regardless of the public/active flags; everyone else requires both.
func CanView(p *domain.Profile, viewerID string) bool {
	if p == nil {
		return false
	}
	if viewerID != "" && viewerID == p.OwnerID {
		return true
	}
	return p.IsPublic && p.IsActive
}

// CanContact reports whether viewerID may send a contact request to p.
// Same visibility requirement as CanView, with no owner bypass and no
// self-contact.
func CanContact(p *domain.Profile, viewerID string) bool {
	if p == nil {
		return false
	}
	if viewerID != "" && viewerID == p.OwnerID {
		return false
	}
	return p.IsPublic && p.IsActive
}

// ViolationReason returns the specific internal reason viewerID may not
// perform action on p, or ReasonNone if allowed.
func ViolationReason(p *domain.Profile, viewerID string, action Action) Reason {
	if p == nil {
		return ReasonPrivate
	}

	switch action {
	case ActionView:
		if CanView(p, viewerID) {
			return ReasonNone
		}
	case ActionContact:
		if viewerID != "" && viewerID == p.OwnerID {
			return ReasonSelfContact
		}
		if CanContact(p, viewerID) {
			return ReasonNone
		}
	case ActionEdit:
		if viewerID != "" && viewerID == p.OwnerID {
			return ReasonNone
		}
		return ReasonNotOwner
	}

	if !p.IsActive {
		return ReasonInactive
	}
	return ReasonPrivate
}

// ToPrivacySafeError converts an internal denial reason into the error
// returned at the process boundary. Anything access-shaped (private,
// inactive, self-contact, not-owner) collapses into the same generic 404 so
// callers cannot distinguish "private" from "nonexistent". ReasonNone maps
// to nil.
func ToPrivacySafeError(reason Reason) *domain.APIError {
	switch reason {
	case ReasonNone:
		return nil
	case ReasonPrivate, ReasonInactive, ReasonSelfContact, ReasonNotOwner:
		return domain.ErrNotFound()
	default:
		return domain.ErrNotFound()
	}
}

// FilterForViewer returns the subset of profiles viewerID may see, with the
// owner bypass applied per element.
func FilterForViewer(profiles []domain.Profile, viewerID string) []domain.Profile {
	out := make([]domain.Profile, 0, len(profiles))
	for i := range profiles {
		if CanView(&profiles[i], viewerID) {
			out = append(out, profiles[i])
		}
	}
	return out
}

// FilterPublic returns only public, active profiles regardless of viewer.
// Agent-protocol and anonymous search paths use this so a caller's own
// private items never appear in otherwise-public result sets.
func FilterPublic(profiles []domain.Profile) []domain.Profile {
	out := make([]domain.Profile, 0, len(profiles))
	for i := range profiles {
		if profiles[i].IsPublic && profiles[i].IsActive {
			out = append(out, profiles[i])
		}
	}
	return out
}
