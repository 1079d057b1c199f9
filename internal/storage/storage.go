// Package storage defines the persistence seams for profiles, appointment
// requests, and users. The gating pipeline treats these as external
// collaborators; implementations live in the memory and sqlite subpackages.
package storage

import (
	"context"
	"errors"

	"github.com/profilemesh/gateway/internal/domain"
)

// ErrNotFound is returned for any id or slug with no backing record.
var ErrNotFound = errors.New("storage: not found")

// ErrConflict is returned when a uniqueness constraint would be violated.
var ErrConflict = errors.New("storage: conflict")

// ProfileStore persists directory profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
	GetProfileBySlug(ctx context.Context, slug string) (*domain.Profile, error)
	GetProfileByOwner(ctx context.Context, ownerID string) (*domain.Profile, error)
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
	CreateProfile(ctx context.Context, p *domain.Profile) error
	UpdateProfile(ctx context.Context, p *domain.Profile) error
}

// AppointmentStore persists contact requests against profiles.
type AppointmentStore interface {
	CreateRequest(ctx context.Context, r *domain.AppointmentRequest) error
	GetRequest(ctx context.Context, id string) (*domain.AppointmentRequest, error)
	ListRequestsForProfile(ctx context.Context, profileID string) ([]domain.AppointmentRequest, error)
	ListRequestsBySender(ctx context.Context, senderUserID string) ([]domain.AppointmentRequest, error)
	UpdateRequestStatus(ctx context.Context, id string, status domain.RequestStatus) error
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Store is the combined persistence interface the gateway is wired with.
type Store interface {
	ProfileStore
	AppointmentStore
	UserStore
	Close() error
}
