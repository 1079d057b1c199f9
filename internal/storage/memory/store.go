// Package memory is the in-memory Store used for tests and single-node
// development runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/profilemesh/gateway/internal/domain"
	"github.com/profilemesh/gateway/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu           sync.RWMutex
	profiles     map[string]*domain.Profile
	appointments map[string]*domain.AppointmentRequest
	users        map[string]*domain.User
}

var _ storage.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		profiles:     make(map[string]*domain.Profile),
		appointments: make(map[string]*domain.AppointmentRequest),
		users:        make(map[string]*domain.User),
	}
}

func (s *Store) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetProfileBySlug(ctx context.Context, slug string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) GetProfileByOwner(ctx context.Context, ownerID string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if p.OwnerID == ownerID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateProfile(ctx context.Context, p *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[p.ID]; exists {
		return storage.ErrConflict
	}
	for _, existing := range s.profiles {
		if existing.OwnerID == p.OwnerID || existing.Slug == p.Slug {
			return storage.ErrConflict
		}
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	s.profiles[p.ID] = &cp
	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, p *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.profiles[p.ID]
	if !ok {
		return storage.ErrNotFound
	}

	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()
	cp := *p
	s.profiles[p.ID] = &cp
	return nil
}

func (s *Store) CreateRequest(ctx context.Context, r *domain.AppointmentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.appointments[r.ID]; exists {
		return storage.ErrConflict
	}
	r.CreatedAt = time.Now()
	cp := *r
	s.appointments[r.ID] = &cp
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (*domain.AppointmentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.appointments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListRequestsForProfile(ctx context.Context, profileID string) ([]domain.AppointmentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.AppointmentRequest
	for _, r := range s.appointments {
		if r.ProfileID == profileID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListRequestsBySender(ctx context.Context, senderUserID string) ([]domain.AppointmentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.AppointmentRequest
	for _, r := range s.appointments {
		if r.SenderUserID == senderUserID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateRequestStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.appointments[id]
	if !ok {
		return storage.ErrNotFound
	}
	r.Status = status
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID]; exists {
		return storage.ErrConflict
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return storage.ErrConflict
		}
	}
	u.CreatedAt = time.Now()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) Close() error {
	return nil
}
