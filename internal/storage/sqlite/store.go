// Package sqlite is the SQLite-backed storage.Store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/profilemesh/gateway/internal/domain"
	"github.com/profilemesh/gateway/internal/storage"
)

// Store is a SQLite implementation of storage.Store.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New opens (creating if needed) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE COLLATE NOCASE,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL UNIQUE,
			slug TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			skills TEXT NOT NULL,
			bio TEXT NOT NULL,
			available_for TEXT NOT NULL,
			is_public INTEGER NOT NULL DEFAULT 1,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS appointment_requests (
			id TEXT PRIMARY KEY,
			profile_id TEXT NOT NULL,
			requester_name TEXT NOT NULL,
			requester_email TEXT NOT NULL,
			message TEXT NOT NULL,
			preferred_time TEXT,
			request_type TEXT NOT NULL,
			status TEXT NOT NULL,
			sender_user_id TEXT,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_profile ON appointment_requests(profile_id)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_sender ON appointment_requests(sender_user_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

const profileColumns = `id, owner_id, slug, name, email, skills, bio, available_for, is_public, is_active, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (*domain.Profile, error) {
	var p domain.Profile
	var skills, availableFor string
	err := row.Scan(&p.ID, &p.OwnerID, &p.Slug, &p.Name, &p.Email, &skills, &p.Bio,
		&availableFor, &p.IsPublic, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(skills), &p.Skills); err != nil {
		return nil, fmt.Errorf("decode skills: %w", err)
	}
	if err := json.Unmarshal([]byte(availableFor), &p.AvailableFor); err != nil {
		return nil, fmt.Errorf("decode available_for: %w", err)
	}
	return &p, nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	return scanProfile(row)
}

func (s *Store) GetProfileBySlug(ctx context.Context, slug string) (*domain.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE slug = ?`, slug)
	return scanProfile(row)
}

func (s *Store) GetProfileByOwner(ctx context.Context, ownerID string) (*domain.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE owner_id = ?`, ownerID)
	return scanProfile(row)
}

func (s *Store) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) CreateProfile(ctx context.Context, p *domain.Profile) error {
	skills, err := json.Marshal(p.Skills)
	if err != nil {
		return err
	}
	availableFor, err := json.Marshal(p.AvailableFor)
	if err != nil {
		return err
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Slug, p.Name, p.Email, string(skills), p.Bio,
		string(availableFor), p.IsPublic, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil && isUniqueViolation(err) {
		return storage.ErrConflict
	}
	return err
}

func (s *Store) UpdateProfile(ctx context.Context, p *domain.Profile) error {
	skills, err := json.Marshal(p.Skills)
	if err != nil {
		return err
	}
	availableFor, err := json.Marshal(p.AvailableFor)
	if err != nil {
		return err
	}

	p.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET name = ?, email = ?, skills = ?, bio = ?, available_for = ?,
			is_public = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Email, string(skills), p.Bio, string(availableFor),
		p.IsPublic, p.IsActive, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CreateRequest(ctx context.Context, r *domain.AppointmentRequest) error {
	r.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO appointment_requests
			(id, profile_id, requester_name, requester_email, message, preferred_time,
			 request_type, status, sender_user_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ProfileID, r.RequesterName, r.RequesterEmail, r.Message,
		nullable(r.PreferredTime), string(r.RequestType), string(r.Status),
		nullable(r.SenderUserID), r.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return storage.ErrConflict
	}
	return err
}

const requestColumns = `id, profile_id, requester_name, requester_email, message,
	COALESCE(preferred_time, ''), request_type, status, COALESCE(sender_user_id, ''), created_at`

func scanRequest(row interface{ Scan(...any) error }) (*domain.AppointmentRequest, error) {
	var r domain.AppointmentRequest
	err := row.Scan(&r.ID, &r.ProfileID, &r.RequesterName, &r.RequesterEmail, &r.Message,
		&r.PreferredTime, &r.RequestType, &r.Status, &r.SenderUserID, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (*domain.AppointmentRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM appointment_requests WHERE id = ?`, id)
	return scanRequest(row)
}

func (s *Store) listRequests(ctx context.Context, where string, arg any) ([]domain.AppointmentRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM appointment_requests WHERE `+where+` ORDER BY created_at`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AppointmentRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) ListRequestsForProfile(ctx context.Context, profileID string) ([]domain.AppointmentRequest, error) {
	return s.listRequests(ctx, "profile_id = ?", profileID)
}

func (s *Store) ListRequestsBySender(ctx context.Context, senderUserID string) ([]domain.AppointmentRequest, error) {
	return s.listRequests(ctx, "sender_user_id = ?", senderUserID)
}

func (s *Store) UpdateRequestStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE appointment_requests SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	u.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return storage.ErrConflict
	}
	return err
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE email = ? COLLATE NOCASE`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueViolation matches the sqlite unique-constraint error without
// depending on driver-internal error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
