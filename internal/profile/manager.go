package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"textscan/internal/jwtauth"
)

// Domain errors returned by the Manager.
var (
	ErrNotFound        = errors.New("profile not found")
	ErrInvalidProfile  = errors.New("name and phone are required")
	ErrMissingIdentity = errors.New("identity has no user ID")
)

// Manager handles business logic for user profiles.
type Manager struct {
	ds  *Datastore
	now func() time.Time
}

// NewManager creates a new profile manager.
func NewManager(ds *Datastore) *Manager {
	return &Manager{ds: ds, now: time.Now}
}

// Register creates or updates the caller's profile from verified claims.
// It reports whether the profile was created by this call.
func (m *Manager) Register(ctx context.Context, claims *jwtauth.Claims, reg Registration) (*Profile, bool, error) {
	uid := claims.UID()
	if uid == "" {
		return nil, false, ErrMissingIdentity
	}

	reg.Name = strings.TrimSpace(reg.Name)
	reg.Phone = strings.TrimSpace(reg.Phone)
	reg.Reference = strings.TrimSpace(reg.Reference)
	if reg.Name == "" || reg.Phone == "" {
		return nil, false, ErrInvalidProfile
	}

	_, err := m.ds.GetByUID(ctx, uid)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return nil, false, fmt.Errorf("failed to look up profile: %w", err)
	}

	now := m.now().UTC().Truncate(time.Microsecond)
	p := &Profile{
		ID:        uuid.New(),
		UID:       uid,
		Email:     strings.TrimSpace(claims.Email),
		Name:      reg.Name,
		Phone:     reg.Phone,
		Reference: reg.Reference,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.ds.Upsert(ctx, p); err != nil {
		return nil, false, fmt.Errorf("failed to save profile: %w", err)
	}

	stored, err := m.Get(ctx, uid)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// Get retrieves a profile by Firebase user ID.
func (m *Manager) Get(ctx context.Context, uid string) (*Profile, error) {
	p, err := m.ds.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// SetLeader grants or revokes the leader flag.
func (m *Manager) SetLeader(ctx context.Context, uid string, isLeader bool) error {
	rowsAffected, err := m.ds.SetLeader(ctx, uid, isLeader, m.now().UTC().Truncate(time.Microsecond))
	if err != nil {
		return fmt.Errorf("failed to update leader flag: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
