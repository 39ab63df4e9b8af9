package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"textscan/internal/database"
)

// Domain errors returned by the Manager.
var (
	ErrNotFound         = errors.New("record not found")
	ErrInvalidContent   = errors.New("name and phone are required")
	ErrMalformedContent = errors.New("invalid text")
	ErrInvalidFilter    = errors.New("duplicated must be all, true, false, duplicated, or notDuplicated")
	ErrConflict         = errors.New("record conflicts with an existing record")
)

// Manager handles business logic for records.
// It coordinates operations and translates datastore errors to domain errors.
type Manager struct {
	ds  *Datastore
	now func() time.Time
}

// NewManager creates a new record manager.
func NewManager(ds *Datastore) *Manager {
	return &Manager{ds: ds, now: time.Now}
}

// Create stores new content. The record is flagged as duplicated when an
// earlier record matches it; the earlier record is left untouched.
//
// The duplicate check and the insert are separate statements, so two
// concurrent submissions of the same person may both be stored unflagged.
func (m *Manager) Create(ctx context.Context, c Content) (*Record, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	duplicated, err := m.ds.ExistsDuplicate(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicates: %w", err)
	}

	r := &Record{
		Content:     c,
		ContentHash: Fingerprint(c),
		Status:      false,
		Duplicated:  duplicated,
		CreatedAt:   m.now().UTC().Truncate(time.Microsecond),
	}

	if err := m.ds.Insert(ctx, r); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	return r, nil
}

// GetByID retrieves a record by ID.
func (m *Manager) GetByID(ctx context.Context, id int64) (*Record, error) {
	r, err := m.ds.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return r, nil
}

// List returns the records passing f, newest first. The result is never nil.
func (m *Manager) List(ctx context.Context, f Filter) ([]*Record, error) {
	records, err := m.ds.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	out := records[:0]
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// SetStatus marks a record resolved or pending and returns the updated record.
func (m *Manager) SetStatus(ctx context.Context, id int64, status bool) (*Record, error) {
	rowsAffected, err := m.ds.SetStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("failed to update record status: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}
	return m.GetByID(ctx, id)
}

// DeleteAll removes every record and reports how many were deleted.
func (m *Manager) DeleteAll(ctx context.Context) (int64, error) {
	n, err := m.ds.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}
	return n, nil
}
