package profile

import (
	"context"
	"database/sql"
	"time"

	"textscan/internal/database"
)

// DBTX is the interface for database operations.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Datastore handles database operations for user profiles.
type Datastore struct {
	db      DBTX
	dialect database.Dialect
}

// NewDatastore creates a new profile datastore.
func NewDatastore(db DBTX, dialect database.Dialect) *Datastore {
	return &Datastore{db: db, dialect: dialect}
}

// Upsert creates a profile or refreshes the user-editable fields of an
// existing one. is_leader is left as stored.
func (ds *Datastore) Upsert(ctx context.Context, p *Profile) error {
	query := `
		INSERT INTO user_profiles (id, uid, email, name, phone, reference, is_leader, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $7)
		ON CONFLICT (uid)
		DO UPDATE SET email = excluded.email, name = excluded.name, phone = excluded.phone,
			reference = excluded.reference, updated_at = excluded.updated_at`

	_, err := ds.db.ExecContext(ctx, ds.dialect.Rebind(query),
		p.ID, p.UID, p.Email, p.Name, p.Phone, p.Reference, p.UpdatedAt,
	)
	return err
}

// GetByUID retrieves a profile by Firebase user ID.
// Returns sql.ErrNoRows if not found.
func (ds *Datastore) GetByUID(ctx context.Context, uid string) (*Profile, error) {
	query := `
		SELECT id, uid, email, name, phone, reference, is_leader, created_at, updated_at
		FROM user_profiles WHERE uid = $1`

	p := &Profile{}
	err := ds.db.QueryRowContext(ctx, ds.dialect.Rebind(query), uid).Scan(
		&p.ID, &p.UID, &p.Email, &p.Name, &p.Phone, &p.Reference,
		&p.IsLeader, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SetLeader updates the leader flag of a profile.
// Returns rows affected count for caller to interpret.
func (ds *Datastore) SetLeader(ctx context.Context, uid string, isLeader bool, updatedAt time.Time) (int64, error) {
	query := `UPDATE user_profiles SET is_leader = $2, updated_at = $3 WHERE uid = $1`

	result, err := ds.db.ExecContext(ctx, ds.dialect.Rebind(query), uid, isLeader, updatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
