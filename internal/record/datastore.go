package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"textscan/internal/database"
)

// Datastore handles persistence operations for records.
// It performs only database operations and returns raw errors.
// Business logic and error translation belong in the Manager.
type Datastore struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewDatastore creates a new record datastore for the given dialect.
func NewDatastore(db *sql.DB, dialect database.Dialect) *Datastore {
	return &Datastore{db: db, dialect: dialect}
}

func (ds *Datastore) selectColumns() string {
	return "id, content, content_hash, status, COALESCE(duplicated, FALSE), created_at"
}

// ExistsDuplicate reports whether a stored record shares the phone, or the
// name, section and colony triple, with c. Comparison is exact. Rows written
// with the legacy keys are compared by those keys.
func (ds *Datastore) ExistsDuplicate(ctx context.Context, c Content) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM texts
			WHERE %s = $1
			   OR (%s = $2 AND %s = $3 AND %s = $4)
		)`,
		ds.dialect.JSONText("content", "phone", "telefono"),
		ds.dialect.JSONText("content", "name", "nombre"),
		ds.dialect.JSONText("content", "section", "seccion"),
		ds.dialect.JSONText("content", "colony", "colonia"),
	)

	var exists bool
	err := ds.db.QueryRowContext(ctx, ds.dialect.Rebind(query),
		c.Phone, c.Name, c.Section, c.Colony,
	).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// Insert stores r and fills in its ID.
func (ds *Datastore) Insert(ctx context.Context, r *Record) error {
	content, err := json.Marshal(r.Content)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO texts (content, content_hash, status, duplicated, created_at)
		VALUES (%s, $2, $3, $4, $5)
		RETURNING id`, ds.dialect.JSONParam(1))

	return ds.db.QueryRowContext(ctx, ds.dialect.Rebind(query),
		string(content), r.ContentHash, r.Status, r.Duplicated, r.CreatedAt,
	).Scan(&r.ID)
}

// GetByID retrieves a record by its ID.
// Returns sql.ErrNoRows if not found.
func (ds *Datastore) GetByID(ctx context.Context, id int64) (*Record, error) {
	query := `SELECT ` + ds.selectColumns() + ` FROM texts WHERE id = $1`

	r, err := scanRecord(ds.db.QueryRowContext(ctx, ds.dialect.Rebind(query), id))
	if err != nil {
		return nil, err
	}
	return r, nil
}

// List retrieves every record, newest first.
func (ds *Datastore) List(ctx context.Context) ([]*Record, error) {
	query := `SELECT ` + ds.selectColumns() + ` FROM texts ORDER BY created_at DESC, id DESC`

	rows, err := ds.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	records := []*Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// SetStatus updates the status of a record.
// Returns rows affected count for caller to interpret.
func (ds *Datastore) SetStatus(ctx context.Context, id int64, status bool) (int64, error) {
	query := `UPDATE texts SET status = $2 WHERE id = $1`

	result, err := ds.db.ExecContext(ctx, ds.dialect.Rebind(query), id, status)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// DeleteAll removes every record.
// Returns rows affected count.
func (ds *Datastore) DeleteAll(ctx context.Context) (int64, error) {
	result, err := ds.db.ExecContext(ctx, `DELETE FROM texts`)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		r       Record
		content []byte
		hash    sql.NullString
	)
	if err := row.Scan(&r.ID, &content, &hash, &r.Status, &r.Duplicated, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(content, &r.Content); err != nil {
		return nil, fmt.Errorf("decode content of record %d: %w", r.ID, err)
	}
	r.ContentHash = hash.String
	return &r, nil
}
