package database

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Dialect names the SQL engine behind a DB. Queries are written with
// PostgreSQL $N placeholders and passed through Rebind.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == SQLite {
		return "sqlite"
	}
	return "pgx"
}

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

// Rebind rewrites $N placeholders for the dialect. SQLite's ?NNN form binds
// by position too, so repeated and out-of-order parameters keep working.
func (d Dialect) Rebind(query string) string {
	if d != SQLite {
		return query
	}
	return placeholderRe.ReplaceAllString(query, "?$1")
}

// JSONText returns an expression yielding the text value of the first
// present key in a JSON column, with missing keys read as the empty string.
func (d Dialect) JSONText(column string, keys ...string) string {
	parts := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		if d == SQLite {
			parts = append(parts, fmt.Sprintf("json_extract(%s, '$.%s')", column, key))
		} else {
			parts = append(parts, fmt.Sprintf("%s->>'%s'", column, key))
		}
	}
	parts = append(parts, "''")
	return "COALESCE(" + strings.Join(parts, ", ") + ")"
}

// JSONParam returns the placeholder for a JSON document parameter.
func (d Dialect) JSONParam(n int) string {
	if d == SQLite {
		return fmt.Sprintf("$%d", n)
	}
	return fmt.Sprintf("$%d::jsonb", n)
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
