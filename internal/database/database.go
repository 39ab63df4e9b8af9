package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"textscan/internal/config"
)

const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 5 * time.Minute
	DefaultConnMaxIdleTime = 1 * time.Minute
	DefaultPingTimeout     = 5 * time.Second
)

// DB wraps sql.DB with the dialect of the engine behind it.
type DB struct {
	*sql.DB
	Dialect Dialect

	dsn string
}

// Open creates a new database connection pool and verifies connectivity.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	dialect, dsn, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == SQLite {
		// SQLite serializes writers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(orDefault(cfg.MaxOpenConns, DefaultMaxOpenConns))
		db.SetMaxIdleConns(orDefault(cfg.MaxIdleConns, DefaultMaxIdleConns))
		lifetime := DefaultConnMaxLifetime
		if cfg.ConnMaxLifetime > 0 {
			lifetime = time.Duration(cfg.ConnMaxLifetime) * time.Second
		}
		db.SetConnMaxLifetime(lifetime)
		db.SetConnMaxIdleTime(DefaultConnMaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultPingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close database after ping failure: %w", closeErr))
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, Dialect: dialect, dsn: dsn}, nil
}

// Health checks database connectivity. Returns nil if healthy.
func (db *DB) Health(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultPingTimeout)
		defer cancel()
	}

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}

// ParseURL maps a DATABASE_URL onto a dialect and the DSN its driver expects.
//
//	postgres://u:p@host/db  -> Postgres, unchanged
//	sqlite:///abs/path.db   -> SQLite, /abs/path.db
//	sqlite://rel/path.db    -> SQLite, rel/path.db
func ParseURL(raw string) (Dialect, string, error) {
	if err := config.ValidateDatabaseURL(raw); err != nil {
		return "", "", err
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("malformed URL: %w", err)
	}

	switch parsed.Scheme {
	case "postgres", "postgresql":
		return Postgres, raw, nil
	default:
		return SQLite, strings.TrimPrefix(raw, "sqlite://"), nil
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
