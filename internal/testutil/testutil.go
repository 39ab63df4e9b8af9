// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"textscan/internal/config"
	"textscan/internal/database"
	"textscan/internal/jwtauth"
)

// NewSQLiteDB opens a migrated SQLite database in a temporary directory.
// The database is closed when the test ends.
func NewSQLiteDB(tb testing.TB) *database.DB {
	tb.Helper()

	url := "sqlite://" + filepath.Join(tb.TempDir(), "textscan.db")
	db, err := database.Open(config.DatabaseConfig{URL: url})
	if err != nil {
		tb.Fatalf("failed to open test database: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })

	if err := db.MigrateUp(); err != nil {
		tb.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// ErrUnknownToken is returned by FakeVerifier for tokens it was not given.
var ErrUnknownToken = errors.New("unknown token")

// FakeVerifier maps opaque token strings to claims.
type FakeVerifier struct {
	mu     sync.Mutex
	tokens map[string]*jwtauth.Claims
}

// NewFakeVerifier creates an empty FakeVerifier.
func NewFakeVerifier() *FakeVerifier {
	return &FakeVerifier{tokens: make(map[string]*jwtauth.Claims)}
}

// Issue registers a token for the given identity and returns it.
func (f *FakeVerifier) Issue(uid, email string, leader bool) string {
	claims := &jwtauth.Claims{Email: email, EmailVerified: true, UserID: uid, Leader: leader}
	claims.Subject = uid

	token := "token-" + uid
	if leader {
		token += "-leader"
	}

	f.mu.Lock()
	f.tokens[token] = claims
	f.mu.Unlock()
	return token
}

// Verify implements the middleware's TokenVerifier.
func (f *FakeVerifier) Verify(_ context.Context, token string) (*jwtauth.Claims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	claims, ok := f.tokens[token]
	if !ok {
		return nil, ErrUnknownToken
	}
	return claims, nil
}
