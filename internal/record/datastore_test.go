package record

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"textscan/internal/database"
)

var recordColumns = []string{"id", "content", "content_hash", "status", "duplicated", "created_at"}

func TestDatastore_ExistsDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	ds := NewDatastore(db, database.Postgres)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`COALESCE(content->>'phone', content->>'telefono', '') = $1`)).
		WithArgs("5551234", "Ana", "12", "").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := ds.ExistsDuplicate(ctx, Content{Name: "Ana", Phone: "5551234", Section: "12"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Error("expected duplicate to be found")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDatastore_ExistsDuplicate_SQLiteDialect(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	ds := NewDatastore(db, database.SQLite)

	mock.ExpectQuery(regexp.QuoteMeta(`COALESCE(json_extract(content, '$.phone'), json_extract(content, '$.telefono'), '') = ?1`)).
		WithArgs("1", "Ana", "", "").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := ds.ExistsDuplicate(context.Background(), Content{Name: "Ana", Phone: "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected no duplicate")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDatastore_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	ds := NewDatastore(db, database.Postgres)
	now := time.Now().UTC()

	r := &Record{
		Content:     Content{Name: "Ana", Phone: "1"},
		ContentHash: "abc",
		Duplicated:  true,
		CreatedAt:   now,
	}

	mock.ExpectQuery(regexp.QuoteMeta(`VALUES ($1::jsonb, $2, $3, $4, $5)`)).
		WithArgs(
			`{"name":"Ana","address":"","phone":"1","section":"","colony":"","request":"","reference":"","createdBy":""}`,
			"abc", false, true, now,
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	if err := ds.Insert(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID != 42 {
		t.Errorf("expected ID 42, got %d", r.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDatastore_Insert_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	ds := NewDatastore(db, database.Postgres)

	mock.ExpectQuery(`INSERT INTO texts`).
		WillReturnError(sql.ErrConnDone)

	if err := ds.Insert(context.Background(), &Record{}); err == nil {
		t.Error("expected error, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDatastore_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	ds := NewDatastore(db, database.Postgres)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, content, content_hash, status, COALESCE\(duplicated, FALSE\), created_at FROM texts WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(int64(7), []byte(`{"nombre":"Ana","telefono":"1"}`), nil, true, false, now))

	r, err := ds.GetByID(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.ID != 7 || !r.Status || r.Duplicated {
		t.Errorf("unexpected record: %+v", r)
	}
	if r.Content.Name != "Ana" || r.Content.Phone != "1" {
		t.Errorf("expected legacy content to decode, got %+v", r.Content)
	}
	if r.ContentHash != "" {
		t.Errorf("expected empty hash for NULL, got %q", r.ContentHash)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDatastore_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	ds := NewDatastore(db, database.Postgres)

	mock.ExpectQuery(`SELECT .+ FROM texts WHERE id`).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	if _, err := ds.GetByID(context.Background(), 99); err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDatastore_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	ds := NewDatastore(db, database.Postgres)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM texts ORDER BY created_at DESC, id DESC`).
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(int64(2), `{"name":"B","phone":"2"}`, "h2", false, true, now).
			AddRow(int64(1), `{"name":"A","phone":"1"}`, "h1", true, false, now.Add(-time.Minute)))

	records, err := ds.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != 2 || records[0].ContentHash != "h2" || !records[0].Duplicated {
		t.Errorf("unexpected first record: %+v", records[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDatastore_List_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	ds := NewDatastore(db, database.Postgres)

	mock.ExpectQuery(`SELECT .+ FROM texts`).
		WillReturnRows(sqlmock.NewRows(recordColumns))

	records, err := ds.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", records)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDatastore_List_BadContent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	ds := NewDatastore(db, database.Postgres)

	mock.ExpectQuery(`SELECT .+ FROM texts`).
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(int64(1), `not json`, nil, false, false, time.Now()))

	if _, err := ds.List(context.Background()); err == nil {
		t.Error("expected error for undecodable content")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDatastore_SetStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	ds := NewDatastore(db, database.SQLite)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE texts SET status = ?2 WHERE id = ?1`)).
		WithArgs(int64(3), true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows, err := ds.SetStatus(context.Background(), 3, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 1 {
		t.Errorf("expected 1 row affected, got %d", rows)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDatastore_DeleteAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	ds := NewDatastore(db, database.Postgres)

	mock.ExpectExec(`DELETE FROM texts`).
		WillReturnResult(sqlmock.NewResult(0, 5))

	rows, err := ds.DeleteAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 5 {
		t.Errorf("expected 5 rows affected, got %d", rows)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
