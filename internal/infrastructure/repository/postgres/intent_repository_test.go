package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/intendex/internal/core/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return db, mock, func() { _ = db.Close() }
}

var intentColumnNames = []string{
	"id", "user_id", "category", "keyword", "subcategory", "description", "confidence",
	"is_commercial", "point_value", "status", "expires_at", "created_at", "updated_at",
}

func TestIntentGetByIDReturnsDomainNotFound(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewIntentRepository(db)

	mock.ExpectQuery("FROM intents").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrIntentNotFound) {
		t.Fatalf("expected ErrIntentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestIntentListMatchableScansRows(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewIntentRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(intentColumnNames).
		AddRow("i-1", "u-1", "금융", "신용카드", "", "", 0.9, true, 500, "active", now.Add(time.Hour), now, now)

	mock.ExpectQuery("FROM intents").
		WithArgs("u-1", now).
		WillReturnRows(rows)

	intents, err := repo.ListMatchable(context.Background(), "u-1", now)
	if err != nil {
		t.Fatalf("ListMatchable() error = %v", err)
	}
	if len(intents) != 1 || intents[0].Status != domain.IntentStatusActive || intents[0].PointValue != 500 {
		t.Fatalf("unexpected intents: %+v", intents)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestIntentUpdateStatusReturnsNotFoundWhenNoRows(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewIntentRepository(db)

	mock.ExpectExec("UPDATE intents").
		WithArgs("missing", string(domain.IntentStatusMatched), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.IntentStatusMatched)
	if !domain.IsKind(err, domain.ErrIntentNotFound) {
		t.Fatalf("expected ErrIntentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestIntentExpireStaleReportsAffectedRows(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewIntentRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec("SET status = 'expired'").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ExpireStale(context.Background(), now)
	if err != nil {
		t.Fatalf("ExpireStale() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 expired intents, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
