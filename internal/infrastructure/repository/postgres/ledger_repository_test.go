package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/intendex/internal/core/domain"
)

func TestLedgerSummaryDecodesMetadata(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewLedgerRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery("FROM user_points").
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(int64(180)))
	mock.ExpectQuery("FROM point_transactions").
		WithArgs("u-1", defaultLedgerLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "amount", "description", "metadata", "created_at"}).
			AddRow("t-1", "u-1", "earn", int64(90), "Intent match reward: Card",
				[]byte(`{"source":"intent_match","matchId":"m-1","campaignId":"c-1","campaignTitle":"Card","score":0.9}`), now))

	summary, err := repo.Summary(context.Background(), "u-1", 0)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.Balance != 180 || len(summary.Transactions) != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	meta := summary.Transactions[0].Metadata
	if meta.Source != domain.LedgerSourceIntentMatch || meta.MatchID != "m-1" || meta.Score != 0.9 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLedgerSummaryWithoutPointsRowIsZero(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewLedgerRepository(db)

	mock.ExpectQuery("FROM user_points").
		WithArgs("u-new").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("FROM point_transactions").
		WithArgs("u-new", maxLedgerLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "amount", "description", "metadata", "created_at"}))

	summary, err := repo.Summary(context.Background(), "u-new", 500)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.Balance != 0 || summary.Transactions == nil || len(summary.Transactions) != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
