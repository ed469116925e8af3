package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schemaLockID = int64(2026031001)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS intents (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	category TEXT NOT NULL,
	keyword TEXT NOT NULL,
	subcategory TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	confidence DOUBLE PRECISION NOT NULL,
	is_commercial BOOLEAN NOT NULL,
	point_value INTEGER NOT NULL DEFAULT 0 CHECK (point_value BETWEEN 0 AND 1000),
	status TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_intents_user_status ON intents(user_id, status);
CREATE INDEX IF NOT EXISTS idx_intents_active_expiry ON intents(expires_at) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS campaigns (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	category TEXT NOT NULL,
	keywords JSONB NOT NULL DEFAULT '[]'::jsonb,
	url TEXT NOT NULL DEFAULT '',
	site_name TEXT NOT NULL DEFAULT '',
	budget BIGINT NOT NULL,
	spent BIGINT NOT NULL DEFAULT 0 CHECK (spent >= 0),
	cost_per_match BIGINT NOT NULL,
	status TEXT NOT NULL,
	start_date TIMESTAMPTZ NOT NULL,
	end_date TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_campaigns_status_end ON campaigns(status, end_date);
CREATE INDEX IF NOT EXISTS idx_campaigns_keywords ON campaigns USING GIN (keywords);

CREATE TABLE IF NOT EXISTS matches (
	id TEXT PRIMARY KEY,
	intent_id TEXT NOT NULL REFERENCES intents(id),
	campaign_id TEXT NOT NULL REFERENCES campaigns(id),
	user_id TEXT NOT NULL,
	score DOUBLE PRECISION NOT NULL,
	reward BIGINT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (intent_id, campaign_id)
);

CREATE INDEX IF NOT EXISTS idx_matches_user_status ON matches(user_id, status);

CREATE TABLE IF NOT EXISTS user_points (
	user_id TEXT PRIMARY KEY,
	points BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS point_transactions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	type TEXT NOT NULL,
	amount BIGINT NOT NULL,
	description TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_point_transactions_user ON point_transactions(user_id, created_at DESC);
`

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
