package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

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

// EnsureSchema creates every table the pipeline needs. Both binaries call it
// at startup, so the DDL runs under an advisory lock.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS assets (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	modality TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	storage_key TEXT NOT NULL,
	parent_asset_id TEXT NOT NULL DEFAULT '',
	origin TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assets_user_id ON assets(user_id);
CREATE INDEX IF NOT EXISTS idx_assets_parent ON assets(parent_asset_id) WHERE parent_asset_id <> '';

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	asset_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
	stage TEXT NOT NULL,
	percent INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_user_stage ON runs(user_id, stage);

-- At most one non-terminal run per user. The usecase checks first, but only
-- this index closes the race between two concurrent inserts.
CREATE UNIQUE INDEX IF NOT EXISTS uniq_runs_active_user ON runs(user_id) WHERE stage NOT IN ('done', 'failed');

CREATE TABLE IF NOT EXISTS content_bundles (
	run_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	results JSONB NOT NULL,
	total_size BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS knowledge_trees (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	root_concept TEXT NOT NULL,
	tree JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trees_user_id ON knowledge_trees(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS question_prompts (
	user_id TEXT NOT NULL,
	normalized_prompt TEXT NOT NULL,
	tree_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, normalized_prompt)
);

CREATE TABLE IF NOT EXISTS quiz_attempts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	tree_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
	answers JSONB NOT NULL DEFAULT '[]'::jsonb,
	correct INTEGER NOT NULL DEFAULT 0,
	total INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quiz_attempts_user ON quiz_attempts(user_id, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
