package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/audiojournal/internal/apperr"
)

// schemaStatements create the core relations. Every statement is
// create-if-absent so the whole set is safe to run on each startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS entries (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		title       TEXT,
		audio_path  TEXT NOT NULL,
		duration    REAL,
		transcript  TEXT,
		created_at  TIMESTAMP NOT NULL,
		modified_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at)`,

	`CREATE TABLE IF NOT EXISTS tags (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS entry_tags (
		entry_id INTEGER NOT NULL,
		tag_id   INTEGER NOT NULL,
		PRIMARY KEY (entry_id, tag_id),
		FOREIGN KEY (entry_id) REFERENCES entries (id) ON DELETE CASCADE,
		FOREIGN KEY (tag_id) REFERENCES tags (id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_entry_tags_tag ON entry_tags(tag_id)`,
}

// Tables lists the relations created by CreateSchema.
var Tables = []string{"entries", "tags", "entry_tags"}

// CreateSchema creates the journal tables inside one transaction.
// A failing statement rolls back everything already executed and the
// original cause is returned. Idempotent.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	return createSchema(ctx, db, schemaStatements)
}

func createSchema(ctx context.Context, db *sql.DB, statements []string) error {
	if db == nil {
		return apperr.New(apperr.KindState, "create schema", "database is not open")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindIO, "create schema", fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return apperr.Wrap(apperr.KindIO, "create schema", fmt.Errorf("statement %d: %w", i, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindIO, "create schema", fmt.Errorf("commit: %w", err))
	}
	return nil
}
