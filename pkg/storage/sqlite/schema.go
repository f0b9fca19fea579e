package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS resources (
		id         TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		url        TEXT NOT NULL,
		modality   TEXT NOT NULL,
		local_path TEXT NOT NULL DEFAULT '',
		caption    TEXT,
		embedding  BLOB
	)`,
	`CREATE TABLE IF NOT EXISTS memory_items (
		id           TEXT PRIMARY KEY,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL,
		resource_id  TEXT,
		memory_type  TEXT NOT NULL,
		summary      TEXT NOT NULL,
		embedding    BLOB,
		happened_at  TEXT,
		content_hash TEXT NOT NULL,
		extra        TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE INDEX IF NOT EXISTS ix_memory_items_content_hash ON memory_items(content_hash)`,
	`CREATE TABLE IF NOT EXISTS memory_categories (
		id          TEXT PRIMARY KEY,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		name        TEXT NOT NULL,
		description TEXT NOT NULL,
		embedding   BLOB,
		summary     TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ix_memory_categories_name ON memory_categories(name)`,
	`CREATE TABLE IF NOT EXISTS category_items (
		id          TEXT PRIMARY KEY,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		item_id     TEXT NOT NULL REFERENCES memory_items(id),
		category_id TEXT NOT NULL REFERENCES memory_categories(id)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_category_items_unique ON category_items(item_id, category_id)`,
}

// migrate applies the schema. Every statement is idempotent.
func migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}
	return nil
}
