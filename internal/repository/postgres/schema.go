package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateTables creates the schema if it does not exist yet. Receipts carry a
// composite primary key so at most one row per (event, threshold) pair can
// ever exist.
func CreateTables(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			telegram_id BIGINT PRIMARY KEY,
			full_name TEXT NOT NULL,
			department TEXT NOT NULL,
			phone TEXT NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			event_date TEXT NOT NULL,
			event_time TEXT NOT NULL,
			place TEXT NOT NULL,
			comment TEXT,
			created_by BIGINT NOT NULL REFERENCES users(telegram_id),
			cancelled BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS reminder_receipts (
			event_id BIGINT NOT NULL REFERENCES events(id),
			kind TEXT NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (event_id, kind)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_cancelled ON events (cancelled)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}
