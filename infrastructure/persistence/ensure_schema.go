package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const accountsDDL = `CREATE TABLE IF NOT EXISTS tiktok_accounts (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	open_id TEXT NOT NULL,
	username TEXT NOT NULL DEFAULT '',
	access_token_enc TEXT NOT NULL,
	refresh_token_enc TEXT NULL,
	expires_at TIMESTAMPTZ NULL,
	scopes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (user_id, open_id)
)`

const schedulesDDL = `CREATE TABLE IF NOT EXISTS tiktok_schedules (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	account_id TEXT NOT NULL,
	video_url TEXT NOT NULL DEFAULT '',
	video_key TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	hashtags TEXT NOT NULL DEFAULT '[]',
	settings TEXT NOT NULL DEFAULT '{}',
	scheduled_at TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL DEFAULT 'queued',
	publish_id TEXT NULL,
	tiktok_url TEXT NULL,
	last_error TEXT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// EnsureSchema creates the account and schedule tables and adds columns
// introduced after the first release. Safe to call at startup.
func EnsureSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, ddl := range []string{
		accountsDDL,
		schedulesDDL,
		`CREATE INDEX IF NOT EXISTS ix_tiktok_schedules_due ON tiktok_schedules (status, scheduled_at)`,
	} {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	checks := []struct {
		table  string
		column string
		ddl    string
	}{
		{"tiktok_accounts", "refresh_expires_at", "ALTER TABLE tiktok_accounts ADD COLUMN refresh_expires_at TIMESTAMPTZ NULL"},
	}
	for _, c := range checks {
		exists, err := columnExists(ctx, db, c.table, c.column)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := db.ExecContext(ctx, c.ddl); err != nil {
				return fmt.Errorf("adding column %s.%s failed: %w", c.table, c.column, err)
			}
		}
	}
	return nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	row := db.QueryRowContext(ctx, `SELECT 1 FROM information_schema.columns WHERE table_name=$1 AND column_name=$2`, table, column)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
