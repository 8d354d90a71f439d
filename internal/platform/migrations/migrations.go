// Package migrations applies the embedded database schema in order. The
// statements are idempotent so Apply can run on every startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS sa_users (
		id TEXT PRIMARY KEY,
		np TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		last_login TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS sa_reward_items (
		id SERIAL PRIMARY KEY,
		product_id INTEGER NOT NULL DEFAULT 0,
		sku TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		details TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		size TEXT NOT NULL DEFAULT '',
		points_cost INTEGER NOT NULL DEFAULT 0,
		stock_initial INTEGER NOT NULL DEFAULT 0,
		image_url TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		tags TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS sa_point_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		status TEXT NOT NULL,
		origin TEXT NOT NULL DEFAULT '',
		reference TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		moved_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		recorded_by TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS sa_movements (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		variant_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL DEFAULT 0,
		sku TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL,
		points_total INTEGER NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sa_point_entries_user ON sa_point_entries (user_id, moved_at)`,
	`CREATE INDEX IF NOT EXISTS idx_sa_movements_variant ON sa_movements (variant_id, status)`,
}

// Apply executes every migration statement in order against db.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}
	return nil
}
