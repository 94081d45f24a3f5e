package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// schema is the idempotent DDL for the message and user tables.
//
// messages is an append-only audit log: rows are never physically removed,
// deleted_at is the only removal marker. idx_messages_lookup serves the
// windowed history fetch and the soft delete; idx_messages_created serves
// global chronological scans; idx_messages_system_live enforces at most one
// live system row per conversation.
const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id BIGSERIAL PRIMARY KEY,
	chat_id BIGINT NOT NULL,
	user_id BIGINT NOT NULL,
	role VARCHAR(20) NOT NULL,
	content TEXT NOT NULL,
	content_length INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	deleted_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_lookup
	ON messages (chat_id, user_id, deleted_at, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_messages_created
	ON messages (created_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_system_live
	ON messages (chat_id, user_id)
	WHERE role = 'system' AND deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS users (
	user_id BIGINT PRIMARY KEY,
	username TEXT,
	first_name TEXT,
	last_name TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// RunMigrations applies the schema to the PostgreSQL database at the given
// URL. All statements are idempotent, so running at every startup is safe.
func RunMigrations(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, schema)
	return err
}
