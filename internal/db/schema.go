package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the tables on startup when they do not exist yet.
// The email uniqueness constraint is the one concurrency-sensitive invariant:
// of two racing registrations with the same address exactly one insert wins.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            UUID PRIMARY KEY,
			email         TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			name          TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (LOWER(email))`,
		`CREATE TABLE IF NOT EXISTS notebooks (
			id         UUID PRIMARY KEY,
			user_id    UUID NOT NULL REFERENCES users(id),
			title      TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS notebooks_user_created_idx ON notebooks (user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS pages (
			id          UUID PRIMARY KEY,
			notebook_id UUID NOT NULL REFERENCES notebooks(id),
			title       TEXT NOT NULL,
			content     TEXT NOT NULL DEFAULT '',
			attachments JSONB NOT NULL DEFAULT '[]',
			manual_tags JSONB NOT NULL DEFAULT '[]',
			ai_tags     JSONB NOT NULL DEFAULT '[]',
			summary     TEXT,
			archived    BOOLEAN NOT NULL DEFAULT FALSE,
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS pages_notebook_created_idx ON pages (notebook_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS pages_created_idx ON pages (created_at DESC)`,
	}

	for _, stmt := range statements {
		_, err := pool.Exec(ctx, stmt)

		if err != nil {
			return err
		}
	}

	return nil
}
