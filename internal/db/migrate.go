package db

import (
	"context"
	"database/sql"
)

const usersMigration = `
CREATE TABLE IF NOT EXISTS users (
    id bigserial PRIMARY KEY,
    username text NOT NULL,
    email text NOT NULL,
    subject_id text,
    first_name text NOT NULL DEFAULT '',
    last_name text NOT NULL DEFAULT '',
    phone_number text NOT NULL DEFAULT '',
    country text NOT NULL DEFAULT '',
    city text NOT NULL DEFAULT '',
    state text NOT NULL DEFAULT '',
    street_address text NOT NULL DEFAULT '',
    postal_code text NOT NULL DEFAULT '',
    role text NOT NULL DEFAULT 'USER',
    is_active boolean NOT NULL DEFAULT true,
    is_verified boolean NOT NULL DEFAULT false,
    password_hash text NOT NULL,
    last_login_at timestamptz,
    is_deleted boolean NOT NULL DEFAULT false,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

-- Uniqueness applies to live records only; soft-deleted rows keep the
-- name claimed through the all-time existence queries instead.
CREATE UNIQUE INDEX IF NOT EXISTS users_username_live_unique
ON users (LOWER(username)) WHERE NOT is_deleted;

CREATE UNIQUE INDEX IF NOT EXISTS users_email_live_unique
ON users (LOWER(email)) WHERE NOT is_deleted;

CREATE UNIQUE INDEX IF NOT EXISTS users_subject_id_live_unique
ON users (subject_id) WHERE subject_id IS NOT NULL AND NOT is_deleted;
`

func RunMigration(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, usersMigration)
	return err
}
