package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is the full DDL for the service. The two vote uniqueness
// constraints are part of the durable contract: ballot admission relies on
// them for exactly-once semantics instead of application-level locking.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id                 UUID PRIMARY KEY,
    full_name          TEXT NOT NULL,
    email              TEXT NOT NULL UNIQUE,
    mobile             TEXT NOT NULL UNIQUE,
    password_hash      TEXT NOT NULL,
    role               TEXT NOT NULL,
    approval_status    TEXT NOT NULL DEFAULT 'PENDING',
    approval_note      TEXT,
    approved_at        TIMESTAMPTZ,
    approved_by        UUID,
    enrollment_id      TEXT UNIQUE,
    scholar_number     TEXT,
    department         TEXT,
    semester_or_year   TEXT,
    admin_id           TEXT UNIQUE,
    admin_type         TEXT,
    is_email_verified  BOOLEAN NOT NULL DEFAULT FALSE,
    is_mobile_verified BOOLEAN NOT NULL DEFAULT FALSE,
    is_active          BOOLEAN NOT NULL DEFAULT TRUE,
    last_login_at      TIMESTAMPTZ,
    reset_token_hash   TEXT,
    reset_expires_at   TIMESTAMPTZ,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_users_role_status ON users (role, approval_status);

CREATE TABLE IF NOT EXISTS elections (
    id                 UUID PRIMARY KEY,
    name               TEXT NOT NULL UNIQUE,
    description        TEXT,
    status             TEXT NOT NULL DEFAULT 'DRAFT',
    starts_at          TIMESTAMPTZ,
    ends_at            TIMESTAMPTZ,
    started_at         TIMESTAMPTZ,
    ended_at           TIMESTAMPTZ,
    auto_close_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    results_published  BOOLEAN NOT NULL DEFAULT FALSE,
    positions          JSONB NOT NULL DEFAULT '[]',
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_elections_status_ends ON elections (status, ends_at);

CREATE TABLE IF NOT EXISTS candidate_profiles (
    id           UUID PRIMARY KEY,
    user_id      UUID NOT NULL REFERENCES users (id),
    election_id  UUID NOT NULL REFERENCES elections (id),
    position_id  UUID NOT NULL,
    photo_url    TEXT,
    symbol_url   TEXT,
    manifesto    TEXT,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (user_id, election_id)
);

CREATE INDEX IF NOT EXISTS idx_profiles_election ON candidate_profiles (election_id);

CREATE TABLE IF NOT EXISTS votes (
    id            UUID PRIMARY KEY,
    election_id   UUID NOT NULL REFERENCES elections (id),
    voter_user_id UUID NOT NULL REFERENCES users (id),
    enrollment_id TEXT NOT NULL,
    selections    JSONB NOT NULL,
    ip            TEXT,
    user_agent    TEXT,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (election_id, voter_user_id),
    UNIQUE (election_id, enrollment_id)
);

CREATE TABLE IF NOT EXISTS audit_events (
    id          UUID PRIMARY KEY,
    actor_id    UUID,
    action      TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id   TEXT,
    meta        JSONB,
    ip          TEXT,
    user_agent  TEXT,
    occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_audit_occurred ON audit_events (occurred_at DESC);
`

// EnsureSchema applies the DDL. Statements are idempotent so startup can
// call this unconditionally.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
