package pg

import "context"

// Schema owned by this subsystem. app_user belongs to the directory app and
// is shown here only for the columns auth depends on.
const schema = `
CREATE TABLE IF NOT EXISTS app_user (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT,
    role          TEXT NOT NULL DEFAULT 'user',
    last_login_at TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS linked_account (
    id                  TEXT PRIMARY KEY,
    user_id             TEXT NOT NULL REFERENCES app_user(id) ON DELETE CASCADE,
    provider            TEXT NOT NULL,
    provider_account_id TEXT NOT NULL,
    email               TEXT,
    display_name        TEXT,
    picture_url         TEXT,
    metadata            JSONB NOT NULL DEFAULT '{}'::jsonb,
    scope               TEXT[] NOT NULL DEFAULT '{}',
    last_used_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (provider, provider_account_id),
    UNIQUE (user_id, provider)
);

CREATE TABLE IF NOT EXISTS oauth_token (
    account_id           TEXT PRIMARY KEY REFERENCES linked_account(id) ON DELETE CASCADE,
    access_token_cipher  TEXT NOT NULL,
    refresh_token_cipher TEXT,
    token_type           TEXT NOT NULL DEFAULT 'Bearer',
    scope                TEXT[] NOT NULL DEFAULT '{}',
    expires_at           TIMESTAMPTZ,
    last_refreshed_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    refresh_fail_count   INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS oauth_flow_state (
    state          TEXT PRIMARY KEY,
    provider       TEXT NOT NULL,
    code_verifier  TEXT NOT NULL,
    code_challenge TEXT NOT NULL,
    link_user_id   TEXT,
    redirect_url   TEXT,
    remote_addr    TEXT,
    user_agent     TEXT,
    expires_at     TIMESTAMPTZ NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS oauth_flow_state_expires_idx ON oauth_flow_state (expires_at);

CREATE TABLE IF NOT EXISTS audit_log (
    id         TEXT PRIMARY KEY,
    event      TEXT NOT NULL,
    user_id    TEXT,
    provider   TEXT,
    detail     JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate applies the schema. Idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}
