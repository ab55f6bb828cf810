package postgres

// schema se aplica en orden por Migrate. Todas las sentencias son idempotentes.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS app_user (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		password_hash TEXT NOT NULL DEFAULT '',
		nickname      TEXT NOT NULL DEFAULT '',
		avatar        TEXT NOT NULL DEFAULT '',
		email         TEXT,
		phone         TEXT,
		market        TEXT NOT NULL DEFAULT '',
		state         SMALLINT NOT NULL DEFAULT 2,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_app_user_name ON app_user (lower(name))`,

	`CREATE TABLE IF NOT EXISTS user_group (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		nickname      TEXT NOT NULL DEFAULT '',
		avatar        TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL DEFAULT '',
		owner_site_id TEXT NOT NULL DEFAULT '',
		visibility    SMALLINT NOT NULL DEFAULT 0,
		state         SMALLINT NOT NULL DEFAULT 2,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS user_group_rel (
		id         TEXT PRIMARY KEY,
		group_id   TEXT NOT NULL,
		user_id    TEXT NOT NULL,
		role       SMALLINT NOT NULL DEFAULT 1,
		state      SMALLINT NOT NULL DEFAULT 2,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (group_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS ix_user_group_rel_user ON user_group_rel (user_id)`,

	`CREATE TABLE IF NOT EXISTS accessing_client (
		id                  TEXT PRIMARY KEY,
		name                TEXT NOT NULL UNIQUE,
		nickname            TEXT NOT NULL DEFAULT '',
		credential_key_hash TEXT NOT NULL DEFAULT '',
		state               SMALLINT NOT NULL DEFAULT 2,
		created_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS access_token (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL UNIQUE,
		refresh_token TEXT,
		user_id       TEXT,
		client_id     TEXT,
		grant_type    TEXT NOT NULL DEFAULT '',
		scope         TEXT NOT NULL DEFAULT '',
		expires_at    TIMESTAMPTZ NOT NULL,
		state         SMALLINT NOT NULL DEFAULT 2,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_access_token_refresh ON access_token (refresh_token)`,
	`CREATE INDEX IF NOT EXISTS ix_access_token_user ON access_token (user_id)`,
	`CREATE INDEX IF NOT EXISTS ix_access_token_client ON access_token (client_id)`,

	`CREATE TABLE IF NOT EXISTS authorization_code (
		id               TEXT PRIMARY KEY,
		service_provider TEXT NOT NULL,
		code_hash        TEXT NOT NULL,
		owner_type       SMALLINT NOT NULL,
		owner_id         TEXT NOT NULL,
		name             TEXT NOT NULL DEFAULT '',
		avatar           TEXT NOT NULL DEFAULT '',
		description      TEXT NOT NULL DEFAULT '',
		state            SMALLINT NOT NULL DEFAULT 2,
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_authorization_code_code ON authorization_code (service_provider, code_hash)`,
	`CREATE INDEX IF NOT EXISTS ix_authorization_code_owner ON authorization_code (service_provider, owner_type, owner_id)`,

	`CREATE TABLE IF NOT EXISTS permission_item (
		id          TEXT PRIMARY KEY,
		site_id     TEXT NOT NULL DEFAULT '',
		target_type SMALLINT NOT NULL,
		target_id   TEXT NOT NULL,
		permissions TEXT NOT NULL DEFAULT '',
		state       SMALLINT NOT NULL DEFAULT 2,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL,
		UNIQUE (site_id, target_type, target_id)
	)`,

	`CREATE TABLE IF NOT EXISTS site_settings (
		id         TEXT PRIMARY KEY,
		site_id    TEXT NOT NULL DEFAULT '',
		key        TEXT NOT NULL,
		value      TEXT NOT NULL DEFAULT '',
		state      SMALLINT NOT NULL DEFAULT 2,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (site_id, key)
	)`,
}
