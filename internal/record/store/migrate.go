package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open connects to PostgreSQL through the pgx stdlib driver with pool
// defaults suitable for this service.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// migrations are applied in order; each entry runs at most once, tracked in
// schema_migrations by its index-based version.
var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS records (
	id             UUID PRIMARY KEY,
	owner_id       UUID NOT NULL,
	status         TEXT NOT NULL,
	name           TEXT NOT NULL DEFAULT '',
	summary        TEXT NOT NULL DEFAULT '',
	story          TEXT NOT NULL DEFAULT '',
	background     TEXT NOT NULL DEFAULT '',
	contact_name   TEXT NOT NULL DEFAULT '',
	contact_email  TEXT NOT NULL DEFAULT '',
	contact_phone  TEXT NOT NULL DEFAULT '',
	address        TEXT NOT NULL DEFAULT '',
	city           TEXT NOT NULL DEFAULT '',
	household_size TEXT NOT NULL DEFAULT '',
	housing_type   TEXT NOT NULL DEFAULT '',
	needs_note     TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sections (
	id           UUID PRIMARY KEY,
	record_id    UUID NOT NULL REFERENCES records(id) ON DELETE CASCADE,
	key          TEXT NOT NULL,
	status       TEXT NOT NULL,
	submitted_at TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	UNIQUE (record_id, key)
);

CREATE TABLE IF NOT EXISTS section_files (
	section_id   UUID NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
	file_id      UUID NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	position     INT NOT NULL,
	PRIMARY KEY (section_id, file_id)
);

CREATE TABLE IF NOT EXISTS type_items (
	record_id  UUID NOT NULL REFERENCES records(id) ON DELETE CASCADE,
	collection TEXT NOT NULL,
	code       TEXT NOT NULL,
	position   INT NOT NULL,
	created_by UUID NOT NULL,
	updated_by UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ,
	PRIMARY KEY (record_id, collection, position)
);

CREATE TABLE IF NOT EXISTS dependency_items (
	id         UUID PRIMARY KEY,
	record_id  UUID NOT NULL REFERENCES records(id) ON DELETE CASCADE,
	collection TEXT NOT NULL,
	position   INT NOT NULL,
	fields     JSONB NOT NULL DEFAULT '{}',
	created_by UUID NOT NULL,
	updated_by UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS dependency_item_types (
	item_id    UUID NOT NULL REFERENCES dependency_items(id) ON DELETE CASCADE,
	collection TEXT NOT NULL,
	code       TEXT NOT NULL,
	position   INT NOT NULL,
	created_by UUID NOT NULL,
	updated_by UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ,
	PRIMARY KEY (item_id, collection, position)
);

CREATE TABLE IF NOT EXISTS dependency_item_files (
	item_id      UUID NOT NULL REFERENCES dependency_items(id) ON DELETE CASCADE,
	file_id      UUID NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	position     INT NOT NULL,
	PRIMARY KEY (item_id, file_id)
);

CREATE TABLE IF NOT EXISTS actions (
	id          UUID PRIMARY KEY,
	record_id   UUID NOT NULL REFERENCES records(id) ON DELETE CASCADE,
	section_key TEXT NOT NULL,
	section_id  UUID,
	status      TEXT NOT NULL,
	created_by  UUID NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_entries (
	id          BIGSERIAL PRIMARY KEY,
	actor_id    UUID NOT NULL,
	record_id   UUID NOT NULL,
	kind        TEXT NOT NULL,
	metadata    JSONB NOT NULL DEFAULT '{}',
	occurred_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id           BIGSERIAL PRIMARY KEY,
	actor_id     UUID NOT NULL,
	audience     TEXT NOT NULL,
	record_id    UUID NOT NULL,
	context_type TEXT NOT NULL,
	context_id   TEXT NOT NULL DEFAULT '',
	subject_id   TEXT NOT NULL DEFAULT '',
	metadata     JSONB NOT NULL DEFAULT '{}',
	target_id    UUID NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);
`,
}

// Migrate applies every pending migration inside its own transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	for version, ddl := range migrations {
		var exists bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", version, err)
		}
		if exists {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", version, err)
		}
	}
	return nil
}
