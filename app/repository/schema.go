package repository

import (
	"context"
	"fmt"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS payment_requests (
		id BIGINT UNSIGNED NOT NULL PRIMARY KEY,
		submitter_id BIGINT NOT NULL,
		submitter_handle VARCHAR(255) NULL,
		plan_code VARCHAR(50) NOT NULL,
		proof_text TEXT NULL,
		proof_photo_ref VARCHAR(300) NULL,
		proof_document_ref VARCHAR(300) NULL,
		locale VARCHAR(10) NOT NULL,
		status VARCHAR(20) NOT NULL,
		decided_at DATETIME(6) NULL,
		reviewer_id BIGINT NULL,
		credential VARCHAR(512) NULL,
		reviewer_notified_at DATETIME(6) NULL,
		submitter_notified_at DATETIME(6) NULL,
		version BIGINT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		KEY idx_payment_requests_status_created (status, created_at),
		KEY idx_payment_requests_submitter (submitter_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS payment_events (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		payment_id BIGINT UNSIGNED NOT NULL,
		event_type VARCHAR(64) NOT NULL,
		old_status VARCHAR(20) NULL,
		new_status VARCHAR(20) NOT NULL,
		actor_id BIGINT NULL,
		detail TEXT NULL,
		created_at DATETIME(6) NOT NULL,
		KEY idx_payment_events_payment (payment_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS payment_requests (
		id BIGINT PRIMARY KEY,
		submitter_id BIGINT NOT NULL,
		submitter_handle VARCHAR(255),
		plan_code VARCHAR(50) NOT NULL,
		proof_text TEXT,
		proof_photo_ref VARCHAR(300),
		proof_document_ref VARCHAR(300),
		locale VARCHAR(10) NOT NULL,
		status VARCHAR(20) NOT NULL,
		decided_at TIMESTAMPTZ,
		reviewer_id BIGINT,
		credential VARCHAR(512),
		reviewer_notified_at TIMESTAMPTZ,
		submitter_notified_at TIMESTAMPTZ,
		version BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_requests_status_created ON payment_requests (status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_requests_submitter ON payment_requests (submitter_id)`,
	`CREATE TABLE IF NOT EXISTS payment_events (
		id BIGSERIAL PRIMARY KEY,
		payment_id BIGINT NOT NULL,
		event_type VARCHAR(64) NOT NULL,
		old_status VARCHAR(20),
		new_status VARCHAR(20) NOT NULL,
		actor_id BIGINT,
		detail TEXT,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_events_payment ON payment_events (payment_id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS payment_requests (
		id INTEGER PRIMARY KEY,
		submitter_id INTEGER NOT NULL,
		submitter_handle TEXT,
		plan_code TEXT NOT NULL,
		proof_text TEXT,
		proof_photo_ref TEXT,
		proof_document_ref TEXT,
		locale TEXT NOT NULL,
		status TEXT NOT NULL,
		decided_at DATETIME,
		reviewer_id INTEGER,
		credential TEXT,
		reviewer_notified_at DATETIME,
		submitter_notified_at DATETIME,
		version INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_requests_status_created ON payment_requests (status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_requests_submitter ON payment_requests (submitter_id)`,
	`CREATE TABLE IF NOT EXISTS payment_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		payment_id INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		old_status TEXT,
		new_status TEXT NOT NULL,
		actor_id INTEGER,
		detail TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_events_payment ON payment_events (payment_id)`,
}

// Migrate creates the tables the repositories need. Every statement is
// idempotent, so it is safe to run on every start.
func Migrate(ctx context.Context, db DBTX, dialect Dialect) error {
	var statements []string
	switch dialect.Driver {
	case DriverMySQL:
		statements = mysqlSchema
	case DriverPostgres:
		statements = postgresSchema
	case DriverSQLite:
		statements = sqliteSchema
	default:
		return fmt.Errorf("no schema for driver %q", dialect.Driver)
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", dialect.Driver, err)
		}
	}
	return nil
}
