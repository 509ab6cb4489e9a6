package db

import (
	"context"
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS departments (
		id               BIGSERIAL PRIMARY KEY,
		name             TEXT NOT NULL,
		emails           TEXT[] NOT NULL DEFAULT '{}',
		telegram_chat_id BIGINT NOT NULL DEFAULT 0,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS requirements (
		id                          BIGSERIAL PRIMARY KEY,
		department_id               BIGINT NOT NULL REFERENCES departments(id) ON DELETE CASCADE,
		title                       TEXT NOT NULL,
		title_ar                    TEXT NOT NULL DEFAULT '',
		description                 TEXT NOT NULL DEFAULT '',
		order_index                 INT NOT NULL DEFAULT 0,
		prerequisite_requirement_id BIGINT REFERENCES requirements(id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id                  BIGSERIAL PRIMARY KEY,
		name                TEXT NOT NULL,
		name_ar             TEXT NOT NULL DEFAULT '',
		description         TEXT NOT NULL DEFAULT '',
		location            TEXT NOT NULL DEFAULT '',
		start_date          TIMESTAMPTZ NOT NULL,
		end_date            TIMESTAMPTZ,
		reminder_1_week     BOOLEAN NOT NULL DEFAULT FALSE,
		reminder_1_day      BOOLEAN NOT NULL DEFAULT FALSE,
		reminder_weekly     BOOLEAN NOT NULL DEFAULT FALSE,
		reminder_daily      BOOLEAN NOT NULL DEFAULT FALSE,
		reminder_morning_of BOOLEAN NOT NULL DEFAULT FALSE,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS event_departments (
		id                  BIGSERIAL PRIMARY KEY,
		event_id            BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		department_id       BIGINT NOT NULL REFERENCES departments(id),
		requirement_ids     BIGINT[] NOT NULL DEFAULT '{}',
		custom_requirements TEXT NOT NULL DEFAULT '',
		notify_on_create    BOOLEAN NOT NULL DEFAULT TRUE,
		notify_on_update    BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (event_id, department_id)
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id                   BIGSERIAL PRIMARY KEY,
		event_department_id  BIGINT NOT NULL REFERENCES event_departments(id) ON DELETE CASCADE,
		title                TEXT NOT NULL,
		title_ar             TEXT NOT NULL DEFAULT '',
		description          TEXT NOT NULL DEFAULT '',
		status               TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending','waiting','in_progress','completed','cancelled')),
		deadline             TIMESTAMPTZ,
		order_index          INT NOT NULL DEFAULT 0,
		prerequisite_task_id BIGINT REFERENCES tasks(id) ON DELETE SET NULL,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_prerequisite ON tasks(prerequisite_task_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_assignment ON tasks(event_department_id, order_index)`,
	`CREATE TABLE IF NOT EXISTS reminders (
		id               BIGSERIAL PRIMARY KEY,
		event_id         BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		reminder_type    TEXT NOT NULL
			CHECK (reminder_type IN ('1_week','1_day','weekly','daily','morning_of')),
		fire_at          TIMESTAMPTZ NOT NULL,
		anchor           TIMESTAMPTZ,
		cadence_seconds  BIGINT NOT NULL DEFAULT 0,
		until_at         TIMESTAMPTZ,
		status           TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','sent')),
		last_sent_at     TIMESTAMPTZ,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (event_id, reminder_type)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(status, fire_at)`,
	`CREATE TABLE IF NOT EXISTS app_settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// Migrate runs all schema statements. Every statement is idempotent.
func Migrate(ctx context.Context, conn *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
