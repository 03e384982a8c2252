package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS geofence_statuses (
	geofence_id TEXT PRIMARY KEY,
	is_inside   BOOLEAN NOT NULL,
	last_update TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS pending_actions (
	id           UUID PRIMARY KEY,
	geofence_id  TEXT NOT NULL,
	label        TEXT NOT NULL,
	action       TEXT NOT NULL CHECK (action IN ('start', 'stop')),
	scheduled_at TIMESTAMPTZ NOT NULL,
	delay_ms     BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS pending_actions_scheduled_at_idx ON pending_actions (scheduled_at);

CREATE TABLE IF NOT EXISTS active_session (
	id          SMALLINT PRIMARY KEY CHECK (id = 1),
	geofence_id TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	notes       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS work_days (
	id          UUID PRIMARY KEY,
	work_date   DATE NOT NULL,
	geofence_id TEXT NOT NULL,
	hours       DOUBLE PRECISION NOT NULL,
	notes       TEXT NOT NULL DEFAULT '',
	overtime    BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS transition_log (
	id          UUID PRIMARY KEY,
	geofence_id TEXT NOT NULL,
	label       TEXT NOT NULL,
	kind        TEXT NOT NULL CHECK (kind IN ('enter', 'exit')),
	occurred_at TIMESTAMPTZ NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS location_samples (
	device_id   TEXT NOT NULL,
	latitude    DOUBLE PRECISION NOT NULL,
	longitude   DOUBLE PRECISION NOT NULL,
	accuracy    DOUBLE PRECISION,
	captured_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS location_samples_device_captured_idx ON location_samples (device_id, captured_at);

CREATE TABLE IF NOT EXISTS notification_settings (
	id                    SMALLINT PRIMARY KEY CHECK (id = 1),
	notifications_enabled BOOLEAN NOT NULL,
	auto_timer_enabled    BOOLEAN NOT NULL
);
`

func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
