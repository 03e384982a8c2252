package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nandanugg/autotimer/module/core/domain"
	"github.com/nandanugg/autotimer/module/core/internal/repository/database"
)

var _ database.SettingsRepository = (*SettingsRepo)(nil)

type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get falls back to domain.DefaultSettings until settings are first saved.
func (r *SettingsRepo) Get(ctx context.Context) (domain.Settings, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT notifications_enabled, auto_timer_enabled FROM notification_settings WHERE id = 1`,
	)

	var s domain.Settings
	if err := row.Scan(&s.NotificationsEnabled, &s.AutoTimerEnabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DefaultSettings(), nil
		}
		return domain.Settings{}, err
	}
	return s, nil
}

func (r *SettingsRepo) Put(ctx context.Context, settings domain.Settings) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notification_settings (id, notifications_enabled, auto_timer_enabled) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET notifications_enabled = EXCLUDED.notifications_enabled, auto_timer_enabled = EXCLUDED.auto_timer_enabled`,
		settings.NotificationsEnabled, settings.AutoTimerEnabled,
	)
	return err
}
