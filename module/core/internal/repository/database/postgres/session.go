package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nandanugg/autotimer/module/core/domain"
	"github.com/nandanugg/autotimer/module/core/internal/repository/database"
)

var _ database.SessionRepository = (*SessionRepo)(nil)

// SessionRepo keeps the single running timer in a one-row table.
type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Get(ctx context.Context) (*domain.ActiveSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT geofence_id, started_at, notes FROM active_session WHERE id = 1`,
	)

	var s domain.ActiveSession
	if err := row.Scan(&s.GeofenceID, &s.StartedAt, &s.Notes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepo) Save(ctx context.Context, session *domain.ActiveSession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO active_session (id, geofence_id, started_at, notes) VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET geofence_id = EXCLUDED.geofence_id, started_at = EXCLUDED.started_at, notes = EXCLUDED.notes`,
		session.GeofenceID, session.StartedAt, session.Notes,
	)
	return err
}

func (r *SessionRepo) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM active_session WHERE id = 1`)
	return err
}
