package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nandanugg/autotimer/module/core/domain"
	"github.com/nandanugg/autotimer/module/core/internal/repository/database"
)

var _ database.StatusRepository = (*StatusRepo)(nil)

type StatusRepo struct {
	db *sql.DB
}

func NewStatusRepo(db *sql.DB) *StatusRepo {
	return &StatusRepo{db: db}
}

func (r *StatusRepo) Get(ctx context.Context, geofenceID string) (*domain.GeofenceStatus, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT geofence_id, is_inside, last_update FROM geofence_statuses WHERE geofence_id = $1`,
		geofenceID,
	)

	var s domain.GeofenceStatus
	if err := row.Scan(&s.GeofenceID, &s.IsInside, &s.LastUpdate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrStatusNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Put is a single upsert so concurrent writers on one id never interleave.
func (r *StatusRepo) Put(ctx context.Context, status *domain.GeofenceStatus) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO geofence_statuses (geofence_id, is_inside, last_update) VALUES ($1, $2, $3)
		ON CONFLICT (geofence_id) DO UPDATE SET is_inside = EXCLUDED.is_inside, last_update = EXCLUDED.last_update`,
		status.GeofenceID, status.IsInside, status.LastUpdate,
	)
	return err
}

func (r *StatusRepo) GetAll(ctx context.Context) ([]domain.GeofenceStatus, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT geofence_id, is_inside, last_update FROM geofence_statuses ORDER BY geofence_id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.GeofenceStatus
	for rows.Next() {
		var s domain.GeofenceStatus
		if err := rows.Scan(&s.GeofenceID, &s.IsInside, &s.LastUpdate); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}

func (r *StatusRepo) Remove(ctx context.Context, geofenceID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM geofence_statuses WHERE geofence_id = $1`, geofenceID)
	return err
}

func (r *StatusRepo) RemoveAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM geofence_statuses`)
	return err
}
