package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/nandanugg/autotimer/module/core/domain"
	"github.com/nandanugg/autotimer/module/core/internal/repository/database"
)

var _ database.WorkDayRepository = (*WorkDayRepo)(nil)

type WorkDayRepo struct {
	db *sql.DB
}

func NewWorkDayRepo(db *sql.DB) *WorkDayRepo {
	return &WorkDayRepo{db: db}
}

func (r *WorkDayRepo) Insert(ctx context.Context, day *domain.WorkDay) error {
	if day.ID == "" {
		day.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO work_days (id, work_date, geofence_id, hours, notes, overtime) VALUES ($1, $2, $3, $4, $5, $6)`,
		day.ID, day.Date, day.GeofenceID, day.Hours, day.Notes, day.Overtime,
	)
	return err
}

func (r *WorkDayRepo) List(ctx context.Context, limit int) ([]domain.WorkDay, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, work_date, geofence_id, hours, notes, overtime FROM work_days ORDER BY work_date DESC, id LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.WorkDay
	for rows.Next() {
		var d domain.WorkDay
		if err := rows.Scan(&d.ID, &d.Date, &d.GeofenceID, &d.Hours, &d.Notes, &d.Overtime); err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}
