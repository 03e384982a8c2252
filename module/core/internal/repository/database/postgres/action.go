package postgres

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nandanugg/autotimer/module/core/domain"
	"github.com/nandanugg/autotimer/module/core/internal/repository/database"
)

var _ database.ActionRepository = (*ActionRepo)(nil)

type ActionRepo struct {
	db *sql.DB
}

func NewActionRepo(db *sql.DB) *ActionRepo {
	return &ActionRepo{db: db}
}

func (r *ActionRepo) Add(ctx context.Context, action *domain.PendingAction) error {
	if action.ID == "" {
		action.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pending_actions (id, geofence_id, label, action, scheduled_at, delay_ms) VALUES ($1, $2, $3, $4, $5, $6)`,
		action.ID, action.GeofenceID, action.Label, string(action.Action), action.ScheduledAt, action.Delay.Milliseconds(),
	)
	return err
}

func (r *ActionRepo) Cancel(ctx context.Context, geofenceID string, action domain.TimerAction) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM pending_actions WHERE geofence_id = $1 AND action = $2`,
		geofenceID, string(action),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TakeDue removes and returns every action scheduled at or before now, so a
// due action is handed out at most once.
func (r *ActionRepo) TakeDue(ctx context.Context, now time.Time) ([]domain.PendingAction, error) {
	rows, err := r.db.QueryContext(ctx,
		`DELETE FROM pending_actions WHERE scheduled_at <= $1 RETURNING id, geofence_id, label, action, scheduled_at, delay_ms`,
		now,
	)
	if err != nil {
		return nil, err
	}
	return scanActions(rows)
}

// TakeAll removes and returns every pending action.
func (r *ActionRepo) TakeAll(ctx context.Context) ([]domain.PendingAction, error) {
	rows, err := r.db.QueryContext(ctx,
		`DELETE FROM pending_actions RETURNING id, geofence_id, label, action, scheduled_at, delay_ms`,
	)
	if err != nil {
		return nil, err
	}
	return scanActions(rows)
}

func scanActions(rows *sql.Rows) ([]domain.PendingAction, error) {
	defer func() { _ = rows.Close() }()

	var results []domain.PendingAction
	for rows.Next() {
		var (
			a       domain.PendingAction
			action  string
			delayMS int64
		)
		if err := rows.Scan(&a.ID, &a.GeofenceID, &a.Label, &action, &a.ScheduledAt, &delayMS); err != nil {
			return nil, err
		}
		a.Action = domain.TimerAction(action)
		a.Delay = time.Duration(delayMS) * time.Millisecond
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ScheduledAt.Before(results[j].ScheduledAt)
	})
	return results, nil
}

func (r *ActionRepo) RemoveAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_actions`)
	return err
}
