package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/nandanugg/autotimer/module/core/domain"
	"github.com/nandanugg/autotimer/module/core/internal/repository/database"
)

var _ database.TransitionLogRepository = (*TransitionLogRepo)(nil)

type TransitionLogRepo struct {
	db *sql.DB
}

func NewTransitionLogRepo(db *sql.DB) *TransitionLogRepo {
	return &TransitionLogRepo{db: db}
}

// Append inserts records and trims the log to the newest keep entries.
func (r *TransitionLogRepo) Append(ctx context.Context, records []domain.TransitionRecord, keep int) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transition_log (id, geofence_id, label, kind, occurred_at) VALUES ($1, $2, $3, $4, $5)`,
			rec.ID, rec.GeofenceID, rec.Label, string(rec.Kind), rec.OccurredAt,
		); err != nil {
			return fmt.Errorf("insert transition: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transition_log WHERE id NOT IN (SELECT id FROM transition_log ORDER BY occurred_at DESC, recorded_at DESC LIMIT $1)`,
		keep,
	); err != nil {
		return fmt.Errorf("trim transitions: %w", err)
	}

	return tx.Commit()
}

func (r *TransitionLogRepo) List(ctx context.Context) ([]domain.TransitionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, geofence_id, label, kind, occurred_at FROM transition_log ORDER BY occurred_at ASC, recorded_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.TransitionRecord
	for rows.Next() {
		var (
			rec  domain.TransitionRecord
			kind string
		)
		if err := rows.Scan(&rec.ID, &rec.GeofenceID, &rec.Label, &kind, &rec.OccurredAt); err != nil {
			return nil, err
		}
		rec.Kind = domain.TransitionKind(kind)
		results = append(results, rec)
	}
	return results, rows.Err()
}
