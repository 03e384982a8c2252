package postgres

import (
	"context"
	"database/sql"

	"github.com/nandanugg/autotimer/module/core/domain"
	"github.com/nandanugg/autotimer/module/core/internal/repository/database"
)

var _ database.SampleRepository = (*SampleRepo)(nil)

type SampleRepo struct {
	db *sql.DB
}

func NewSampleRepo(db *sql.DB) *SampleRepo {
	return &SampleRepo{db: db}
}

func (r *SampleRepo) Insert(ctx context.Context, rec *domain.SampleRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO location_samples (device_id, latitude, longitude, accuracy, captured_at) VALUES ($1, $2, $3, $4, $5)`,
		rec.DeviceID, rec.Lat, rec.Lon, nullFloat(rec.AccuracyMeters), rec.CapturedAt,
	)
	return err
}

func (r *SampleRepo) GetLatest(ctx context.Context, deviceID string) (*domain.SampleRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT device_id, latitude, longitude, accuracy, captured_at FROM location_samples WHERE device_id = $1 ORDER BY captured_at DESC LIMIT 1`,
		deviceID,
	)

	var (
		rec      domain.SampleRecord
		accuracy sql.NullFloat64
	)
	if err := row.Scan(&rec.DeviceID, &rec.Lat, &rec.Lon, &accuracy, &rec.CapturedAt); err != nil {
		return nil, err
	}
	rec.AccuracyMeters = floatPtr(accuracy)
	return &rec, nil
}

func (r *SampleRepo) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.SampleRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT device_id, latitude, longitude, accuracy, captured_at FROM location_samples WHERE device_id = $1 AND captured_at >= $2 AND captured_at <= $3 ORDER BY captured_at ASC`,
		query.DeviceID, query.Start, query.End,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.SampleRecord
	for rows.Next() {
		var (
			rec      domain.SampleRecord
			accuracy sql.NullFloat64
		)
		if err := rows.Scan(&rec.DeviceID, &rec.Lat, &rec.Lon, &accuracy, &rec.CapturedAt); err != nil {
			return nil, err
		}
		rec.AccuracyMeters = floatPtr(accuracy)
		results = append(results, rec)
	}
	return results, rows.Err()
}

func (r *SampleRepo) GetDevices(ctx context.Context) ([]domain.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT device_id FROM location_samples ORDER BY device_id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Device
	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.DeviceID); err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
