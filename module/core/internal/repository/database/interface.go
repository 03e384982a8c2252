package database

import (
	"context"
	"time"

	"github.com/nandanugg/autotimer/module/core/domain"
)

// StatusRepository owns the durable geofence status table. Get returns
// domain.ErrStatusNotFound for an id that was never written.
type StatusRepository interface {
	Get(ctx context.Context, geofenceID string) (*domain.GeofenceStatus, error)
	Put(ctx context.Context, status *domain.GeofenceStatus) error
	GetAll(ctx context.Context) ([]domain.GeofenceStatus, error)
	Remove(ctx context.Context, geofenceID string) error
	RemoveAll(ctx context.Context) error
}

type ActionRepository interface {
	Add(ctx context.Context, action *domain.PendingAction) error
	Cancel(ctx context.Context, geofenceID string, action domain.TimerAction) (int64, error)
	TakeDue(ctx context.Context, now time.Time) ([]domain.PendingAction, error)
	TakeAll(ctx context.Context) ([]domain.PendingAction, error)
	RemoveAll(ctx context.Context) error
}

type SessionRepository interface {
	Get(ctx context.Context) (*domain.ActiveSession, error)
	Save(ctx context.Context, session *domain.ActiveSession) error
	Clear(ctx context.Context) error
}

type WorkDayRepository interface {
	Insert(ctx context.Context, day *domain.WorkDay) error
	List(ctx context.Context, limit int) ([]domain.WorkDay, error)
}

type TransitionLogRepository interface {
	Append(ctx context.Context, records []domain.TransitionRecord, keep int) error
	List(ctx context.Context) ([]domain.TransitionRecord, error)
}

type SettingsRepository interface {
	Get(ctx context.Context) (domain.Settings, error)
	Put(ctx context.Context, settings domain.Settings) error
}

type SampleRepository interface {
	Insert(ctx context.Context, rec *domain.SampleRecord) error
	GetLatest(ctx context.Context, deviceID string) (*domain.SampleRecord, error)
	GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.SampleRecord, error)
	GetDevices(ctx context.Context) ([]domain.Device, error)
}
