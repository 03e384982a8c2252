package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/nandanugg/autotimer/module/core/domain"
	"github.com/nandanugg/autotimer/module/core/internal/repository/database"
)

var (
	_ database.StatusRepository        = (*memStatusRepo)(nil)
	_ database.ActionRepository        = (*memActionRepo)(nil)
	_ database.SessionRepository       = (*memSessionRepo)(nil)
	_ database.WorkDayRepository       = (*memWorkDayRepo)(nil)
	_ database.TransitionLogRepository = (*memTransitionRepo)(nil)
	_ database.SettingsRepository      = (*memSettingsRepo)(nil)
)

var errStore = errors.New("store unavailable")

type memStatusRepo struct {
	mu       sync.Mutex
	statuses map[string]domain.GeofenceStatus
	getErr   map[string]error
	putErr   map[string]error
	puts     int
}

func newMemStatusRepo() *memStatusRepo {
	return &memStatusRepo{
		statuses: make(map[string]domain.GeofenceStatus),
		getErr:   make(map[string]error),
		putErr:   make(map[string]error),
	}
}

func (r *memStatusRepo) Get(_ context.Context, id string) (*domain.GeofenceStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.getErr[id]; err != nil {
		return nil, err
	}
	st, ok := r.statuses[id]
	if !ok {
		return nil, domain.ErrStatusNotFound
	}
	return &st, nil
}

func (r *memStatusRepo) Put(_ context.Context, st *domain.GeofenceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.putErr[st.GeofenceID]; err != nil {
		return err
	}
	r.puts++
	r.statuses[st.GeofenceID] = *st
	return nil
}

func (r *memStatusRepo) GetAll(_ context.Context) ([]domain.GeofenceStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.GeofenceStatus, 0, len(r.statuses))
	for _, st := range r.statuses {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeofenceID < out[j].GeofenceID })
	return out, nil
}

func (r *memStatusRepo) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.statuses, id)
	return nil
}

func (r *memStatusRepo) RemoveAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = make(map[string]domain.GeofenceStatus)
	return nil
}

func (r *memStatusRepo) setPutErr(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putErr[id] = err
}

func (r *memStatusRepo) status(id string) (domain.GeofenceStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.statuses[id]
	return st, ok
}

type memActionRepo struct {
	mu      sync.Mutex
	actions []domain.PendingAction
	seq     int
}

func (r *memActionRepo) Add(_ context.Context, a *domain.PendingAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	cp := *a
	cp.ID = strconv.Itoa(r.seq)
	r.actions = append(r.actions, cp)
	return nil
}

func (r *memActionRepo) Cancel(_ context.Context, id string, action domain.TimerAction) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		kept []domain.PendingAction
		n    int64
	)
	for _, a := range r.actions {
		if a.GeofenceID == id && a.Action == action {
			n++
			continue
		}
		kept = append(kept, a)
	}
	r.actions = kept
	return n, nil
}

func (r *memActionRepo) TakeDue(_ context.Context, now time.Time) ([]domain.PendingAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due, kept []domain.PendingAction
	for _, a := range r.actions {
		if !a.ScheduledAt.After(now) {
			due = append(due, a)
			continue
		}
		kept = append(kept, a)
	}
	r.actions = kept
	sort.SliceStable(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	return due, nil
}

func (r *memActionRepo) TakeAll(_ context.Context) ([]domain.PendingAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.actions
	r.actions = nil
	return all, nil
}

func (r *memActionRepo) RemoveAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = nil
	return nil
}

func (r *memActionRepo) pending() []domain.PendingAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.PendingAction(nil), r.actions...)
}

type memSessionRepo struct {
	mu      sync.Mutex
	session *domain.ActiveSession
}

func (r *memSessionRepo) Get(_ context.Context) (*domain.ActiveSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil, domain.ErrSessionNotFound
	}
	cp := *r.session
	return &cp, nil
}

func (r *memSessionRepo) Save(_ context.Context, s *domain.ActiveSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.session = &cp
	return nil
}

func (r *memSessionRepo) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = nil
	return nil
}

type memWorkDayRepo struct {
	mu   sync.Mutex
	days []domain.WorkDay
}

func (r *memWorkDayRepo) Insert(_ context.Context, d *domain.WorkDay) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.days = append(r.days, *d)
	return nil
}

func (r *memWorkDayRepo) List(_ context.Context, limit int) ([]domain.WorkDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > len(r.days) {
		limit = len(r.days)
	}
	return append([]domain.WorkDay(nil), r.days[:limit]...), nil
}

type memTransitionRepo struct {
	mu      sync.Mutex
	records []domain.TransitionRecord
	err     error
}

func (r *memTransitionRepo) Append(_ context.Context, recs []domain.TransitionRecord, keep int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, recs...)
	if len(r.records) > keep {
		r.records = r.records[len(r.records)-keep:]
	}
	return nil
}

func (r *memTransitionRepo) List(_ context.Context) ([]domain.TransitionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.TransitionRecord(nil), r.records...), nil
}

type memSettingsRepo struct {
	mu       sync.Mutex
	settings *domain.Settings
}

func (r *memSettingsRepo) Get(_ context.Context) (domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settings == nil {
		return domain.DefaultSettings(), nil
	}
	return *r.settings, nil
}

func (r *memSettingsRepo) Put(_ context.Context, s domain.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = &s
	return nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, n *domain.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, *n)
	return nil
}

func (p *recordingPublisher) types() []domain.NotificationType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.NotificationType, 0, len(p.sent))
	for _, n := range p.sent {
		out = append(out, n.Type)
	}
	return out
}

type fakeSource struct {
	mu      sync.Mutex
	started int
	stopped int
	running bool
	err     error
}

func (s *fakeSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.started++
	s.running = true
	return nil
}

func (s *fakeSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
	s.running = false
	return nil
}

func ptr(v float64) *float64 { return &v }

func at(sec int64) time.Time { return time.Unix(1715000000+sec, 0).UTC() }

// site is a 100m geofence used across tests; samples are placed along the
// meridian so that distances are easy to reason about.
func site(id string) domain.GeofenceDefinition {
	return domain.GeofenceDefinition{
		ID:           id,
		Label:        "Site " + id,
		Center:       domain.Coordinates{Lat: 47.0, Lon: 8.0},
		RadiusMeters: 100,
	}
}

// northOf returns a sample d meters north of site's center.
func northOf(d float64, accuracy *float64, ts time.Time) *domain.LocationSample {
	const metersPerDegree = 6371000 * 3.141592653589793 / 180
	return &domain.LocationSample{
		Coordinates:    &domain.Coordinates{Lat: 47.0 + d/metersPerDegree, Lon: 8.0},
		AccuracyMeters: accuracy,
		CapturedAt:     ts,
	}
}
