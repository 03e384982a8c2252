package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/nandanugg/autotimer/module/core/domain"
	"github.com/nandanugg/autotimer/module/core/internal/repository/database"
)

// SampleSource delivers location samples while started.
type SampleSource interface {
	Start() error
	Stop() error
}

// MonitorService owns the active set of work-site geofences and the sample
// source feeding them.
type MonitorService struct {
	// lifecycle serialises Start and Stop. It is never held by the sample
	// path, so a source may block on in-flight deliveries while stopping.
	lifecycle sync.Mutex

	// pass is held for a whole sample pass and while Start and Stop touch
	// stored state, so no pass can write after that state is reset.
	pass sync.Mutex

	mu      sync.RWMutex
	defs    []domain.GeofenceDefinition
	byID    map[string]int
	running bool

	source   SampleSource
	statuses database.StatusRepository
	timer    *TimerService
}

func NewMonitorService(statuses database.StatusRepository, timer *TimerService) *MonitorService {
	return &MonitorService{
		statuses: statuses,
		timer:    timer,
		byID:     make(map[string]int),
	}
}

// Attach sets the sample source. It must be called before Start.
func (m *MonitorService) Attach(source SampleSource) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.source = source
}

// Start arms the given geofences and starts the sample source. It reports
// false when monitoring could not be started.
func (m *MonitorService) Start(ctx context.Context, defs []domain.GeofenceDefinition) (bool, error) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if len(defs) == 0 {
		log.Printf("no geofences given, monitoring not started")
		return false, nil
	}

	byID := make(map[string]int, len(defs))
	for i := range defs {
		if err := defs[i].Validate(); err != nil {
			return false, &domain.GeofenceError{GeofenceID: defs[i].ID, Kind: domain.ErrInvalidGeofence, Err: err}
		}
		if _, dup := byID[defs[i].ID]; dup {
			return false, &domain.GeofenceError{GeofenceID: defs[i].ID, Kind: domain.ErrInvalidGeofence, Err: errors.New("duplicate id")}
		}
		byID[defs[i].ID] = i
	}

	if m.isRunning() && m.source != nil {
		if err := m.source.Stop(); err != nil {
			log.Printf("failed to stop sample source: %v", err)
		}
	}

	m.lockPass()
	err := m.pruneStatuses(ctx, byID)
	if err == nil {
		m.mu.Lock()
		m.defs = append([]domain.GeofenceDefinition(nil), defs...)
		m.byID = byID
		m.running = true
		m.mu.Unlock()
	}
	m.unlockPass()
	if err != nil {
		return false, err
	}

	if m.source != nil {
		if err := m.source.Start(); err != nil {
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
			return false, fmt.Errorf("start sample source: %w", err)
		}
	}

	log.Printf("monitoring %d geofence(s)", len(defs))
	return true, nil
}

// Stop halts the sample source and forgets every stored status and pending
// action. An active session is left running.
func (m *MonitorService) Stop(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()

	var errs []error
	if m.source != nil {
		if err := m.source.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop sample source: %w", err))
		}
	}

	// Waits for a pass already past the monitoring check.
	m.lockPass()
	defer m.unlockPass()

	m.mu.Lock()
	m.defs = nil
	m.byID = make(map[string]int)
	m.mu.Unlock()

	if err := m.statuses.RemoveAll(ctx); err != nil {
		errs = append(errs, fmt.Errorf("remove statuses: %w", err))
	}
	if err := m.timer.Reset(ctx); err != nil {
		errs = append(errs, fmt.Errorf("reset pending actions: %w", err))
	}

	log.Printf("monitoring stopped")
	return errors.Join(errs...)
}

func (m *MonitorService) Monitoring() bool {
	return m.isRunning()
}

// Definitions returns a copy of the active set in the order it was given.
func (m *MonitorService) Definitions() []domain.GeofenceDefinition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.GeofenceDefinition(nil), m.defs...)
}

func (m *MonitorService) Definition(id string) (domain.GeofenceDefinition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byID[id]
	if !ok {
		return domain.GeofenceDefinition{}, false
	}
	return m.defs[i], true
}

func (m *MonitorService) Statuses(ctx context.Context) ([]domain.GeofenceStatus, error) {
	return m.statuses.GetAll(ctx)
}

func (m *MonitorService) Status(ctx context.Context, id string) (*domain.GeofenceStatus, error) {
	return m.statuses.Get(ctx, id)
}

func (m *MonitorService) lockPass()   { m.pass.Lock() }
func (m *MonitorService) unlockPass() { m.pass.Unlock() }

func (m *MonitorService) isRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *MonitorService) pruneStatuses(ctx context.Context, keep map[string]int) error {
	current, err := m.statuses.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("list statuses: %w", err)
	}
	for _, st := range current {
		if _, ok := keep[st.GeofenceID]; ok {
			continue
		}
		if err := m.statuses.Remove(ctx, st.GeofenceID); err != nil {
			return fmt.Errorf("remove status %s: %w", st.GeofenceID, err)
		}
	}
	return nil
}
