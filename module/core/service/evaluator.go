package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/nandanugg/autotimer/module/core/domain"
	"github.com/nandanugg/autotimer/module/core/geofence"
	"github.com/nandanugg/autotimer/module/core/internal/metrics"
	"github.com/nandanugg/autotimer/module/core/internal/repository/database"
)

// Evaluator turns one location sample into geofence transitions, keeping the
// status store as the single source of truth between passes.
type Evaluator struct {
	statuses database.StatusRepository
	locks    *keyedMutex
	metrics  *metrics.Metrics
}

func NewEvaluator(statuses database.StatusRepository, m *metrics.Metrics) *Evaluator {
	return &Evaluator{
		statuses: statuses,
		locks:    newKeyedMutex(),
		metrics:  m,
	}
}

// Evaluate checks the sample against every geofence in order. An invalid
// sample fails the whole pass before anything is read or written; any other
// failure is scoped to its geofence and joined into the returned error.
func (e *Evaluator) Evaluate(ctx context.Context, sample *domain.LocationSample, geofences []domain.GeofenceDefinition) ([]domain.TransitionEvent, error) {
	if err := sample.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSample, err)
	}

	var (
		events []domain.TransitionEvent
		errs   []error
	)
	for i := range geofences {
		ev, err := e.evaluateOne(ctx, sample, &geofences[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ev != nil {
			e.metrics.Transition(string(ev.Kind))
			events = append(events, *ev)
		}
	}
	return events, errors.Join(errs...)
}

func (e *Evaluator) evaluateOne(ctx context.Context, sample *domain.LocationSample, gf *domain.GeofenceDefinition) (*domain.TransitionEvent, error) {
	if err := gf.Validate(); err != nil {
		return nil, &domain.GeofenceError{GeofenceID: gf.ID, Kind: domain.ErrInvalidGeofence, Err: err}
	}

	if !geofence.IsAccuracyAcceptable(sample.AccuracyMeters, gf.RadiusMeters) {
		log.Printf("skipping %s: accuracy %s too poor for radius %.0fm", gf.ID, formatAccuracy(sample.AccuracyMeters), gf.RadiusMeters)
		e.metrics.Skipped("accuracy")
		return nil, nil
	}

	distance := geofence.DistanceMeters(sample.Coordinates.Point(), gf.Center.Point())

	unlock := e.locks.Lock(gf.ID)
	defer unlock()

	wasInside := false
	prev, err := e.statuses.Get(ctx, gf.ID)
	switch {
	case errors.Is(err, domain.ErrStatusNotFound):
		// never evaluated: assume outside
	case err != nil:
		e.metrics.StoreError("get")
		return nil, &domain.GeofenceError{GeofenceID: gf.ID, Kind: domain.ErrStorageRead, Err: err}
	default:
		if sample.CapturedAt.Before(prev.LastUpdate) {
			log.Printf("skipping %s: sample at %s older than status at %s", gf.ID, sample.CapturedAt, prev.LastUpdate)
			e.metrics.Skipped("stale")
			return nil, nil
		}
		wasInside = prev.IsInside
	}

	isInside := wasInside
	switch geofence.Classify(distance, gf.RadiusMeters, sample.AccuracyMeters) {
	case geofence.Inside:
		isInside = true
	case geofence.Outside:
		isInside = false
	}

	status := domain.GeofenceStatus{
		GeofenceID: gf.ID,
		IsInside:   isInside,
		LastUpdate: sample.CapturedAt,
	}

	var ev *domain.TransitionEvent
	if isInside != wasInside {
		kind := domain.TransitionExit
		if isInside {
			kind = domain.TransitionEnter
		}
		ev = &domain.TransitionEvent{
			GeofenceID: gf.ID,
			Label:      gf.Label,
			Kind:       kind,
			OccurredAt: sample.CapturedAt,
		}
	}

	if err := e.statuses.Put(ctx, &status); err != nil {
		e.metrics.StoreError("put")
		if ev != nil {
			return nil, &domain.TransitionPersistError{Status: status, Event: *ev, Err: err}
		}
		return nil, &domain.GeofenceError{GeofenceID: gf.ID, Kind: domain.ErrStorageWrite, Err: err}
	}

	return ev, nil
}

// Commit retries a status write for a transition whose first write failed.
func (e *Evaluator) Commit(ctx context.Context, status domain.GeofenceStatus) error {
	unlock := e.locks.Lock(status.GeofenceID)
	defer unlock()

	if err := e.statuses.Put(ctx, &status); err != nil {
		e.metrics.StoreError("put")
		return err
	}
	return nil
}

func formatAccuracy(acc *float64) string {
	if acc == nil {
		return "unknown"
	}
	return fmt.Sprintf("%.0fm", *acc)
}
