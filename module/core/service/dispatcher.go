package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/nandanugg/autotimer/module/core/domain"
	"github.com/nandanugg/autotimer/module/core/internal/metrics"
	"github.com/nandanugg/autotimer/module/core/internal/repository/database"
	"github.com/nandanugg/autotimer/module/core/internal/repository/publisher"
)

type definitionLookup interface {
	Definition(id string) (domain.GeofenceDefinition, bool)
}

// Dispatcher hands transitions to the timer scheduler and publishes the
// resulting notifications. Nothing happens while the auto timer is off.
type Dispatcher struct {
	settings    database.SettingsRepository
	timer       *TimerService
	definitions definitionLookup
	publisher   publisher.NotificationPublisher
	metrics     *metrics.Metrics
}

func NewDispatcher(settings database.SettingsRepository, timer *TimerService, definitions definitionLookup, pub publisher.NotificationPublisher, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		settings:    settings,
		timer:       timer,
		definitions: definitions,
		publisher:   pub,
		metrics:     m,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, events []domain.TransitionEvent) error {
	if len(events) == 0 {
		return nil
	}

	active, err := d.active(ctx)
	if err != nil {
		return err
	}
	if !active {
		log.Printf("auto timer disabled, discarding %d transition(s)", len(events))
		d.metrics.Discarded(len(events))
		return nil
	}

	var errs []error
	for i := range events {
		ev := &events[i]
		gf, ok := d.definitions.Definition(ev.GeofenceID)
		if !ok {
			gf = domain.GeofenceDefinition{ID: ev.GeofenceID, Label: ev.Label}
		}

		n, err := d.timer.Schedule(ctx, ev, &gf)
		if err != nil {
			errs = append(errs, fmt.Errorf("schedule %s %s: %w", ev.Kind, ev.GeofenceID, err))
			continue
		}
		if n == nil {
			continue
		}
		if err := d.publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Notify publishes notifications produced by executed pending actions.
func (d *Dispatcher) Notify(ctx context.Context, notifications []domain.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	active, err := d.active(ctx)
	if err != nil {
		return err
	}
	if !active {
		return nil
	}

	var errs []error
	for i := range notifications {
		if err := d.publish(ctx, &notifications[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) publish(ctx context.Context, n *domain.Notification) error {
	if err := d.publisher.Publish(ctx, n); err != nil {
		return fmt.Errorf("publish %s for %s: %w", n.Type, n.GeofenceID, err)
	}
	d.metrics.Notification(string(n.Type))
	return nil
}

func (d *Dispatcher) active(ctx context.Context) (bool, error) {
	settings, err := d.settings.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("get settings: %w", err)
	}
	return settings.AutoTimerActive(), nil
}
