package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/nandanugg/autotimer/module/core/domain"
	"github.com/nandanugg/autotimer/module/core/internal/metrics"
	"github.com/nandanugg/autotimer/module/core/internal/repository/database"
)

const (
	TransitionHistorySize = 50
	defaultRetryBackoff   = 100 * time.Millisecond
)

type PipelineOptions struct {
	// DeviceID binds the pipeline to one device; empty accepts any.
	DeviceID     string
	WriteRetries int
	RetryBackoff time.Duration
	Now          func() time.Time
}

// Pipeline runs one sample at a time through evaluation, history and
// dispatch. Passes are serialised with the monitoring lifecycle.
type Pipeline struct {
	monitor    *MonitorService
	evaluator  *Evaluator
	timer      *TimerService
	dispatcher *Dispatcher
	history    database.TransitionLogRepository
	metrics    *metrics.Metrics

	deviceID     string
	writeRetries int
	retryBackoff time.Duration
	now          func() time.Time
}

func NewPipeline(monitor *MonitorService, evaluator *Evaluator, timer *TimerService, dispatcher *Dispatcher, history database.TransitionLogRepository, m *metrics.Metrics, opts PipelineOptions) *Pipeline {
	if opts.WriteRetries < 0 {
		opts.WriteRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		monitor:      monitor,
		evaluator:    evaluator,
		timer:        timer,
		dispatcher:   dispatcher,
		history:      history,
		metrics:      m,
		deviceID:     opts.DeviceID,
		writeRetries: opts.WriteRetries,
		retryBackoff: opts.RetryBackoff,
		now:          opts.Now,
	}
}

func (p *Pipeline) Process(ctx context.Context, sample *domain.LocationSample) error {
	if p.deviceID != "" && sample.DeviceID != p.deviceID {
		p.metrics.Sample("foreign")
		return fmt.Errorf("%w: %q", domain.ErrUnknownDevice, sample.DeviceID)
	}

	p.monitor.lockPass()
	defer p.monitor.unlockPass()

	if !p.monitor.Monitoring() {
		p.metrics.Sample("rejected")
		return domain.ErrNotMonitoring
	}

	var errs []error
	if err := p.runDue(ctx); err != nil {
		errs = append(errs, err)
	}

	defs := p.monitor.Definitions()
	events, err := p.evaluator.Evaluate(ctx, sample, defs)
	if errors.Is(err, domain.ErrInvalidSample) {
		p.metrics.Sample("invalid")
		return err
	}
	released, remaining := p.release(ctx, err)
	if len(released) > 0 {
		events = inDefinitionOrder(append(events, released...), defs)
	}
	errs = append(errs, remaining...)

	if len(events) > 0 {
		if err := p.record(ctx, events); err != nil {
			errs = append(errs, err)
		}
		if err := p.dispatcher.Dispatch(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}

	if err := p.runDue(ctx); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		p.metrics.Sample("error")
	} else {
		p.metrics.Sample("ok")
	}
	return errors.Join(errs...)
}

// RunDue executes pending timer actions outside of sample processing.
func (p *Pipeline) RunDue(ctx context.Context) error {
	p.monitor.lockPass()
	defer p.monitor.unlockPass()
	return p.runDue(ctx)
}

// CancelPending drops pending timer actions on the user's behalf.
func (p *Pipeline) CancelPending(ctx context.Context) ([]domain.PendingAction, error) {
	p.monitor.lockPass()
	defer p.monitor.unlockPass()
	return p.timer.CancelPending(ctx)
}

// ForceStop stops the active session now and announces it. It returns nil
// when no session was running.
func (p *Pipeline) ForceStop(ctx context.Context) (*domain.Notification, error) {
	p.monitor.lockPass()
	defer p.monitor.unlockPass()

	n, err := p.timer.ForceStop(ctx, p.now())
	if err != nil || n == nil {
		return nil, err
	}
	if gf, ok := p.monitor.Definition(n.GeofenceID); ok {
		n.Label = gf.Label
	}
	if err := p.dispatcher.Notify(ctx, []domain.Notification{*n}); err != nil {
		log.Printf("notify forced stop: %v", err)
	}
	return n, nil
}

func (p *Pipeline) SetTimerMode(ctx context.Context, mode domain.TimerMode) error {
	p.monitor.lockPass()
	defer p.monitor.unlockPass()
	return p.timer.SetMode(ctx, mode)
}

func (p *Pipeline) runDue(ctx context.Context) error {
	notifications, err := p.timer.RunDue(ctx, p.now())
	if nerr := p.dispatcher.Notify(ctx, notifications); nerr != nil {
		err = errors.Join(err, nerr)
	}
	return err
}

// release retries the status write of every withheld transition and returns
// the events whose write finally landed.
func (p *Pipeline) release(ctx context.Context, err error) ([]domain.TransitionEvent, []error) {
	var (
		events    []domain.TransitionEvent
		remaining []error
	)
	for _, e := range domain.SplitErrors(err) {
		var persistErr *domain.TransitionPersistError
		if !errors.As(e, &persistErr) {
			remaining = append(remaining, e)
			continue
		}
		if p.commit(ctx, persistErr.Status) {
			log.Printf("status for %s stored after retry, releasing %s", persistErr.Status.GeofenceID, persistErr.Event.Kind)
			events = append(events, persistErr.Event)
			continue
		}
		remaining = append(remaining, e)
	}
	return events, remaining
}

func (p *Pipeline) commit(ctx context.Context, status domain.GeofenceStatus) bool {
	for attempt := 1; attempt <= p.writeRetries; attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(p.retryBackoff * time.Duration(attempt)):
		}
		err := p.evaluator.Commit(ctx, status)
		if err == nil {
			return true
		}
		log.Printf("retry %d/%d storing status for %s failed: %v", attempt, p.writeRetries, status.GeofenceID, err)
	}
	return false
}

// inDefinitionOrder sorts events by the position of their geofence in defs.
func inDefinitionOrder(events []domain.TransitionEvent, defs []domain.GeofenceDefinition) []domain.TransitionEvent {
	pos := make(map[string]int, len(defs))
	for i := range defs {
		pos[defs[i].ID] = i
	}
	sort.SliceStable(events, func(i, j int) bool {
		return pos[events[i].GeofenceID] < pos[events[j].GeofenceID]
	})
	return events
}

func (p *Pipeline) record(ctx context.Context, events []domain.TransitionEvent) error {
	records := make([]domain.TransitionRecord, 0, len(events))
	for _, ev := range events {
		records = append(records, domain.TransitionRecord{
			GeofenceID: ev.GeofenceID,
			Label:      ev.Label,
			Kind:       ev.Kind,
			OccurredAt: ev.OccurredAt,
		})
	}
	if err := p.history.Append(ctx, records, TransitionHistorySize); err != nil {
		return fmt.Errorf("record transitions: %w", err)
	}
	return nil
}

func (p *Pipeline) Transitions(ctx context.Context) ([]domain.TransitionRecord, error) {
	return p.history.List(ctx)
}
