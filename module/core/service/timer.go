package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/nandanugg/autotimer/module/core/domain"
	"github.com/nandanugg/autotimer/module/core/internal/repository/database"
)

const (
	DefaultTimerDelay = 2 * time.Minute
	overtimeHours     = 8
	minRecordedHours  = 0.01

	notesAutoStarted     = "Auto-started"
	notesAutoStopped     = "Auto-stopped"
	notesStoppedManually = "Stopped manually"
)

// TimerService turns transitions into delayed start/stop actions and runs
// them once due. There is at most one active session at a time.
type TimerService struct {
	mu   sync.Mutex
	mode domain.TimerMode

	actions      database.ActionRepository
	sessions     database.SessionRepository
	workDays     database.WorkDayRepository
	defaultDelay time.Duration
}

func NewTimerService(actions database.ActionRepository, sessions database.SessionRepository, workDays database.WorkDayRepository, defaultDelay time.Duration) *TimerService {
	if defaultDelay <= 0 {
		defaultDelay = DefaultTimerDelay
	}
	return &TimerService{
		mode:         domain.TimerModeAuto,
		actions:      actions,
		sessions:     sessions,
		workDays:     workDays,
		defaultDelay: defaultDelay,
	}
}

// Schedule records the timer action for one transition and returns the
// notification describing it, or nil when the transition needs no action.
func (s *TimerService) Schedule(ctx context.Context, ev *domain.TransitionEvent, gf *domain.GeofenceDefinition) (*domain.Notification, error) {
	if mode := s.Mode(); mode != domain.TimerModeAuto {
		log.Printf("timer in %s mode, ignoring %s for %s", mode, ev.Kind, ev.GeofenceID)
		return nil, nil
	}

	switch ev.Kind {
	case domain.TransitionEnter:
		return s.scheduleStart(ctx, ev, s.delay(gf.DelayStart))
	case domain.TransitionExit:
		return s.scheduleStop(ctx, ev, s.delay(gf.DelayStop))
	default:
		return nil, fmt.Errorf("unknown transition kind %q", ev.Kind)
	}
}

func (s *TimerService) scheduleStart(ctx context.Context, ev *domain.TransitionEvent, delay time.Duration) (*domain.Notification, error) {
	if _, err := s.actions.Cancel(ctx, ev.GeofenceID, domain.ActionStop); err != nil {
		return nil, fmt.Errorf("cancel pending stop: %w", err)
	}

	session, err := s.activeSession(ctx)
	if err != nil {
		return nil, err
	}
	if session != nil && session.GeofenceID == ev.GeofenceID {
		return &domain.Notification{
			Type:       domain.NotifyTimerStarted,
			GeofenceID: ev.GeofenceID,
			Label:      ev.Label,
			OccurredAt: ev.OccurredAt,
		}, nil
	}

	if err := s.actions.Add(ctx, &domain.PendingAction{
		GeofenceID:  ev.GeofenceID,
		Label:       ev.Label,
		Action:      domain.ActionStart,
		ScheduledAt: ev.OccurredAt.Add(delay),
		Delay:       delay,
	}); err != nil {
		return nil, fmt.Errorf("add pending start: %w", err)
	}

	return &domain.Notification{
		Type:       domain.NotifyTimerWillStart,
		GeofenceID: ev.GeofenceID,
		Label:      ev.Label,
		Minutes:    minutes(delay),
		OccurredAt: ev.OccurredAt,
	}, nil
}

func (s *TimerService) scheduleStop(ctx context.Context, ev *domain.TransitionEvent, delay time.Duration) (*domain.Notification, error) {
	if _, err := s.actions.Cancel(ctx, ev.GeofenceID, domain.ActionStart); err != nil {
		return nil, fmt.Errorf("cancel pending start: %w", err)
	}

	session, err := s.activeSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil || session.GeofenceID != ev.GeofenceID {
		log.Printf("no active timer for %s, ignoring exit", ev.GeofenceID)
		return nil, nil
	}

	if err := s.actions.Add(ctx, &domain.PendingAction{
		GeofenceID:  ev.GeofenceID,
		Label:       ev.Label,
		Action:      domain.ActionStop,
		ScheduledAt: ev.OccurredAt.Add(delay),
		Delay:       delay,
	}); err != nil {
		return nil, fmt.Errorf("add pending stop: %w", err)
	}

	return &domain.Notification{
		Type:       domain.NotifyTimerWillStop,
		GeofenceID: ev.GeofenceID,
		Label:      ev.Label,
		Minutes:    minutes(delay),
		OccurredAt: ev.OccurredAt,
	}, nil
}

// RunDue executes every pending action scheduled at or before now.
func (s *TimerService) RunDue(ctx context.Context, now time.Time) ([]domain.Notification, error) {
	due, err := s.actions.TakeDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("take due actions: %w", err)
	}

	var (
		notifications []domain.Notification
		errs          []error
	)
	for i := range due {
		var n *domain.Notification
		switch due[i].Action {
		case domain.ActionStart:
			n, err = s.startTimer(ctx, &due[i], now)
		case domain.ActionStop:
			n, err = s.stopTimer(ctx, &due[i], now, notesAutoStopped)
		default:
			err = fmt.Errorf("unknown action %q", due[i].Action)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", due[i].Action, due[i].GeofenceID, err))
			continue
		}
		if n != nil {
			notifications = append(notifications, *n)
		}
	}
	return notifications, errors.Join(errs...)
}

func (s *TimerService) startTimer(ctx context.Context, a *domain.PendingAction, now time.Time) (*domain.Notification, error) {
	// Save overwrites any session left running on another site.
	if err := s.sessions.Save(ctx, &domain.ActiveSession{
		GeofenceID: a.GeofenceID,
		StartedAt:  now,
		Notes:      notesAutoStarted,
	}); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	log.Printf("timer started for %s", a.GeofenceID)
	return &domain.Notification{
		Type:       domain.NotifyTimerStarted,
		GeofenceID: a.GeofenceID,
		Label:      a.Label,
		OccurredAt: now,
	}, nil
}

func (s *TimerService) stopTimer(ctx context.Context, a *domain.PendingAction, now time.Time, fallbackNotes string) (*domain.Notification, error) {
	session, err := s.activeSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil || session.GeofenceID != a.GeofenceID {
		log.Printf("no matching active session for %s", a.GeofenceID)
		return nil, nil
	}

	hours := elapsedHours(session.StartedAt, now)
	notes := session.Notes
	if notes == "" {
		notes = fallbackNotes
	}
	if err := s.workDays.Insert(ctx, &domain.WorkDay{
		Date:       time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		GeofenceID: a.GeofenceID,
		Hours:      hours,
		Notes:      notes,
		Overtime:   hours > overtimeHours,
	}); err != nil {
		return nil, fmt.Errorf("record work day: %w", err)
	}

	if err := s.sessions.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear session: %w", err)
	}

	log.Printf("timer stopped for %s: %.2fh recorded", a.GeofenceID, hours)
	return &domain.Notification{
		Type:       domain.NotifyTimerStopped,
		GeofenceID: a.GeofenceID,
		Label:      a.Label,
		Hours:      hours,
		OccurredAt: now,
	}, nil
}

// CancelPending drops every pending action and pauses automatic scheduling
// until the mode is set back to auto. With nothing pending it changes nothing.
func (s *TimerService) CancelPending(ctx context.Context) ([]domain.PendingAction, error) {
	cancelled, err := s.actions.TakeAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("take pending actions: %w", err)
	}
	if len(cancelled) == 0 {
		return nil, nil
	}

	s.setMode(domain.TimerModePaused)
	log.Printf("cancelled %d pending action(s), auto timer paused", len(cancelled))
	return cancelled, nil
}

// ForceStop ends the active session now and records its work day. Pending
// actions are dropped and automatic scheduling is paused either way. It
// returns nil when no session was running.
func (s *TimerService) ForceStop(ctx context.Context, now time.Time) (*domain.Notification, error) {
	if err := s.actions.RemoveAll(ctx); err != nil {
		return nil, fmt.Errorf("remove pending actions: %w", err)
	}
	s.setMode(domain.TimerModePaused)

	session, err := s.activeSession(ctx)
	if err != nil || session == nil {
		return nil, err
	}
	return s.stopTimer(ctx, &domain.PendingAction{GeofenceID: session.GeofenceID, Action: domain.ActionStop}, now, notesStoppedManually)
}

// SetMode switches between automatic and user-controlled timing. Leaving
// auto mode drops pending actions.
func (s *TimerService) SetMode(ctx context.Context, mode domain.TimerMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidTimerMode, mode)
	}
	if mode != domain.TimerModeAuto {
		if err := s.actions.RemoveAll(ctx); err != nil {
			return fmt.Errorf("remove pending actions: %w", err)
		}
	}
	s.setMode(mode)
	log.Printf("timer mode set to %s", mode)
	return nil
}

func (s *TimerService) Mode() domain.TimerMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *TimerService) setMode(mode domain.TimerMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

func (s *TimerService) ActiveSession(ctx context.Context) (*domain.ActiveSession, error) {
	return s.activeSession(ctx)
}

func (s *TimerService) WorkDays(ctx context.Context, limit int) ([]domain.WorkDay, error) {
	return s.workDays.List(ctx, limit)
}

func (s *TimerService) Reset(ctx context.Context) error {
	return s.actions.RemoveAll(ctx)
}

func (s *TimerService) activeSession(ctx context.Context) (*domain.ActiveSession, error) {
	session, err := s.sessions.Get(ctx)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func (s *TimerService) delay(d time.Duration) time.Duration {
	if d <= 0 {
		return s.defaultDelay
	}
	return d
}

func minutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}

// elapsedHours rounds to two decimals and never records less than 0.01h.
func elapsedHours(start, end time.Time) float64 {
	h := math.Round(end.Sub(start).Hours()*100) / 100
	return math.Max(minRecordedHours, h)
}
