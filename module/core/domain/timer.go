package domain

import "time"

type TimerAction string

const (
	ActionStart TimerAction = "start"
	ActionStop  TimerAction = "stop"
)

// TimerMode controls whether transitions schedule timer actions. Only
// TimerModeAuto does; manual and paused are set by the user.
type TimerMode string

const (
	TimerModeAuto   TimerMode = "auto"
	TimerModeManual TimerMode = "manual"
	TimerModePaused TimerMode = "paused"
)

func (m TimerMode) Valid() bool {
	switch m {
	case TimerModeAuto, TimerModeManual, TimerModePaused:
		return true
	}
	return false
}

type PendingAction struct {
	ID          string        `json:"id"`
	GeofenceID  string        `json:"geofence_id"`
	Label       string        `json:"label"`
	Action      TimerAction   `json:"action"`
	ScheduledAt time.Time     `json:"scheduled_at"`
	Delay       time.Duration `json:"delay"`
}

type ActiveSession struct {
	GeofenceID string    `json:"geofence_id"`
	StartedAt  time.Time `json:"started_at"`
	Notes      string    `json:"notes"`
}

type WorkDay struct {
	ID         string    `json:"id"`
	Date       time.Time `json:"date"`
	GeofenceID string    `json:"geofence_id"`
	Hours      float64   `json:"hours"`
	Notes      string    `json:"notes"`
	Overtime   bool      `json:"overtime"`
}

type NotificationType string

const (
	NotifyTimerWillStart NotificationType = "timer_will_start"
	NotifyTimerStarted   NotificationType = "timer_started"
	NotifyTimerWillStop  NotificationType = "timer_will_stop"
	NotifyTimerStopped   NotificationType = "timer_stopped"
)

type Notification struct {
	Type       NotificationType `json:"type"`
	GeofenceID string           `json:"geofence_id"`
	Label      string           `json:"label"`
	Minutes    int              `json:"minutes,omitempty"`
	Hours      float64          `json:"hours,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Key is stable for a given notification so consumers can deduplicate.
func (n Notification) Key() string {
	return n.GeofenceID + ":" + string(n.Type) + ":" + n.OccurredAt.UTC().Format(time.RFC3339Nano)
}
