package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
)

type Coordinates struct {
	Lat float64 `json:"latitude" yaml:"latitude"`
	Lon float64 `json:"longitude" yaml:"longitude"`
}

func (c Coordinates) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

func (c Coordinates) Validate() error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if math.IsNaN(c.Lon) || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	return nil
}

// GeofenceDefinition is a circular work-site boundary. Zero delays fall back
// to the timer scheduler's default.
type GeofenceDefinition struct {
	ID           string        `json:"id" yaml:"id"`
	Label        string        `json:"label" yaml:"label"`
	Center       Coordinates   `json:"center" yaml:"center"`
	RadiusMeters float64       `json:"radius_meters" yaml:"radius_meters"`
	DelayStart   time.Duration `json:"delay_start" yaml:"delay_start"`
	DelayStop    time.Duration `json:"delay_stop" yaml:"delay_stop"`
}

func (g *GeofenceDefinition) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("id: required")
	}
	if math.IsNaN(g.RadiusMeters) || g.RadiusMeters <= 0 {
		return fmt.Errorf("radius_meters: must be positive")
	}
	if err := g.Center.Validate(); err != nil {
		return fmt.Errorf("center %w", err)
	}
	if g.DelayStart < 0 || g.DelayStop < 0 {
		return fmt.Errorf("delay: must not be negative")
	}
	return nil
}

type LocationSample struct {
	DeviceID       string
	Coordinates    *Coordinates
	AccuracyMeters *float64
	CapturedAt     time.Time
}

func (s *LocationSample) Validate() error {
	if s.Coordinates == nil {
		return fmt.Errorf("coordinates: required")
	}
	if err := s.Coordinates.Validate(); err != nil {
		return err
	}
	if s.AccuracyMeters != nil && (math.IsNaN(*s.AccuracyMeters) || *s.AccuracyMeters < 0) {
		return fmt.Errorf("accuracy: must not be negative")
	}
	if s.CapturedAt.IsZero() {
		return fmt.Errorf("captured_at: required")
	}
	return nil
}

type GeofenceStatus struct {
	GeofenceID string    `json:"geofence_id"`
	IsInside   bool      `json:"is_inside"`
	LastUpdate time.Time `json:"last_update"`
}

type TransitionKind string

const (
	TransitionEnter TransitionKind = "enter"
	TransitionExit  TransitionKind = "exit"
)

type TransitionEvent struct {
	GeofenceID string         `json:"geofence_id"`
	Label      string         `json:"label"`
	Kind       TransitionKind `json:"kind"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type TransitionRecord struct {
	ID         string         `json:"id"`
	GeofenceID string         `json:"geofence_id"`
	Label      string         `json:"label"`
	Kind       TransitionKind `json:"kind"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type Settings struct {
	NotificationsEnabled bool `json:"notifications_enabled"`
	AutoTimerEnabled     bool `json:"auto_timer_enabled"`
}

func DefaultSettings() Settings {
	return Settings{NotificationsEnabled: true, AutoTimerEnabled: true}
}

func (s Settings) AutoTimerActive() bool {
	return s.NotificationsEnabled && s.AutoTimerEnabled
}
