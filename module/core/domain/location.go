package domain

import "time"

// SampleRecord is a location sample as received from a device, kept for
// diagnostics of the evaluation history.
type SampleRecord struct {
	DeviceID       string    `json:"device_id"`
	Lat            float64   `json:"latitude"`
	Lon            float64   `json:"longitude"`
	AccuracyMeters *float64  `json:"accuracy,omitempty"`
	CapturedAt     time.Time `json:"captured_at"`
}

func (r *SampleRecord) Sample() *LocationSample {
	return &LocationSample{
		DeviceID:       r.DeviceID,
		Coordinates:    &Coordinates{Lat: r.Lat, Lon: r.Lon},
		AccuracyMeters: r.AccuracyMeters,
		CapturedAt:     r.CapturedAt,
	}
}

type Device struct {
	DeviceID string `json:"device_id"`
}

type HistoryQuery struct {
	DeviceID string
	Start    time.Time
	End      time.Time
}
