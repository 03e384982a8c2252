package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSample          = errors.New("invalid location sample")
	ErrInvalidGeofence        = errors.New("invalid geofence definition")
	ErrStorageRead            = errors.New("geofence status read failed")
	ErrStorageWrite           = errors.New("geofence status write failed")
	ErrTransitionNotPersisted = errors.New("geofence transition not persisted")
	ErrStatusNotFound         = errors.New("geofence status not found")
	ErrSessionNotFound        = errors.New("no active session")
	ErrNotMonitoring          = errors.New("geofence monitoring not started")
	ErrUnknownDevice          = errors.New("device not bound to this timer")
	ErrInvalidTimerMode       = errors.New("invalid timer mode")
)

// GeofenceError scopes a failure to one geofence of an evaluation pass.
type GeofenceError struct {
	GeofenceID string
	Kind       error
	Err        error
}

func (e *GeofenceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("geofence %s: %v", e.GeofenceID, e.Kind)
	}
	return fmt.Sprintf("geofence %s: %v: %v", e.GeofenceID, e.Kind, e.Err)
}

func (e *GeofenceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// TransitionPersistError is returned when a transition was computed but its
// status could not be written. The event has not been emitted; it must only
// be released once Status is stored.
type TransitionPersistError struct {
	Status GeofenceStatus
	Event  TransitionEvent
	Err    error
}

func (e *TransitionPersistError) Error() string {
	return fmt.Sprintf("geofence %s: %s transition not persisted: %v", e.Status.GeofenceID, e.Event.Kind, e.Err)
}

func (e *TransitionPersistError) Unwrap() []error {
	return []error{ErrTransitionNotPersisted, ErrStorageWrite, e.Err}
}

// SplitErrors flattens an errors.Join tree one level deep.
func SplitErrors(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		if _, isGeofence := err.(*GeofenceError); !isGeofence {
			if _, isPersist := err.(*TransitionPersistError); !isPersist {
				return joined.Unwrap()
			}
		}
	}
	return []error{err}
}
