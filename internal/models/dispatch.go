package models

import (
	"fmt"
	"time"
)

// Outcome is what the dispatcher did with an event.
type Outcome string

const (
	OutcomeOK             Outcome = "ok"
	OutcomeSkipped        Outcome = "skipped"
	OutcomeDropped        Outcome = "dropped"
	OutcomeRetryScheduled Outcome = "retry_scheduled"
)

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeOK, OutcomeSkipped, OutcomeDropped, OutcomeRetryScheduled:
		return true
	}
	return false
}

// DispatchRecord is the persisted trace of one dispatch attempt.
type DispatchRecord struct {
	id           string
	Sequence     int
	Action       ActionKind
	Volume       int
	Outcome      Outcome
	ErrorKind    string
	ErrorMessage string
	DeviceID     string
	TrackID      string
	WasPlaying   bool
	Attempt      int
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewDispatchRecord creates a record for action with the given outcome, stamped now.
func NewDispatchRecord(action GestureAction, outcome Outcome) *DispatchRecord {
	now := time.Now()
	return &DispatchRecord{
		Action:    action.Kind(),
		Volume:    action.Volume(),
		Outcome:   outcome,
		Attempt:   1,
		createdAt: now,
		updatedAt: now,
	}
}

func (r *DispatchRecord) ID() string                { return r.id }
func (r *DispatchRecord) SetID(id string)           { r.id = id }
func (r *DispatchRecord) CreatedAt() time.Time      { return r.createdAt }
func (r *DispatchRecord) SetCreatedAt(t time.Time)  { r.createdAt = t }
func (r *DispatchRecord) UpdatedAt() time.Time      { return r.updatedAt }
func (r *DispatchRecord) SetUpdatedAt(t time.Time)  { r.updatedAt = t }
func (r *DispatchRecord) DeletedAt() *time.Time     { return r.deletedAt }
func (r *DispatchRecord) SetDeletedAt(t *time.Time) { r.deletedAt = t }

// GestureAction rebuilds the action the record was created from.
func (r *DispatchRecord) GestureAction() GestureAction {
	if r.Action == ActionVolumeSet {
		return VolumeSet(r.Volume)
	}
	return GestureAction{kind: r.Action}
}

// Validate checks that the record is storable.
func (r *DispatchRecord) Validate() error {
	if r.Action == ActionNone {
		return fmt.Errorf("dispatch record has no action")
	}
	if _, ok := actionNames[r.Action]; !ok {
		return fmt.Errorf("dispatch record has unknown action %d", int(r.Action))
	}
	if !r.Outcome.Valid() {
		return fmt.Errorf("dispatch record has unknown outcome %q", r.Outcome)
	}
	if r.Volume < 0 || r.Volume > 100 {
		return fmt.Errorf("dispatch record volume %d out of range", r.Volume)
	}
	if r.Attempt < 1 {
		return fmt.Errorf("dispatch record attempt must be positive")
	}
	return nil
}
