package models

import (
	"time"

	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
)

// EventType is the kind of a custody ledger entry.
type EventType string

const (
	EventCheckpointScan EventType = "CHECKPOINT_SCAN"
	EventTamperDetected EventType = "TAMPER_DETECTED"
	EventDelivery       EventType = "DELIVERY"
	EventReturn         EventType = "RETURN"
)

// Decision is the operator's choice at a checkpoint.
type Decision string

const (
	DecisionProceed Decision = "proceed"
	DecisionReturn  Decision = "return"
	// DecisionNotApplicable marks events that carry no operator choice.
	DecisionNotApplicable Decision = "n/a"
)

// ParseDecision accepts only the choices an operator can make.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionProceed, DecisionReturn:
		return Decision(s), nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "decision must be proceed or return")
	}
}

// ViolationKind names one tamper rule that fired.
type ViolationKind string

const (
	ViolationTamperFlag  ViolationKind = "TAMPER_FLAG"
	ViolationLoopBroken  ViolationKind = "LOOP_BROKEN"
	ViolationShock       ViolationKind = "SHOCK"
	ViolationTemperature ViolationKind = "TEMPERATURE"
)

// ViolationOrder is the canonical order of violation kinds.
var ViolationOrder = []ViolationKind{
	ViolationTamperFlag,
	ViolationLoopBroken,
	ViolationShock,
	ViolationTemperature,
}

// CustodyEvent is an immutable, hash-linked ledger entry.
type CustodyEvent struct {
	ShipmentID   id.ShipmentID   `json:"shipment_id"`
	Sequence     int64           `json:"sequence_number"`
	Type         EventType       `json:"event_type"`
	CheckpointID id.CheckpointID `json:"checkpoint_id,omitempty"`
	Reading      *SensorReading  `json:"sensor_reading,omitempty"`
	Violations   []ViolationKind `json:"violations,omitempty"`
	Decision     Decision        `json:"decision"`
	Notes        string          `json:"notes,omitempty"`
	OperatorID   string          `json:"operator_id,omitempty"`
	PrevHash     string          `json:"prev_hash"`
	Hash         string          `json:"this_hash"`
	RecordedAt   time.Time       `json:"recorded_at"`
}

// Clone returns a deep copy.
func (e CustodyEvent) Clone() CustodyEvent {
	if e.Reading != nil {
		r := *e.Reading
		if r.GPSLocation != nil {
			loc := *r.GPSLocation
			r.GPSLocation = &loc
		}
		e.Reading = &r
	}
	if e.Violations != nil {
		e.Violations = append([]ViolationKind(nil), e.Violations...)
	}
	return e
}

// EventDraft is an event before the ledger assigns sequence and hashes.
type EventDraft struct {
	Type         EventType
	CheckpointID id.CheckpointID
	Reading      *SensorReading
	Violations   []ViolationKind
	Decision     Decision
	Notes        string
	OperatorID   string
	RecordedAt   time.Time
}
