package models

import (
	"time"

	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
)

// Status is the custody status of a shipment.
type Status string

const (
	StatusCreated      Status = "CREATED"
	StatusAtCheckpoint Status = "AT_CHECKPOINT"
	// StatusInTransit is a recognized persisted value; no transition targets it.
	StatusInTransit Status = "IN_TRANSIT"
	StatusDelivered Status = "DELIVERED"
	StatusReturned  Status = "RETURNED_TO_SENDER"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusAtCheckpoint, StatusInTransit, StatusDelivered, StatusReturned:
		return true
	}
	return false
}

// IsTerminal reports whether no further custody transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusReturned
}

func (s Status) String() string {
	return string(s)
}

// Shipment is the custody aggregate, one per shipment. It is mutated only
// through the Apply methods, always inside the shipment's exclusive section.
//
// Invariants:
//   - IsTampered is monotonic: once true it is never reset.
//   - TamperCount >= 0 and only ever increases.
//   - CurrentCheckpointIndex is -1 until the first proceed scan and then the
//     route index of CurrentCheckpointID.
//   - Terminal statuses (DELIVERED, RETURNED_TO_SENDER) accept no transition.
type Shipment struct {
	ID                     id.ShipmentID
	PackageType            id.PackageType
	Route                  Route
	Status                 Status
	CurrentCheckpointID    id.CheckpointID
	CurrentCheckpointIndex int
	IsTampered             bool
	TamperCount            int
	RecipientPINHash       string
	QRToken                string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// NewShipment constructs a freshly registered shipment in CREATED.
func NewShipment(shipmentID id.ShipmentID, packageType id.PackageType, route Route, pinHash, qrToken string, now time.Time) (*Shipment, error) {
	if shipmentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "shipment id is required")
	}
	if packageType == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "package type is required")
	}
	if len(route) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "route must contain at least one checkpoint")
	}
	for i, cp := range route {
		if cp.SequenceIndex != i {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "route stops must be indexed in order")
		}
	}
	if pinHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "recipient pin hash is required")
	}
	now = NormalizeTime(now)
	return &Shipment{
		ID:                     shipmentID,
		PackageType:            packageType,
		Route:                  route.Clone(),
		Status:                 StatusCreated,
		CurrentCheckpointIndex: -1,
		RecipientPINHash:       pinHash,
		QRToken:                qrToken,
		CreatedAt:              now,
		UpdatedAt:              now,
	}, nil
}

// IsTerminal reports whether the shipment accepts no further scans.
func (s *Shipment) IsTerminal() bool {
	return s.Status.IsTerminal()
}

// CanScan checks the scan preconditions in order: not terminal, checkpoint on
// the route, checkpoint is the next stop. It returns the route stop on success.
func (s *Shipment) CanScan(cpID id.CheckpointID) (Checkpoint, error) {
	if s.IsTerminal() {
		return Checkpoint{}, dErrors.New(dErrors.CodeTerminalState, "shipment is "+s.Status.String()+" and accepts no further scans")
	}
	cp, ok := s.Route.Find(cpID)
	if !ok {
		return Checkpoint{}, dErrors.New(dErrors.CodeValidation, "checkpoint "+cpID.String()+" is not on this shipment's route")
	}
	if cp.SequenceIndex != s.CurrentCheckpointIndex+1 {
		return Checkpoint{}, dErrors.New(dErrors.CodeOutOfSequence, "checkpoint "+cpID.String()+" is out of sequence")
	}
	return cp, nil
}

// CanReportTamper checks that an out-of-band tamper report may be recorded.
func (s *Shipment) CanReportTamper() error {
	if s.IsTerminal() {
		return dErrors.New(dErrors.CodeTerminalState, "shipment is "+s.Status.String()+" and accepts no further events")
	}
	return nil
}

// ApplyTamper records a detected violation.
func (s *Shipment) ApplyTamper(now time.Time) {
	s.IsTampered = true
	s.TamperCount++
	s.UpdatedAt = NormalizeTime(now)
}

// ApplyProceed advances custody to cp. It reports whether cp was the final
// stop, in which case the shipment is DELIVERED.
func (s *Shipment) ApplyProceed(cp Checkpoint, now time.Time) (delivered bool) {
	s.CurrentCheckpointID = cp.ID
	s.CurrentCheckpointIndex = cp.SequenceIndex
	s.UpdatedAt = NormalizeTime(now)
	if cp.SequenceIndex == s.Route.LastIndex() {
		s.Status = StatusDelivered
		return true
	}
	s.Status = StatusAtCheckpoint
	return false
}

// ApplyReturn aborts custody at cp; RETURNED_TO_SENDER is terminal.
func (s *Shipment) ApplyReturn(cp Checkpoint, now time.Time) {
	s.CurrentCheckpointID = cp.ID
	s.CurrentCheckpointIndex = cp.SequenceIndex
	s.Status = StatusReturned
	s.UpdatedAt = NormalizeTime(now)
}

// Clone returns a deep copy.
func (s *Shipment) Clone() *Shipment {
	if s == nil {
		return nil
	}
	c := *s
	c.Route = s.Route.Clone()
	return &c
}
