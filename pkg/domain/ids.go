package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "veriseal/pkg/domain-errors"
)

// ShipmentID identifies one custody aggregate.
// Invariant: a parsed ShipmentID is never the nil UUID.
type ShipmentID uuid.UUID

// NewShipmentID returns a fresh random shipment identifier.
func NewShipmentID() ShipmentID {
	return ShipmentID(uuid.New())
}

// ParseShipmentID constructs a ShipmentID from external input.
func ParseShipmentID(s string) (ShipmentID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ShipmentID{}, dErrors.New(dErrors.CodeInvalidInput, "shipment id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return ShipmentID{}, dErrors.New(dErrors.CodeInvalidInput, "shipment id must be a valid uuid")
	}
	if parsed == uuid.Nil {
		return ShipmentID{}, dErrors.New(dErrors.CodeInvalidInput, "shipment id must not be nil")
	}
	return ShipmentID(parsed), nil
}

func (id ShipmentID) String() string {
	return uuid.UUID(id).String()
}

func (id ShipmentID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// MarshalText keeps JSON and log output in canonical uuid form.
func (id ShipmentID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ShipmentID) UnmarshalText(b []byte) error {
	parsed, err := ParseShipmentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// CheckpointID is the catalog identifier of a checkpoint (e.g. "CP001").
type CheckpointID string

// ParseCheckpointID normalizes and validates a checkpoint identifier.
func ParseCheckpointID(s string) (CheckpointID, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "checkpoint id is required")
	}
	if len(s) > 32 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "checkpoint id must be at most 32 characters")
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return "", dErrors.New(dErrors.CodeInvalidInput, "checkpoint id contains invalid characters")
		}
	}
	return CheckpointID(s), nil
}

func (id CheckpointID) String() string {
	return string(id)
}
