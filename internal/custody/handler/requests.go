package handler

import (
	"strings"

	"veriseal/internal/custody/models"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
)

const (
	maxRouteLength = 64
	maxNotesLength = 500
)

// RegisterShipmentRequest is the body of POST /shipments.
type RegisterShipmentRequest struct {
	PackageType  string   `json:"package_type"`
	Route        []string `json:"route"`
	RecipientPIN string   `json:"recipient_pin"`
}

func (r *RegisterShipmentRequest) Normalize() {
	r.PackageType = strings.ToLower(strings.TrimSpace(r.PackageType))
	r.RecipientPIN = strings.TrimSpace(r.RecipientPIN)
	for i := range r.Route {
		r.Route[i] = strings.TrimSpace(r.Route[i])
	}
}

// Validate implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterShipmentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Route) > maxRouteLength {
		return dErrors.New(dErrors.CodeValidation, "route is too long")
	}
	if r.PackageType == "" {
		return dErrors.New(dErrors.CodeValidation, "package_type is required")
	}
	return nil
}

// ScanRequest is the body of POST /shipments/{id}/scans.
type ScanRequest struct {
	CheckpointID string                `json:"checkpoint_id"`
	Reading      *models.SensorReading `json:"sensor_data"`
	Decision     string                `json:"decision"`
	Notes        string                `json:"notes"`

	parsedCheckpointID id.CheckpointID
}

func (r *ScanRequest) Normalize() {
	r.CheckpointID = strings.TrimSpace(r.CheckpointID)
	r.Decision = strings.ToLower(strings.TrimSpace(r.Decision))
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *ScanRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Notes) > maxNotesLength {
		return dErrors.New(dErrors.CodeValidation, "notes must be at most 500 characters")
	}
	if r.CheckpointID == "" {
		return dErrors.New(dErrors.CodeValidation, "checkpoint_id is required")
	}
	cpID, err := id.ParseCheckpointID(r.CheckpointID)
	if err != nil {
		return err
	}
	r.parsedCheckpointID = cpID
	if r.Reading == nil {
		return dErrors.New(dErrors.CodeInvalidReading, "sensor_data is required")
	}
	if r.Decision == "" {
		return dErrors.New(dErrors.CodeValidation, "decision is required")
	}
	return nil
}

// ParsedCheckpointID returns the validated checkpoint ID.
func (r *ScanRequest) ParsedCheckpointID() id.CheckpointID {
	return r.parsedCheckpointID
}

// DeviceTamperRequest is the body of POST /shipments/{id}/device-tamper.
type DeviceTamperRequest struct {
	Reading *models.SensorReading `json:"sensor_data"`
	Notes   string                `json:"notes"`
}

func (r *DeviceTamperRequest) Normalize() {
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *DeviceTamperRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Notes) > maxNotesLength {
		return dErrors.New(dErrors.CodeValidation, "notes must be at most 500 characters")
	}
	if r.Reading == nil {
		return dErrors.New(dErrors.CodeInvalidReading, "sensor_data is required")
	}
	return nil
}

// VerifyRecipientRequest is the body of POST /recipient/verify.
type VerifyRecipientRequest struct {
	ShipmentID string `json:"shipment_id"`
	PIN        string `json:"pin"`

	parsedShipmentID id.ShipmentID
}

func (r *VerifyRecipientRequest) Normalize() {
	r.ShipmentID = strings.TrimSpace(r.ShipmentID)
}

// Validate only checks the shipment ID. PIN format errors must look exactly
// like wrong PINs, so the PIN is left to the gate.
func (r *VerifyRecipientRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.ShipmentID == "" {
		return dErrors.New(dErrors.CodeValidation, "shipment_id is required")
	}
	shipmentID, err := id.ParseShipmentID(r.ShipmentID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid shipment_id")
	}
	r.parsedShipmentID = shipmentID
	return nil
}

func (r *VerifyRecipientRequest) ParsedShipmentID() id.ShipmentID {
	return r.parsedShipmentID
}
