package service

import (
	"veriseal/internal/custody/models"
	id "veriseal/pkg/domain"
)

// RegisterCommand registers a new shipment. An empty Route selects the full
// catalog sequence; an empty RecipientPIN asks the engine to generate one.
type RegisterCommand struct {
	PackageType  string
	Route        []string
	RecipientPIN string
}

// Registration is the outcome of Register. PIN is the clear-text recipient
// PIN and is never stored or returned again.
type Registration struct {
	Shipment     *models.Shipment
	PIN          string
	PINGenerated bool
}

// ScanCommand records a checkpoint scan with the operator's decision.
type ScanCommand struct {
	ShipmentID   id.ShipmentID
	CheckpointID id.CheckpointID
	Reading      models.SensorReading
	Decision     models.Decision
	Notes        string
}

// DeviceTamperCommand records a reading the device reported between checkpoints.
type DeviceTamperCommand struct {
	ShipmentID id.ShipmentID
	Reading    models.SensorReading
	Notes      string
}

// ScanResult is the committed outcome of a scan.
type ScanResult struct {
	Shipment *models.Shipment
	Events   []models.CustodyEvent
}

// ShipmentSummary is the operator listing view of one shipment.
// CheckpointsPassed counts proceed scans; a stop where the shipment was
// returned is not passed.
type ShipmentSummary struct {
	Shipment          *models.Shipment
	CheckpointsPassed int
	LatestReading     *models.SensorReading
	EventCount        int
}

// LedgerVerification is the outcome of re-verifying one shipment's chain.
type LedgerVerification struct {
	ShipmentID id.ShipmentID
	Verified   bool
	HeadHash   string
	EventCount int
	FailedAt   *int64
	Reason     string
}
