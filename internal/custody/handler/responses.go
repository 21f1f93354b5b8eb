package handler

import (
	"time"

	"veriseal/internal/custody/ledger"
	"veriseal/internal/custody/models"
	"veriseal/internal/custody/service"
	id "veriseal/pkg/domain"
)

// ShipmentResponse is the operator view of a shipment. The PIN hash never
// leaves the engine.
type ShipmentResponse struct {
	ShipmentID             id.ShipmentID       `json:"shipment_id"`
	PackageType            id.PackageType      `json:"package_type"`
	Status                 models.Status       `json:"status"`
	CurrentCheckpointID    id.CheckpointID     `json:"current_checkpoint_id,omitempty"`
	CurrentCheckpointIndex int                 `json:"current_checkpoint_index"`
	IsTampered             bool                `json:"is_tampered"`
	TamperCount            int                 `json:"tamper_count"`
	Route                  []models.Checkpoint `json:"route"`
	QRToken                string              `json:"qr_token"`
	CreatedAt              time.Time           `json:"created_at"`
	UpdatedAt              time.Time           `json:"updated_at"`
}

func FromShipment(sh *models.Shipment) ShipmentResponse {
	route := sh.Route
	if route == nil {
		route = models.Route{}
	}
	return ShipmentResponse{
		ShipmentID:             sh.ID,
		PackageType:            sh.PackageType,
		Status:                 sh.Status,
		CurrentCheckpointID:    sh.CurrentCheckpointID,
		CurrentCheckpointIndex: sh.CurrentCheckpointIndex,
		IsTampered:             sh.IsTampered,
		TamperCount:            sh.TamperCount,
		Route:                  route,
		QRToken:                sh.QRToken,
		CreatedAt:              sh.CreatedAt,
		UpdatedAt:              sh.UpdatedAt,
	}
}

// RegisterShipmentResponse carries the clear-text PIN exactly once.
type RegisterShipmentResponse struct {
	ShipmentResponse
	RecipientPIN string `json:"recipient_pin"`
	PINGenerated bool   `json:"pin_generated"`
}

// EventsResponse lists committed events with the resulting shipment state.
type EventsResponse struct {
	Shipment ShipmentResponse      `json:"shipment"`
	Events   []models.CustodyEvent `json:"events"`
}

func FromScanResult(res *service.ScanResult) EventsResponse {
	events := res.Events
	if events == nil {
		events = []models.CustodyEvent{}
	}
	return EventsResponse{Shipment: FromShipment(res.Shipment), Events: events}
}

type ShipmentSummaryResponse struct {
	ShipmentResponse
	CheckpointsPassed int                   `json:"checkpoints_passed"`
	TotalCheckpoints  int                   `json:"total_checkpoints"`
	EventCount        int                   `json:"event_count"`
	LatestReading     *models.SensorReading `json:"latest_reading,omitempty"`
}

type ShipmentListResponse struct {
	Shipments []ShipmentSummaryResponse `json:"shipments"`
	Count     int                       `json:"count"`
}

func FromSummaries(summaries []service.ShipmentSummary) ShipmentListResponse {
	out := make([]ShipmentSummaryResponse, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, ShipmentSummaryResponse{
			ShipmentResponse:  FromShipment(sum.Shipment),
			CheckpointsPassed: sum.CheckpointsPassed,
			TotalCheckpoints:  len(sum.Shipment.Route),
			EventCount:        sum.EventCount,
			LatestReading:     sum.LatestReading,
		})
	}
	return ShipmentListResponse{Shipments: out, Count: len(out)}
}

type LedgerResponse struct {
	ShipmentID id.ShipmentID         `json:"shipment_id"`
	HeadHash   string                `json:"head_hash"`
	Events     []models.CustodyEvent `json:"events"`
}

func FromLedger(shipmentID id.ShipmentID, events []models.CustodyEvent) LedgerResponse {
	if events == nil {
		events = []models.CustodyEvent{}
	}
	return LedgerResponse{ShipmentID: shipmentID, HeadHash: ledger.Head(events), Events: events}
}

type LedgerVerificationResponse struct {
	ShipmentID id.ShipmentID `json:"shipment_id"`
	Verified   bool          `json:"verified"`
	HeadHash   string        `json:"head_hash"`
	EventCount int           `json:"event_count"`
	FailedAt   *int64        `json:"failed_at,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

func FromVerification(v *service.LedgerVerification) LedgerVerificationResponse {
	return LedgerVerificationResponse{
		ShipmentID: v.ShipmentID,
		Verified:   v.Verified,
		HeadHash:   v.HeadHash,
		EventCount: v.EventCount,
		FailedAt:   v.FailedAt,
		Reason:     v.Reason,
	}
}

// QRResolveResponse confirms a label belongs to a registered shipment and
// nothing more.
type QRResolveResponse struct {
	ShipmentID id.ShipmentID `json:"shipment_id"`
}
