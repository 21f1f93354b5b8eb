package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing.
type EventCategory string

const (
	// CategorySecurity covers events relevant to security monitoring and forensics:
	// tamper detections, PIN failures, lockouts, integrity failures, disclosures.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine custody activity useful for operational visibility.
	CategoryOperations EventCategory = "operations"
)

type AuditEvent string

const (
	// Custody events
	EventShipmentRegistered AuditEvent = "shipment_registered"
	EventTamperDetected     AuditEvent = "tamper_detected"
	EventShipmentReturned   AuditEvent = "shipment_returned"
	EventShipmentDelivered  AuditEvent = "shipment_delivered"

	// Recipient disclosure events
	EventRecipientPINFailed  AuditEvent = "recipient_pin_failed"
	EventRecipientVerified   AuditEvent = "recipient_verified"
	EventRecipientLockedOut  AuditEvent = "recipient_locked_out"
	EventReportDisclosed     AuditEvent = "report_disclosed"
	EventDisclosureRejected  AuditEvent = "disclosure_rejected"

	// Ledger events
	EventLedgerIntegrityFailed AuditEvent = "ledger_integrity_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventTamperDetected:        CategorySecurity,
	EventShipmentReturned:      CategorySecurity,
	EventRecipientPINFailed:    CategorySecurity,
	EventRecipientLockedOut:    CategorySecurity,
	EventReportDisclosed:       CategorySecurity,
	EventDisclosureRejected:    CategorySecurity,
	EventLedgerIntegrityFailed: CategorySecurity,

	EventShipmentRegistered: CategoryOperations,
	EventShipmentDelivered:  CategoryOperations,
	EventRecipientVerified:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Severity levels for SIEM routing.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is emitted from domain logic to capture security-relevant outcomes.
// It is transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID         string
	Category   EventCategory
	Timestamp  time.Time
	ShipmentID string
	Action     AuditEvent
	Reason     string
	Severity   Severity
	RequestID  string
	// ActorID is the asserted operator identity, empty for recipient actions.
	ActorID string
	IP      string
	// Device is a coarse device label derived from the User-Agent.
	Device string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByShipment(ctx context.Context, shipmentID string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
