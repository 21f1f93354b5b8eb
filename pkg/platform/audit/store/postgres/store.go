package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	audit "veriseal/pkg/platform/audit"
	txcontext "veriseal/pkg/platform/tx"
)

// Store persists audit events in the audit_events table.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts an audit event. Events without an ID get one; a replayed ID is ignored.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, shipment_id, action, reason,
			severity, request_id, actor_id, ip, device
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := txcontext.QuerierFrom(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		string(event.Category),
		event.Timestamp,
		event.ShipmentID,
		string(event.Action),
		event.Reason,
		string(event.Severity),
		event.RequestID,
		event.ActorID,
		event.IP,
		event.Device,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByShipment returns events for a shipment, oldest first.
func (s *Store) ListByShipment(ctx context.Context, shipmentID string) ([]audit.Event, error) {
	query := `
		SELECT id, category, timestamp, shipment_id, action, reason,
			   severity, request_id, actor_id, ip, device
		FROM audit_events
		WHERE shipment_id = $1
		ORDER BY timestamp ASC
	`
	rows, err := s.db.QueryContext(ctx, query, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT id, category, timestamp, shipment_id, action, reason,
			   severity, request_id, actor_id, ip, device
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event    audit.Event
			category string
			action   string
			severity string
		)
		err := rows.Scan(
			&event.ID,
			&category,
			&event.Timestamp,
			&event.ShipmentID,
			&action,
			&event.Reason,
			&severity,
			&event.RequestID,
			&event.ActorID,
			&event.IP,
			&event.Device,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		event.Action = audit.AuditEvent(action)
		event.Severity = audit.Severity(severity)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
