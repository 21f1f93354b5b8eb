// Package store persists custody aggregates and their ledgers. It is pure I/O:
// transition rules and hashing live in the service and ledger packages.
package store

import (
	"context"
	"time"

	"veriseal/internal/custody/models"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
)

// DefaultTxTimeout bounds a custody transaction when the caller set no deadline.
const DefaultTxTimeout = 5 * time.Second

// Store is the data access surface. Inside RunInTx it is bound to one
// shipment's exclusive section; outside it reads committed state.
type Store interface {
	CreateShipment(ctx context.Context, shipment *models.Shipment) error
	FindShipment(ctx context.Context, shipmentID id.ShipmentID) (*models.Shipment, error)
	FindByQRToken(ctx context.Context, token string) (*models.Shipment, error)
	UpdateShipment(ctx context.Context, shipment *models.Shipment) error
	// AppendEvents adds events whose sequence numbers continue the ledger
	// exactly; a taken (shipment_id, sequence) fails with sentinel.ErrConflict.
	AppendEvents(ctx context.Context, events ...models.CustodyEvent) error
	ListEvents(ctx context.Context, shipmentID id.ShipmentID) ([]models.CustodyEvent, error)
	// LastEvent returns nil when the ledger is empty.
	LastEvent(ctx context.Context, shipmentID id.ShipmentID) (*models.CustodyEvent, error)
	ListShipments(ctx context.Context) ([]*models.Shipment, error)
}

// Repository adds the per-shipment transaction and snapshot reads.
type Repository interface {
	Store
	// RunInTx runs fn with exclusive access to one existing shipment. Writes
	// made through the store passed to fn land together when fn returns nil
	// and the context is still live; otherwise none land. A missing shipment
	// fails with sentinel.ErrNotFound before fn runs.
	RunInTx(ctx context.Context, shipmentID id.ShipmentID, fn func(tx Store) error) error
	// Snapshot reads a shipment and its full ledger as one consistent view.
	Snapshot(ctx context.Context, shipmentID id.ShipmentID) (*models.Shipment, []models.CustodyEvent, error)
}

// withTxTimeout applies DefaultTxTimeout when ctx carries no deadline.
func withTxTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	if timeout <= 0 {
		timeout = DefaultTxTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// timeoutError maps context expiry and cancellation to a persistence timeout.
func timeoutError(err error, msg string) error {
	return dErrors.Wrap(err, dErrors.CodePersistenceTimeout, msg)
}
