// Package store remembers issued disclosure tokens until they are consumed.
// Consumption is atomic: of two concurrent consumers exactly one succeeds.
package store

import (
	"context"
	"time"
)

// TokenStore registers issued jtis and consumes them once.
type TokenStore interface {
	// Register records jti as unconsumed for shipmentID until ttl elapses.
	Register(ctx context.Context, jti, shipmentID string, ttl time.Duration) error
	// Consume atomically removes jti and returns the shipment it was issued
	// for. A missing, expired or already consumed jti fails with
	// sentinel.ErrAlreadyUsed.
	Consume(ctx context.Context, jti string) (string, error)
}
