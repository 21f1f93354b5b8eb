// Package lockout layers a PIN attempt limit over the recipient access gate.
// It wraps any Verifier without changing its semantics for allowed attempts.
package lockout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"veriseal/internal/disclosure/models"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
	"veriseal/pkg/platform/audit"
)

// Config bounds recipient PIN attempts per shipment.
type Config struct {
	MaxAttempts  int
	Window       time.Duration
	LockDuration time.Duration
}

// DefaultConfig allows five failures per 15 minutes, then locks for 15 minutes.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		Window:       15 * time.Minute,
		LockDuration: 15 * time.Minute,
	}
}

// Verifier is the gate being protected.
type Verifier interface {
	VerifyPIN(ctx context.Context, shipmentID id.ShipmentID, pin string) (*models.DisclosureToken, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Gate rejects PIN checks for locked shipments and locks a shipment once
// MaxAttempts wrong PINs accumulate within Window. Each attempt is reserved
// before it reaches the verifier, so at most MaxAttempts checks are in
// flight or failed per window. A success clears the count.
type Gate struct {
	next           Verifier
	store          Store
	config         Config
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(g *Gate) {
		g.auditPublisher = publisher
	}
}

func WithConfig(cfg Config) Option {
	return func(g *Gate) {
		g.config = cfg
	}
}

func New(next Verifier, store Store, opts ...Option) (*Gate, error) {
	if next == nil {
		return nil, errors.New("verifier is required")
	}
	if store == nil {
		return nil, errors.New("lockout store is required")
	}
	g := &Gate{
		next:   next,
		store:  store,
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.config.MaxAttempts <= 0 || g.config.Window <= 0 || g.config.LockDuration <= 0 {
		return nil, errors.New("lockout limits must be positive")
	}
	return g, nil
}

// VerifyPIN reserves an attempt, delegates, and accounts for the outcome.
func (g *Gate) VerifyPIN(ctx context.Context, shipmentID id.ShipmentID, pin string) (*models.DisclosureToken, error) {
	key := shipmentID.String()
	attempt, locked, err := g.store.Reserve(ctx, key, g.config.Window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reserve pin attempt")
	}
	if locked > 0 {
		return nil, lockedError(locked)
	}
	if attempt > g.config.MaxAttempts {
		// The last allowed attempt is still being checked.
		g.release(ctx, key)
		return nil, lockedError(g.config.LockDuration)
	}

	tok, err := g.next.VerifyPIN(ctx, shipmentID, pin)
	if err == nil {
		if clearErr := g.store.Clear(ctx, key); clearErr != nil {
			g.logger.WarnContext(ctx, "failed to clear pin lockout", "shipment_id", key, "error", clearErr)
		}
		return tok, nil
	}
	if !dErrors.HasCode(err, dErrors.CodeIncorrectPin) {
		g.release(ctx, key)
		return nil, err
	}
	if attempt < g.config.MaxAttempts {
		return nil, err
	}

	if lockErr := g.store.Lock(ctx, key, g.config.LockDuration); lockErr != nil {
		return nil, dErrors.Wrap(lockErr, dErrors.CodeInternal, "failed to lock pin checks")
	}
	g.logger.WarnContext(ctx, "recipient pin checks locked",
		"shipment_id", key,
		"failures", attempt,
		"lock_duration", g.config.LockDuration.String(),
	)
	if g.auditPublisher != nil {
		g.auditPublisher.Emit(ctx, audit.Event{
			ShipmentID: key,
			Action:     audit.EventRecipientLockedOut,
			Reason:     fmt.Sprintf("%d failed pin attempts", attempt),
			Severity:   audit.SeverityCritical,
		})
	}
	return nil, err
}

func (g *Gate) release(ctx context.Context, key string) {
	if err := g.store.Release(ctx, key); err != nil {
		g.logger.WarnContext(ctx, "failed to release pin attempt", "shipment_id", key, "error", err)
	}
}

func lockedError(remaining time.Duration) error {
	seconds := int(math.Ceil(remaining.Seconds()))
	return dErrors.New(dErrors.CodeTooManyRequests, fmt.Sprintf("too many incorrect pins; try again in %d seconds", seconds))
}
