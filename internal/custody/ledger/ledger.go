// Package ledger seals custody events into a per-shipment hash chain and
// verifies chains recomputed from genesis. Append is the only mutator.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"veriseal/internal/custody/models"
	"veriseal/internal/custody/store"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
)

const defaultVerifyParallelism = 8

// IntegrityError identifies the first event whose chain link does not hold.
type IntegrityError struct {
	ShipmentID id.ShipmentID
	Sequence   int64
	Reason     string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ledger of shipment %s broken at sequence %d: %s", e.ShipmentID, e.Sequence, e.Reason)
}

// AsIntegrityError extracts the IntegrityError carried by err, if any.
func AsIntegrityError(err error) (*IntegrityError, bool) {
	var ie *IntegrityError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// Ledger appends to and verifies custody ledgers held by a repository.
type Ledger struct {
	repo        store.Repository
	logger      *slog.Logger
	now         func() time.Time
	parallelism int
}

// Option configures a Ledger.
type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithClock sets the time source used for drafts without RecordedAt.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithVerifyParallelism bounds how many ledgers VerifyMany checks at once.
func WithVerifyParallelism(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.parallelism = n
		}
	}
}

func New(repo store.Repository, opts ...Option) *Ledger {
	l := &Ledger{
		repo:        repo,
		logger:      slog.Default(),
		now:         time.Now,
		parallelism: defaultVerifyParallelism,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append seals one draft and persists it in its own per-shipment transaction.
func (l *Ledger) Append(ctx context.Context, shipmentID id.ShipmentID, draft models.EventDraft) (models.CustodyEvent, error) {
	var sealed []models.CustodyEvent
	err := l.repo.RunInTx(ctx, shipmentID, func(tx store.Store) error {
		var err error
		sealed, err = l.AppendTx(ctx, tx, shipmentID, draft)
		return err
	})
	if err != nil {
		return models.CustodyEvent{}, err
	}
	return sealed[0], nil
}

// AppendTx seals drafts in order after the current head and stages them on
// tx. The caller must hold the shipment's exclusive section.
func (l *Ledger) AppendTx(ctx context.Context, tx store.Store, shipmentID id.ShipmentID, drafts ...models.EventDraft) ([]models.CustodyEvent, error) {
	if len(drafts) == 0 {
		return nil, nil
	}
	last, err := tx.LastEvent(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("read ledger head: %w", err)
	}
	pos := PositionAfter(shipmentID, last)
	events := make([]models.CustodyEvent, 0, len(drafts))
	for _, draft := range drafts {
		if draft.RecordedAt.IsZero() {
			draft.RecordedAt = l.now()
		}
		e, err := Seal(pos, draft)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
		pos = PositionAfter(shipmentID, &e)
	}
	if err := tx.AppendEvents(ctx, events...); err != nil {
		return nil, err
	}
	return events, nil
}

// ReadAll returns the committed ledger in sequence order.
func (l *Ledger) ReadAll(ctx context.Context, shipmentID id.ShipmentID) ([]models.CustodyEvent, error) {
	return l.repo.ListEvents(ctx, shipmentID)
}

// Verify recomputes the shipment's chain from genesis. A broken chain fails
// with CodeIntegrity wrapping an *IntegrityError.
func (l *Ledger) Verify(ctx context.Context, shipmentID id.ShipmentID) error {
	events, err := l.ReadAll(ctx, shipmentID)
	if err != nil {
		return err
	}
	if err := VerifyChain(shipmentID, events); err != nil {
		l.logger.ErrorContext(ctx, "custody ledger integrity check failed",
			"shipment_id", shipmentID.String(),
			"error", err,
		)
		return err
	}
	return nil
}

// VerifyChain checks that events form an unbroken chain from genesis with
// gapless sequence numbers 0..n-1. It reports the first offending sequence.
func VerifyChain(shipmentID id.ShipmentID, events []models.CustodyEvent) error {
	prev := GenesisHash
	for i, e := range events {
		want := int64(i)
		switch {
		case e.Sequence != want:
			return integrityError(shipmentID, want, fmt.Sprintf("expected sequence %d, found %d", want, e.Sequence))
		case e.ShipmentID != shipmentID:
			return integrityError(shipmentID, want, "event belongs to another shipment")
		case e.PrevHash != prev:
			return integrityError(shipmentID, want, "prev_hash does not match the preceding event")
		}
		hash, err := ComputeHash(e)
		if err != nil {
			return integrityError(shipmentID, want, "event cannot be serialized")
		}
		if hash != e.Hash {
			return integrityError(shipmentID, want, "recomputed hash does not match")
		}
		prev = e.Hash
	}
	return nil
}

func integrityError(shipmentID id.ShipmentID, seq int64, reason string) error {
	ie := &IntegrityError{ShipmentID: shipmentID, Sequence: seq, Reason: reason}
	return dErrors.Wrap(ie, dErrors.CodeIntegrity, fmt.Sprintf("custody ledger failed verification at sequence %d", seq))
}

// VerifyMany verifies several ledgers with bounded parallelism. The map holds
// the outcome per shipment (nil when intact); the returned error is set only
// when ctx ends before the sweep completes.
func (l *Ledger) VerifyMany(ctx context.Context, shipmentIDs []id.ShipmentID) (map[id.ShipmentID]error, error) {
	results := make(map[id.ShipmentID]error, len(shipmentIDs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.parallelism)
	for _, shipmentID := range shipmentIDs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := l.Verify(gctx, shipmentID)
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			mu.Lock()
			results[shipmentID] = err
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, dErrors.Wrap(err, dErrors.CodeTimeout, "ledger sweep interrupted")
	}
	return results, nil
}
