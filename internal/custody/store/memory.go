package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"veriseal/internal/custody/models"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
	"veriseal/pkg/platform/sentinel"
)

// InMemoryStore keeps custody state in process memory. Writers on one shipment
// are serialized by a keyed lock; readers take a per-record read lock so they
// never observe a half-applied commit and never wait on other shipments.
type InMemoryStore struct {
	mu        sync.RWMutex
	shipments map[id.ShipmentID]*record
	qrTokens  map[string]id.ShipmentID
	locks     *keyedLock
	timeout   time.Duration
}

type record struct {
	mu       sync.RWMutex
	shipment *models.Shipment
	events   []models.CustodyEvent
}

// MemoryOption configures an InMemoryStore.
type MemoryOption func(*InMemoryStore)

// WithMemoryTxTimeout overrides DefaultTxTimeout.
func WithMemoryTxTimeout(d time.Duration) MemoryOption {
	return func(s *InMemoryStore) {
		s.timeout = d
	}
}

func NewInMemory(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		shipments: make(map[id.ShipmentID]*record),
		qrTokens:  make(map[string]id.ShipmentID),
		locks:     newKeyedLock(),
		timeout:   DefaultTxTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) record(shipmentID id.ShipmentID) (*record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.shipments[shipmentID]
	return rec, ok
}

func (s *InMemoryStore) CreateShipment(_ context.Context, shipment *models.Shipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.shipments[shipment.ID]; exists {
		return sentinel.ErrConflict
	}
	if shipment.QRToken != "" {
		if _, taken := s.qrTokens[shipment.QRToken]; taken {
			return sentinel.ErrConflict
		}
		s.qrTokens[shipment.QRToken] = shipment.ID
	}
	s.shipments[shipment.ID] = &record{shipment: shipment.Clone()}
	return nil
}

func (s *InMemoryStore) FindShipment(_ context.Context, shipmentID id.ShipmentID) (*models.Shipment, error) {
	rec, ok := s.record(shipmentID)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return rec.shipment.Clone(), nil
}

func (s *InMemoryStore) FindByQRToken(ctx context.Context, token string) (*models.Shipment, error) {
	s.mu.RLock()
	shipmentID, ok := s.qrTokens[token]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.FindShipment(ctx, shipmentID)
}

// UpdateShipment outside a transaction replaces the aggregate under the record lock.
func (s *InMemoryStore) UpdateShipment(_ context.Context, shipment *models.Shipment) error {
	rec, ok := s.record(shipment.ID)
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.shipment = shipment.Clone()
	return nil
}

func (s *InMemoryStore) AppendEvents(_ context.Context, events ...models.CustodyEvent) error {
	if len(events) == 0 {
		return nil
	}
	rec, ok := s.record(events[0].ShipmentID)
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if err := checkContinuation(rec.events, events); err != nil {
		return err
	}
	for _, e := range events {
		rec.events = append(rec.events, e.Clone())
	}
	return nil
}

func (s *InMemoryStore) ListEvents(_ context.Context, shipmentID id.ShipmentID) ([]models.CustodyEvent, error) {
	rec, ok := s.record(shipmentID)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return cloneEvents(rec.events), nil
}

func (s *InMemoryStore) LastEvent(_ context.Context, shipmentID id.ShipmentID) (*models.CustodyEvent, error) {
	rec, ok := s.record(shipmentID)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	if len(rec.events) == 0 {
		return nil, nil
	}
	last := rec.events[len(rec.events)-1].Clone()
	return &last, nil
}

// ListShipments returns all shipments, newest first.
func (s *InMemoryStore) ListShipments(_ context.Context) ([]*models.Shipment, error) {
	s.mu.RLock()
	recs := make([]*record, 0, len(s.shipments))
	for _, rec := range s.shipments {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	out := make([]*models.Shipment, 0, len(recs))
	for _, rec := range recs {
		rec.mu.RLock()
		out = append(out, rec.shipment.Clone())
		rec.mu.RUnlock()
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) Snapshot(_ context.Context, shipmentID id.ShipmentID) (*models.Shipment, []models.CustodyEvent, error) {
	rec, ok := s.record(shipmentID)
	if !ok {
		return nil, nil, sentinel.ErrNotFound
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return rec.shipment.Clone(), cloneEvents(rec.events), nil
}

// RunInTx stages every write made by fn and applies them in one step under
// the record lock. A non-nil error from fn, or a context that ended while fn
// ran, discards the staged writes.
func (s *InMemoryStore) RunInTx(ctx context.Context, shipmentID id.ShipmentID, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return timeoutError(err, "transaction aborted: context cancelled")
	}
	ctx, cancel := withTxTimeout(ctx, s.timeout)
	defer cancel()

	release, err := s.locks.acquire(ctx, shipmentID.String())
	if err != nil {
		return timeoutError(err, "timed out waiting for shipment lock")
	}
	defer release()

	rec, ok := s.record(shipmentID)
	if !ok {
		return sentinel.ErrNotFound
	}

	tx := &memoryTx{base: s, shipmentID: shipmentID, rec: rec}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return timeoutError(err, "transaction aborted before commit")
	}
	return tx.commit()
}

// memoryTx is the staging view handed to RunInTx callbacks.
type memoryTx struct {
	base       *InMemoryStore
	shipmentID id.ShipmentID
	rec        *record
	shipment   *models.Shipment
	staged     []models.CustodyEvent
}

func (t *memoryTx) guard(shipmentID id.ShipmentID) error {
	if shipmentID != t.shipmentID {
		return dErrors.New(dErrors.CodeInvariantViolation, "transaction is bound to shipment "+t.shipmentID.String())
	}
	return nil
}

func (t *memoryTx) CreateShipment(context.Context, *models.Shipment) error {
	return dErrors.New(dErrors.CodeInvariantViolation, "cannot create a shipment inside a shipment transaction")
}

func (t *memoryTx) FindShipment(ctx context.Context, shipmentID id.ShipmentID) (*models.Shipment, error) {
	if err := t.guard(shipmentID); err != nil {
		return nil, err
	}
	if t.shipment != nil {
		return t.shipment.Clone(), nil
	}
	return t.base.FindShipment(ctx, shipmentID)
}

func (t *memoryTx) FindByQRToken(ctx context.Context, token string) (*models.Shipment, error) {
	return t.base.FindByQRToken(ctx, token)
}

func (t *memoryTx) UpdateShipment(_ context.Context, shipment *models.Shipment) error {
	if err := t.guard(shipment.ID); err != nil {
		return err
	}
	t.shipment = shipment.Clone()
	return nil
}

func (t *memoryTx) AppendEvents(_ context.Context, events ...models.CustodyEvent) error {
	for _, e := range events {
		if err := t.guard(e.ShipmentID); err != nil {
			return err
		}
	}
	t.rec.mu.RLock()
	committed := len(t.rec.events)
	t.rec.mu.RUnlock()
	next := int64(committed + len(t.staged))
	for i, e := range events {
		if e.Sequence != next+int64(i) {
			return sentinel.ErrConflict
		}
	}
	for _, e := range events {
		t.staged = append(t.staged, e.Clone())
	}
	return nil
}

func (t *memoryTx) ListEvents(ctx context.Context, shipmentID id.ShipmentID) ([]models.CustodyEvent, error) {
	if err := t.guard(shipmentID); err != nil {
		return nil, err
	}
	events, err := t.base.ListEvents(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	return append(events, cloneEvents(t.staged)...), nil
}

func (t *memoryTx) LastEvent(ctx context.Context, shipmentID id.ShipmentID) (*models.CustodyEvent, error) {
	if err := t.guard(shipmentID); err != nil {
		return nil, err
	}
	if n := len(t.staged); n > 0 {
		last := t.staged[n-1].Clone()
		return &last, nil
	}
	return t.base.LastEvent(ctx, shipmentID)
}

func (t *memoryTx) ListShipments(ctx context.Context) ([]*models.Shipment, error) {
	return t.base.ListShipments(ctx)
}

func (t *memoryTx) commit() error {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	if err := checkContinuation(t.rec.events, t.staged); err != nil {
		return err
	}
	t.rec.events = append(t.rec.events, t.staged...)
	if t.shipment != nil {
		t.rec.shipment = t.shipment
	}
	return nil
}

// checkContinuation enforces uniqueness and gaplessness of sequence numbers.
func checkContinuation(existing, next []models.CustodyEvent) error {
	want := int64(len(existing))
	for _, e := range next {
		if e.Sequence != want {
			return sentinel.ErrConflict
		}
		want++
	}
	return nil
}

func cloneEvents(events []models.CustodyEvent) []models.CustodyEvent {
	out := make([]models.CustodyEvent, len(events))
	for i, e := range events {
		out[i] = e.Clone()
	}
	return out
}

func sortNewestFirst(shipments []*models.Shipment) {
	sort.SliceStable(shipments, func(i, j int) bool {
		if shipments[i].CreatedAt.Equal(shipments[j].CreatedAt) {
			return shipments[i].ID.String() < shipments[j].ID.String()
		}
		return shipments[i].CreatedAt.After(shipments[j].CreatedAt)
	})
}
