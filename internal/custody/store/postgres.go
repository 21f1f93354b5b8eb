package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"veriseal/internal/custody/models"
	id "veriseal/pkg/domain"
	"veriseal/pkg/platform/sentinel"
	txcontext "veriseal/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

// PostgresStore persists custody state in PostgreSQL. The per-shipment
// exclusive section is a row lock (SELECT ... FOR UPDATE) on the shipment.
type PostgresStore struct {
	queries
	db      *sql.DB
	timeout time.Duration
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresTxTimeout overrides DefaultTxTimeout.
func WithPostgresTxTimeout(d time.Duration) PostgresOption {
	return func(s *PostgresStore) {
		s.timeout = d
	}
}

// NewPostgres constructs a PostgreSQL-backed custody store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		queries: queries{q: db},
		db:      db,
		timeout: DefaultTxTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunInTx locks the shipment row and runs fn inside the transaction.
func (s *PostgresStore) RunInTx(ctx context.Context, shipmentID id.ShipmentID, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return timeoutError(err, "transaction aborted: context cancelled")
	}
	ctx, cancel := withTxTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.txError(ctx, err, "begin custody transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	txq := queries{q: tx}
	if _, err := txq.lockShipment(ctx, shipmentID); err != nil {
		return s.txError(ctx, err, "lock shipment")
	}

	if err := fn(&txq); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return timeoutError(ctxErr, "transaction aborted before commit")
		}
		return err
	}
	if err := ctx.Err(); err != nil {
		return timeoutError(err, "transaction aborted before commit")
	}
	if err := tx.Commit(); err != nil {
		return s.txError(ctx, err, "commit custody transaction")
	}
	return nil
}

// Snapshot reads the shipment and its ledger in one REPEATABLE READ transaction.
func (s *PostgresStore) Snapshot(ctx context.Context, shipmentID id.ShipmentID) (*models.Shipment, []models.CustodyEvent, error) {
	ctx, cancel := withTxTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, nil, s.txError(ctx, err, "begin snapshot")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	txq := queries{q: tx}
	shipment, err := txq.FindShipment(ctx, shipmentID)
	if err != nil {
		return nil, nil, s.txError(ctx, err, "snapshot shipment")
	}
	events, err := txq.ListEvents(ctx, shipmentID)
	if err != nil {
		return nil, nil, s.txError(ctx, err, "snapshot events")
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, s.txError(ctx, err, "commit snapshot")
	}
	return shipment, events, nil
}

func (s *PostgresStore) txError(ctx context.Context, err error, op string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return timeoutError(ctxErr, op+": timed out")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// queries implements Store over either the pool or a transaction.
type queries struct {
	q txcontext.Querier
}

const shipmentColumns = `
	id, package_type, route, status, current_checkpoint_id, current_checkpoint_index,
	is_tampered, tamper_count, recipient_pin_hash, qr_token, created_at, updated_at`

func (r *queries) CreateShipment(ctx context.Context, shipment *models.Shipment) error {
	route, err := json.Marshal(shipment.Route)
	if err != nil {
		return fmt.Errorf("marshal route: %w", err)
	}
	query := `
		INSERT INTO shipments (` + shipmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.q.ExecContext(ctx, query,
		uuid.UUID(shipment.ID),
		shipment.PackageType.String(),
		route,
		shipment.Status.String(),
		shipment.CurrentCheckpointID.String(),
		shipment.CurrentCheckpointIndex,
		shipment.IsTampered,
		shipment.TamperCount,
		shipment.RecipientPINHash,
		nullString(shipment.QRToken),
		shipment.CreatedAt,
		shipment.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert shipment: %w", err)
	}
	return nil
}

func (r *queries) FindShipment(ctx context.Context, shipmentID id.ShipmentID) (*models.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = $1`
	return r.scanShipment(r.q.QueryRowContext(ctx, query, uuid.UUID(shipmentID)))
}

func (r *queries) lockShipment(ctx context.Context, shipmentID id.ShipmentID) (*models.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = $1 FOR UPDATE`
	return r.scanShipment(r.q.QueryRowContext(ctx, query, uuid.UUID(shipmentID)))
}

func (r *queries) FindByQRToken(ctx context.Context, token string) (*models.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE qr_token = $1`
	return r.scanShipment(r.q.QueryRowContext(ctx, query, token))
}

func (r *queries) UpdateShipment(ctx context.Context, shipment *models.Shipment) error {
	query := `
		UPDATE shipments SET
			status = $2,
			current_checkpoint_id = $3,
			current_checkpoint_index = $4,
			is_tampered = is_tampered OR $5,
			tamper_count = $6,
			updated_at = $7
		WHERE id = $1
	`
	res, err := r.q.ExecContext(ctx, query,
		uuid.UUID(shipment.ID),
		shipment.Status.String(),
		shipment.CurrentCheckpointID.String(),
		shipment.CurrentCheckpointIndex,
		shipment.IsTampered,
		shipment.TamperCount,
		shipment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update shipment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update shipment rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (r *queries) AppendEvents(ctx context.Context, events ...models.CustodyEvent) error {
	query := `
		INSERT INTO custody_events (
			shipment_id, sequence, event_type, checkpoint_id, reading, violations,
			decision, notes, operator_id, prev_hash, hash, recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	for _, e := range events {
		var reading any
		if e.Reading != nil {
			raw, err := json.Marshal(e.Reading)
			if err != nil {
				return fmt.Errorf("marshal sensor reading: %w", err)
			}
			reading = raw
		}
		violations := make([]string, len(e.Violations))
		for i, v := range e.Violations {
			violations[i] = string(v)
		}
		_, err := r.q.ExecContext(ctx, query,
			uuid.UUID(e.ShipmentID),
			e.Sequence,
			string(e.Type),
			e.CheckpointID.String(),
			reading,
			pq.Array(violations),
			string(e.Decision),
			e.Notes,
			e.OperatorID,
			e.PrevHash,
			e.Hash,
			e.RecordedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert custody event: %w", err)
		}
	}
	return nil
}

const eventColumns = `
	shipment_id, sequence, event_type, checkpoint_id, reading, violations,
	decision, notes, operator_id, prev_hash, hash, recorded_at`

func (r *queries) ListEvents(ctx context.Context, shipmentID id.ShipmentID) ([]models.CustodyEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM custody_events WHERE shipment_id = $1 ORDER BY sequence ASC`
	rows, err := r.q.QueryContext(ctx, query, uuid.UUID(shipmentID))
	if err != nil {
		return nil, fmt.Errorf("query custody events: %w", err)
	}
	defer rows.Close()

	events := []models.CustodyEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate custody events: %w", err)
	}
	return events, nil
}

func (r *queries) LastEvent(ctx context.Context, shipmentID id.ShipmentID) (*models.CustodyEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM custody_events WHERE shipment_id = $1 ORDER BY sequence DESC LIMIT 1`
	e, err := scanEvent(r.q.QueryRowContext(ctx, query, uuid.UUID(shipmentID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (r *queries) ListShipments(ctx context.Context) ([]*models.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments ORDER BY created_at DESC, id ASC`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query shipments: %w", err)
	}
	defer rows.Close()

	var out []*models.Shipment
	for rows.Next() {
		s, err := r.scanShipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shipments: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *queries) scanShipment(row rowScanner) (*models.Shipment, error) {
	var (
		rawID       uuid.UUID
		packageType string
		route       []byte
		status      string
		checkpoint  string
		qrToken     sql.NullString
		s           models.Shipment
	)
	err := row.Scan(
		&rawID,
		&packageType,
		&route,
		&status,
		&checkpoint,
		&s.CurrentCheckpointIndex,
		&s.IsTampered,
		&s.TamperCount,
		&s.RecipientPINHash,
		&qrToken,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan shipment: %w", err)
	}
	// Stops are stored as registered so later catalog edits never change them.
	if err := json.Unmarshal(route, &s.Route); err != nil {
		return nil, fmt.Errorf("decode persisted route: %w", err)
	}
	s.ID = id.ShipmentID(rawID)
	s.PackageType = id.PackageType(packageType)
	s.Status = models.Status(status)
	s.CurrentCheckpointID = id.CheckpointID(checkpoint)
	s.QRToken = qrToken.String
	s.CreatedAt = models.NormalizeTime(s.CreatedAt)
	s.UpdatedAt = models.NormalizeTime(s.UpdatedAt)
	return &s, nil
}

func scanEvent(row rowScanner) (*models.CustodyEvent, error) {
	var (
		rawID      uuid.UUID
		eventType  string
		checkpoint string
		reading    []byte
		violations []string
		decision   string
		e          models.CustodyEvent
	)
	err := row.Scan(
		&rawID,
		&e.Sequence,
		&eventType,
		&checkpoint,
		&reading,
		pq.Array(&violations),
		&decision,
		&e.Notes,
		&e.OperatorID,
		&e.PrevHash,
		&e.Hash,
		&e.RecordedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan custody event: %w", err)
	}
	e.ShipmentID = id.ShipmentID(rawID)
	e.Type = models.EventType(eventType)
	e.CheckpointID = id.CheckpointID(checkpoint)
	e.Decision = models.Decision(decision)
	e.RecordedAt = models.NormalizeTime(e.RecordedAt)
	if len(reading) > 0 {
		var r models.SensorReading
		if err := json.Unmarshal(reading, &r); err != nil {
			return nil, fmt.Errorf("decode persisted reading: %w", err)
		}
		e.Reading = &r
	}
	for _, v := range violations {
		e.Violations = append(e.Violations, models.ViolationKind(v))
	}
	return &e, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
