// Package service is the custody state machine. It validates scans, applies
// the tamper policy, and commits the aggregate and its sealed ledger events
// atomically per shipment.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"veriseal/internal/custody/ledger"
	"veriseal/internal/custody/metrics"
	"veriseal/internal/custody/models"
	"veriseal/internal/custody/policy"
	"veriseal/internal/custody/store"
	"veriseal/internal/disclosure/pin"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
	"veriseal/pkg/platform/audit"
	"veriseal/pkg/platform/sentinel"
	"veriseal/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks EventPublisher,AuditPublisher

// Catalog resolves routes and known package types.
type Catalog interface {
	BuildRoute(ids []string) (models.Route, error)
	HasPackageType(pt id.PackageType) bool
}

// Classifier applies the tamper policy for a package type.
type Classifier interface {
	Classify(packageType id.PackageType, reading models.SensorReading) (policy.Verdict, error)
}

// PINHasher produces the salted hash stored for the recipient PIN.
type PINHasher interface {
	Hash(pin string) (string, error)
}

// EventPublisher streams committed custody events. Publishing happens after
// commit and never affects custody state.
type EventPublisher interface {
	Publish(ctx context.Context, events []models.CustodyEvent) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service is the custody state machine.
type Service struct {
	repo           store.Repository
	ledger         *ledger.Ledger
	policy         Classifier
	catalog        Catalog
	pins           PINHasher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	eventPublisher EventPublisher
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithEventPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		s.eventPublisher = publisher
	}
}

func New(repo store.Repository, l *ledger.Ledger, classifier Classifier, catalog Catalog, pins PINHasher, opts ...Option) (*Service, error) {
	switch {
	case repo == nil:
		return nil, errors.New("custody repository is required")
	case l == nil:
		return nil, errors.New("custody ledger is required")
	case classifier == nil:
		return nil, errors.New("tamper policy is required")
	case catalog == nil:
		return nil, errors.New("checkpoint catalog is required")
	case pins == nil:
		return nil, errors.New("pin hasher is required")
	}
	s := &Service{
		repo:    repo,
		ledger:  l,
		policy:  classifier,
		catalog: catalog,
		pins:    pins,
		logger:  slog.Default(),
		tracer:  otel.Tracer("veriseal/custody"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a shipment in CREATED with an empty ledger.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*Registration, error) {
	ctx, span := s.tracer.Start(ctx, "custody.Register")
	defer span.End()

	packageType, err := id.ParsePackageType(cmd.PackageType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid package_type")
	}
	if !s.catalog.HasPackageType(packageType) {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown package_type "+packageType.String())
	}
	route, err := s.catalog.BuildRoute(cmd.Route)
	if err != nil {
		return nil, err
	}

	clearPIN, generated := cmd.RecipientPIN, false
	if clearPIN == "" {
		if clearPIN, err = pin.Generate(); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate recipient pin")
		}
		generated = true
	} else if err := pin.Validate(clearPIN); err != nil {
		return nil, err
	}
	pinHash, err := s.pins.Hash(clearPIN)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash recipient pin")
	}
	qrToken, err := pin.GenerateToken()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate qr token")
	}

	shipment, err := models.NewShipment(id.NewShipmentID(), packageType, route, pinHash, qrToken, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}
	if err := s.repo.CreateShipment(ctx, shipment); err != nil {
		span.SetStatus(codes.Error, "create shipment")
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "shipment identifiers already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create shipment")
	}

	span.SetAttributes(attribute.String("shipment_id", shipment.ID.String()))
	s.metrics.IncrementShipmentsRegistered()
	s.emit(ctx, audit.Event{
		ShipmentID: shipment.ID.String(),
		Action:     audit.EventShipmentRegistered,
		Reason:     fmt.Sprintf("%s via %d checkpoints", packageType, len(route)),
	})
	s.logger.InfoContext(ctx, "shipment registered",
		"shipment_id", shipment.ID.String(),
		"package_type", packageType.String(),
		"route_length", len(route),
		"pin_generated", generated,
	)
	return &Registration{Shipment: shipment, PIN: clearPIN, PINGenerated: generated}, nil
}

// Scan applies one checkpoint scan. Either every event of the scan and the
// updated aggregate are committed, or nothing is.
func (s *Service) Scan(ctx context.Context, cmd ScanCommand) (*ScanResult, error) {
	start := time.Now()
	defer s.metrics.ObserveScan(start)

	ctx, span := s.tracer.Start(ctx, "custody.Scan", trace.WithAttributes(
		attribute.String("shipment_id", cmd.ShipmentID.String()),
		attribute.String("checkpoint_id", cmd.CheckpointID.String()),
		attribute.String("decision", string(cmd.Decision)),
	))
	defer span.End()

	decision, err := models.ParseDecision(string(cmd.Decision))
	if err != nil {
		s.metrics.IncrementScan("rejected")
		return nil, err
	}
	if err := cmd.Reading.Validate(); err != nil {
		s.metrics.IncrementScan("rejected")
		return nil, err
	}
	reading := cmd.Reading.Normalized()
	operatorID := requestcontext.OperatorID(ctx)
	now := requestcontext.Now(ctx)

	var (
		result  ScanResult
		verdict policy.Verdict
	)
	err = s.repo.RunInTx(ctx, cmd.ShipmentID, func(tx store.Store) error {
		shipment, err := tx.FindShipment(ctx, cmd.ShipmentID)
		if err != nil {
			return err
		}
		cp, err := shipment.CanScan(cmd.CheckpointID)
		if err != nil {
			return err
		}
		verdict, err = s.policy.Classify(shipment.PackageType, reading)
		if err != nil {
			return err
		}

		base := models.EventDraft{
			CheckpointID: cp.ID,
			Reading:      &reading,
			Notes:        cmd.Notes,
			OperatorID:   operatorID,
			RecordedAt:   now,
		}
		var drafts []models.EventDraft
		if !verdict.Safe() {
			shipment.ApplyTamper(now)
			d := base
			d.Type = models.EventTamperDetected
			d.Violations = verdict.Kinds
			d.Decision = models.DecisionNotApplicable
			drafts = append(drafts, d)
		}

		d := base
		d.Decision = decision
		switch decision {
		case models.DecisionReturn:
			shipment.ApplyReturn(cp, now)
			d.Type = models.EventReturn
			drafts = append(drafts, d)
		case models.DecisionProceed:
			d.Type = models.EventCheckpointScan
			drafts = append(drafts, d)
			if shipment.ApplyProceed(cp, now) {
				delivery := base
				delivery.Type = models.EventDelivery
				delivery.Reading = nil
				delivery.Decision = models.DecisionProceed
				drafts = append(drafts, delivery)
			}
		}

		events, err := s.ledger.AppendTx(ctx, tx, shipment.ID, drafts...)
		if err != nil {
			return err
		}
		if err := tx.UpdateShipment(ctx, shipment); err != nil {
			return err
		}
		result = ScanResult{Shipment: shipment, Events: events}
		return nil
	})
	if err != nil {
		s.metrics.IncrementScan("rejected")
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		s.logger.WarnContext(ctx, "checkpoint scan rejected",
			"shipment_id", cmd.ShipmentID.String(),
			"checkpoint_id", cmd.CheckpointID.String(),
			"error", err,
		)
		return nil, translate(err, "failed to record scan")
	}

	s.afterCommit(ctx, result.Shipment, result.Events, verdict)
	return &result, nil
}

// ReportDeviceTamper classifies a reading the device reported between
// checkpoints. A violation appends a TAMPER_DETECTED event without a
// checkpoint; a safe reading appends nothing and returns no events.
func (s *Service) ReportDeviceTamper(ctx context.Context, cmd DeviceTamperCommand) (*ScanResult, error) {
	ctx, span := s.tracer.Start(ctx, "custody.ReportDeviceTamper",
		trace.WithAttributes(attribute.String("shipment_id", cmd.ShipmentID.String())))
	defer span.End()

	if err := cmd.Reading.Validate(); err != nil {
		return nil, err
	}
	reading := cmd.Reading.Normalized()
	now := requestcontext.Now(ctx)

	var (
		result  ScanResult
		verdict policy.Verdict
	)
	err := s.repo.RunInTx(ctx, cmd.ShipmentID, func(tx store.Store) error {
		shipment, err := tx.FindShipment(ctx, cmd.ShipmentID)
		if err != nil {
			return err
		}
		if err := shipment.CanReportTamper(); err != nil {
			return err
		}
		verdict, err = s.policy.Classify(shipment.PackageType, reading)
		if err != nil {
			return err
		}
		result.Shipment = shipment
		if verdict.Safe() {
			return nil
		}

		shipment.ApplyTamper(now)
		events, err := s.ledger.AppendTx(ctx, tx, shipment.ID, models.EventDraft{
			Type:       models.EventTamperDetected,
			Reading:    &reading,
			Violations: verdict.Kinds,
			Decision:   models.DecisionNotApplicable,
			Notes:      cmd.Notes,
			OperatorID: requestcontext.OperatorID(ctx),
			RecordedAt: now,
		})
		if err != nil {
			return err
		}
		if err := tx.UpdateShipment(ctx, shipment); err != nil {
			return err
		}
		result.Events = events
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		return nil, translate(err, "failed to record device tamper report")
	}

	s.afterCommit(ctx, result.Shipment, result.Events, verdict)
	return &result, nil
}

// GetShipment returns the committed aggregate.
func (s *Service) GetShipment(ctx context.Context, shipmentID id.ShipmentID) (*models.Shipment, error) {
	shipment, err := s.repo.FindShipment(ctx, shipmentID)
	if err != nil {
		return nil, translate(err, "failed to load shipment")
	}
	return shipment, nil
}

// ResolveQRToken maps a QR label token to its shipment.
func (s *Service) ResolveQRToken(ctx context.Context, token string) (id.ShipmentID, error) {
	if token == "" {
		return id.ShipmentID{}, dErrors.New(dErrors.CodeNotFound, "shipment not found")
	}
	shipment, err := s.repo.FindByQRToken(ctx, token)
	if err != nil {
		return id.ShipmentID{}, translate(err, "failed to resolve qr token")
	}
	return shipment.ID, nil
}

// Ledger returns the committed ledger of an existing shipment.
func (s *Service) Ledger(ctx context.Context, shipmentID id.ShipmentID) ([]models.CustodyEvent, error) {
	_, events, err := s.repo.Snapshot(ctx, shipmentID)
	if err != nil {
		return nil, translate(err, "failed to read ledger")
	}
	return events, nil
}

// VerifyLedger recomputes the chain from genesis. A broken chain is reported
// in the result and raised as a security incident; it is never repaired.
func (s *Service) VerifyLedger(ctx context.Context, shipmentID id.ShipmentID) (*LedgerVerification, error) {
	ctx, span := s.tracer.Start(ctx, "custody.VerifyLedger",
		trace.WithAttributes(attribute.String("shipment_id", shipmentID.String())))
	defer span.End()

	_, events, err := s.repo.Snapshot(ctx, shipmentID)
	if err != nil {
		return nil, translate(err, "failed to read ledger")
	}
	result := &LedgerVerification{
		ShipmentID: shipmentID,
		Verified:   true,
		HeadHash:   ledger.Head(events),
		EventCount: len(events),
	}
	verr := ledger.VerifyChain(shipmentID, events)
	if verr == nil {
		return result, nil
	}

	span.SetStatus(codes.Error, "ledger integrity")
	result.Verified = false
	result.Reason = dErrors.MessageOf(verr)
	if ie, ok := ledger.AsIntegrityError(verr); ok {
		seq := ie.Sequence
		result.FailedAt = &seq
		result.Reason = ie.Reason
	}
	s.metrics.IncrementIntegrityFailure()
	s.emit(ctx, audit.Event{
		ShipmentID: shipmentID.String(),
		Action:     audit.EventLedgerIntegrityFailed,
		Reason:     result.Reason,
		Severity:   audit.SeverityCritical,
	})
	s.logger.ErrorContext(ctx, "custody ledger failed verification",
		"shipment_id", shipmentID.String(),
		"error", verr,
	)
	return result, nil
}

// ListShipments returns operator summaries, newest first.
func (s *Service) ListShipments(ctx context.Context) ([]ShipmentSummary, error) {
	shipments, err := s.repo.ListShipments(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list shipments")
	}
	out := make([]ShipmentSummary, 0, len(shipments))
	for _, sh := range shipments {
		shipment, events, err := s.repo.Snapshot(ctx, sh.ID)
		if err != nil {
			return nil, translate(err, "failed to load shipment ledger")
		}
		out = append(out, summarize(shipment, events))
	}
	return out, nil
}

func summarize(shipment *models.Shipment, events []models.CustodyEvent) ShipmentSummary {
	summary := ShipmentSummary{
		Shipment:   shipment,
		EventCount: len(events),
	}
	for _, e := range events {
		if e.Type == models.EventCheckpointScan {
			summary.CheckpointsPassed++
		}
	}
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Reading != nil {
			r := *events[i].Reading
			summary.LatestReading = &r
			break
		}
	}
	return summary
}

// afterCommit runs the side effects of a committed custody change.
func (s *Service) afterCommit(ctx context.Context, shipment *models.Shipment, events []models.CustodyEvent, verdict policy.Verdict) {
	for _, kind := range verdict.Kinds {
		s.metrics.IncrementViolation(string(kind))
	}
	for _, e := range events {
		switch e.Type {
		case models.EventTamperDetected:
			s.emit(ctx, audit.Event{
				ShipmentID: shipment.ID.String(),
				Action:     audit.EventTamperDetected,
				Reason:     violationList(e.Violations),
				Severity:   audit.SeverityWarning,
			})
			s.logger.WarnContext(ctx, "tamper detected",
				"shipment_id", shipment.ID.String(),
				"checkpoint_id", e.CheckpointID.String(),
				"violations", violationList(e.Violations),
				"tamper_count", shipment.TamperCount,
			)
		case models.EventReturn:
			s.metrics.IncrementScan("returned")
			s.emit(ctx, audit.Event{
				ShipmentID: shipment.ID.String(),
				Action:     audit.EventShipmentReturned,
				Reason:     "returned at " + e.CheckpointID.String(),
			})
		case models.EventDelivery:
			s.metrics.IncrementScan("delivered")
			s.emit(ctx, audit.Event{
				ShipmentID: shipment.ID.String(),
				Action:     audit.EventShipmentDelivered,
			})
		case models.EventCheckpointScan:
			s.metrics.IncrementScan("proceed")
		}
	}
	if len(events) > 0 {
		s.logger.InfoContext(ctx, "custody events committed",
			"shipment_id", shipment.ID.String(),
			"status", shipment.Status.String(),
			"events", len(events),
			"head_hash", events[len(events)-1].Hash,
		)
	}
	s.publish(ctx, events)
}

func (s *Service) publish(ctx context.Context, events []models.CustodyEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(context.WithoutCancel(ctx), events); err != nil {
		s.metrics.AddPublishFailures(len(events))
		s.logger.WarnContext(ctx, "failed to publish custody events",
			"shipment_id", events[0].ShipmentID.String(),
			"error", err,
		)
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	s.auditPublisher.Emit(ctx, event)
}

func violationList(kinds []models.ViolationKind) string {
	out := ""
	for i, k := range kinds {
		if i > 0 {
			out += ","
		}
		out += string(k)
	}
	return out
}

// translate maps store facts to domain errors; coded errors pass through.
func translate(err error, msg string) error {
	switch {
	case dErrors.CodeOf(err) != "":
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "shipment not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeOutOfSequence, "ledger moved on concurrently; rescan required")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
