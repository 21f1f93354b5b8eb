// Package report renders transit reports from consistent ledger snapshots.
// Building a report never writes custody state.
package report

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"veriseal/internal/custody/ledger"
	"veriseal/internal/custody/metrics"
	"veriseal/internal/custody/models"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
	"veriseal/pkg/platform/audit"
	"veriseal/pkg/platform/sentinel"
	"veriseal/pkg/requestcontext"
)

//go:generate mockgen -source=builder.go -destination=mocks/mocks.go -package=mocks SnapshotReader,Authorizer,AuditPublisher

// SnapshotReader reads a shipment and its ledger as one consistent view.
type SnapshotReader interface {
	Snapshot(ctx context.Context, shipmentID id.ShipmentID) (*models.Shipment, []models.CustodyEvent, error)
}

// Authorizer gates recipient disclosure. Check validates a token without
// consuming it; Authorize validates and consumes it.
type Authorizer interface {
	Check(ctx context.Context, shipmentID id.ShipmentID, token string) error
	Authorize(ctx context.Context, shipmentID id.ShipmentID, token string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

type Builder struct {
	snapshots      SnapshotReader
	authorizer     Authorizer
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	tracer         trace.Tracer
}

type Option func(*Builder)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) {
		b.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(b *Builder) {
		b.auditPublisher = publisher
	}
}

func New(snapshots SnapshotReader, authorizer Authorizer, opts ...Option) (*Builder, error) {
	if snapshots == nil {
		return nil, errors.New("snapshot reader is required")
	}
	if authorizer == nil {
		return nil, errors.New("recipient authorizer is required")
	}
	b := &Builder{
		snapshots:  snapshots,
		authorizer: authorizer,
		logger:     slog.Default(),
		tracer:     otel.Tracer("veriseal/report"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Build renders the report for audience. A recipient audience must present a
// disclosure token for this shipment. The token is consumed only once the
// report is ready, so a failed build leaves it usable for a retry.
func (b *Builder) Build(ctx context.Context, shipmentID id.ShipmentID, audience Audience) (*TransitReport, error) {
	start := time.Now()
	defer b.metrics.ObserveReport(start)

	ctx, span := b.tracer.Start(ctx, "report.Build", trace.WithAttributes(
		attribute.String("shipment_id", shipmentID.String()),
		attribute.String("audience", audience.String()),
	))
	defer span.End()

	if audience.IsRecipient() {
		if err := b.authorizer.Check(ctx, shipmentID, audience.token); err != nil {
			span.SetStatus(codes.Error, "not authorized")
			return nil, err
		}
	}

	shipment, events, err := b.snapshots.Snapshot(ctx, shipmentID)
	if err != nil {
		span.SetStatus(codes.Error, "snapshot")
		switch {
		case dErrors.CodeOf(err) != "":
			return nil, err
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "shipment not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read shipment ledger")
		}
	}

	r := project(shipment, events, audience, requestcontext.Now(ctx))
	if verr := ledger.VerifyChain(shipmentID, events); verr != nil {
		b.markCompromised(ctx, r, verr)
		span.SetStatus(codes.Error, "ledger integrity")
	}

	if audience.IsRecipient() {
		if err := b.authorizer.Authorize(ctx, shipmentID, audience.token); err != nil {
			span.SetStatus(codes.Error, "not authorized")
			return nil, err
		}
		b.emit(ctx, audit.Event{
			ShipmentID: shipmentID.String(),
			Action:     audit.EventReportDisclosed,
			Reason:     string(r.Verdict),
		})
	}
	b.logger.InfoContext(ctx, "transit report built",
		"shipment_id", shipmentID.String(),
		"audience", audience.String(),
		"verdict", string(r.Verdict),
		"events", len(events),
	)
	return r, nil
}

func (b *Builder) markCompromised(ctx context.Context, r *TransitReport, err error) {
	r.Verdict = VerdictCompromised
	r.Integrity.Verified = false
	r.Integrity.Reason = dErrors.MessageOf(err)
	if ie, ok := ledger.AsIntegrityError(err); ok {
		seq := ie.Sequence
		r.Integrity.FailedAt = &seq
		r.Integrity.Reason = ie.Reason
	}

	b.metrics.IncrementIntegrityFailure()
	b.emit(ctx, audit.Event{
		ShipmentID: r.ShipmentID.String(),
		Action:     audit.EventLedgerIntegrityFailed,
		Reason:     r.Integrity.Reason,
		Severity:   audit.SeverityCritical,
	})
	b.logger.ErrorContext(ctx, "custody ledger failed verification",
		"shipment_id", r.ShipmentID.String(),
		"error", err,
	)
}

func (b *Builder) emit(ctx context.Context, event audit.Event) {
	if b.auditPublisher == nil {
		return
	}
	b.auditPublisher.Emit(ctx, event)
}
