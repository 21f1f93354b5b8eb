// Package service is the recipient access gate: it checks recipient PINs and
// issues and redeems single-use disclosure tokens.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	custodymodels "veriseal/internal/custody/models"
	"veriseal/internal/disclosure/models"
	"veriseal/internal/disclosure/pin"
	"veriseal/internal/disclosure/token"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
	"veriseal/pkg/platform/audit"
	"veriseal/pkg/platform/sentinel"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ShipmentReader,TokenStore,AuditPublisher

// ShipmentReader loads the stored PIN hash of a shipment.
type ShipmentReader interface {
	FindShipment(ctx context.Context, shipmentID id.ShipmentID) (*custodymodels.Shipment, error)
}

// TokenStore remembers issued jtis until consumed.
type TokenStore interface {
	Register(ctx context.Context, jti, shipmentID string, ttl time.Duration) error
	Consume(ctx context.Context, jti string) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service is the recipient access gate.
type Service struct {
	shipments      ShipmentReader
	pins           *pin.Hasher
	tokens         *token.Service
	tokenStore     TokenStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(shipments ShipmentReader, pins *pin.Hasher, tokens *token.Service, tokenStore TokenStore, opts ...Option) (*Service, error) {
	if shipments == nil {
		return nil, errors.New("shipment reader is required")
	}
	if pins == nil {
		return nil, errors.New("pin hasher is required")
	}
	if tokens == nil {
		return nil, errors.New("token service is required")
	}
	if tokenStore == nil {
		return nil, errors.New("token store is required")
	}
	s := &Service{
		shipments:  shipments,
		pins:       pins,
		tokens:     tokens,
		tokenStore: tokenStore,
		logger:     slog.Default(),
		tracer:     otel.Tracer("veriseal/disclosure"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

var errIncorrectPin = dErrors.New(dErrors.CodeIncorrectPin, "incorrect pin")

// VerifyPIN checks pin against the shipment's stored hash and issues a
// disclosure token on success. Unknown shipments and malformed PINs fail
// exactly like a wrong PIN, after the same amount of hashing work.
func (s *Service) VerifyPIN(ctx context.Context, shipmentID id.ShipmentID, submitted string) (*models.DisclosureToken, error) {
	ctx, span := s.tracer.Start(ctx, "disclosure.VerifyPIN",
		trace.WithAttributes(attribute.String("shipment_id", shipmentID.String())))
	defer span.End()

	shipment, err := s.shipments.FindShipment(ctx, shipmentID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		span.SetStatus(codes.Error, "load shipment")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load shipment")
	}
	if shipment == nil || pin.Validate(submitted) != nil {
		s.pins.CompareDummy(submitted)
		s.rejectPIN(ctx, shipmentID, "unknown shipment or malformed pin")
		return nil, errIncorrectPin
	}

	if err := s.pins.Compare(shipment.RecipientPINHash, submitted); err != nil {
		if !errors.Is(err, pin.ErrMismatch) {
			span.SetStatus(codes.Error, "compare pin")
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify pin")
		}
		s.rejectPIN(ctx, shipmentID, "pin mismatch")
		return nil, errIncorrectPin
	}

	issued, err := s.tokens.Issue(shipmentID)
	if err != nil {
		span.SetStatus(codes.Error, "issue token")
		return nil, err
	}
	if err := s.tokenStore.Register(ctx, issued.JTI, shipmentID.String(), s.tokens.TTL()); err != nil {
		span.SetStatus(codes.Error, "register token")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register disclosure token")
	}

	s.emit(ctx, audit.Event{
		ShipmentID: shipmentID.String(),
		Action:     audit.EventRecipientVerified,
	})
	s.logger.InfoContext(ctx, "recipient pin verified", "shipment_id", shipmentID.String())
	return &models.DisclosureToken{
		Value:      issued.Value,
		ShipmentID: shipmentID,
		ExpiresAt:  issued.ExpiresAt,
	}, nil
}

// Check validates tokenValue for shipmentID without consuming it, so callers
// can reject bad tokens before doing work and redeem them once that work is done.
func (s *Service) Check(ctx context.Context, shipmentID id.ShipmentID, tokenValue string) error {
	_, err := s.validate(ctx, shipmentID, tokenValue)
	return err
}

// Authorize validates tokenValue for shipmentID and consumes it. Invalid,
// expired, foreign and already consumed tokens fail with CodeNotAuthorized.
func (s *Service) Authorize(ctx context.Context, shipmentID id.ShipmentID, tokenValue string) error {
	ctx, span := s.tracer.Start(ctx, "disclosure.Authorize",
		trace.WithAttributes(attribute.String("shipment_id", shipmentID.String())))
	defer span.End()

	claims, err := s.validate(ctx, shipmentID, tokenValue)
	if err != nil {
		return err
	}

	owner, err := s.tokenStore.Consume(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.rejectDisclosure(ctx, shipmentID, "token already used or expired")
			return dErrors.New(dErrors.CodeNotAuthorized, "disclosure token already used or expired")
		}
		span.SetStatus(codes.Error, "consume token")
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to redeem disclosure token")
	}
	if owner != shipmentID.String() {
		s.rejectDisclosure(ctx, shipmentID, "token registered for another shipment")
		return dErrors.New(dErrors.CodeNotAuthorized, "disclosure token is not valid for this shipment")
	}
	return nil
}

func (s *Service) validate(ctx context.Context, shipmentID id.ShipmentID, tokenValue string) (*token.Claims, error) {
	claims, err := s.tokens.Validate(tokenValue, shipmentID)
	if err != nil {
		s.rejectDisclosure(ctx, shipmentID, dErrors.MessageOf(err))
		return nil, err
	}
	return claims, nil
}

// ShipmentOf returns the shipment a well-signed token is scoped to.
func (s *Service) ShipmentOf(tokenValue string) (id.ShipmentID, error) {
	return s.tokens.ShipmentOf(tokenValue)
}

func (s *Service) rejectPIN(ctx context.Context, shipmentID id.ShipmentID, reason string) {
	s.logger.WarnContext(ctx, "recipient pin rejected", "shipment_id", shipmentID.String(), "reason", reason)
	s.emit(ctx, audit.Event{
		ShipmentID: shipmentID.String(),
		Action:     audit.EventRecipientPINFailed,
		Reason:     reason,
		Severity:   audit.SeverityWarning,
	})
}

func (s *Service) rejectDisclosure(ctx context.Context, shipmentID id.ShipmentID, reason string) {
	s.logger.WarnContext(ctx, "disclosure rejected", "shipment_id", shipmentID.String(), "reason", reason)
	s.emit(ctx, audit.Event{
		ShipmentID: shipmentID.String(),
		Action:     audit.EventDisclosureRejected,
		Reason:     reason,
		Severity:   audit.SeverityWarning,
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	s.auditPublisher.Emit(ctx, event)
}
