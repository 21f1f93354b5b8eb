package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	custodymodels "veriseal/internal/custody/models"
	"veriseal/internal/disclosure/pin"
	"veriseal/internal/disclosure/service/mocks"
	"veriseal/internal/disclosure/store"
	"veriseal/internal/disclosure/token"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
	"veriseal/pkg/platform/audit"
	"veriseal/pkg/platform/sentinel"
)

// =============================================================================
// Recipient Access Gate Test Suite
// =============================================================================
// Justification for unit tests: the gate is the only authentication the engine
// performs. Tests pin down that wrong PINs and unknown shipments are
// indistinguishable, that tokens are scoped and single use, and that every
// outcome is audited.

type GateSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	shipments  *mocks.MockShipmentReader
	auditor    *mocks.MockAuditPublisher
	tokenStore *store.InMemoryTokenStore
	tokens     *token.Service
	hasher     *pin.Hasher
	service    *Service
	shipment   *custodymodels.Shipment
	ctx        context.Context
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.shipments = mocks.NewMockShipmentReader(s.ctrl)
	s.auditor = mocks.NewMockAuditPublisher(s.ctrl)
	s.tokenStore = store.NewInMemory()

	var err error
	s.hasher, err = pin.NewHasher(bcrypt.MinCost)
	s.Require().NoError(err)
	s.tokens, err = token.NewService("0123456789abcdef0123456789abcdef", 5*time.Minute)
	s.Require().NoError(err)

	hash, err := s.hasher.Hash("246810")
	s.Require().NoError(err)
	s.shipment, err = custodymodels.NewShipment(id.NewShipmentID(), "jewelry",
		custodymodels.Route{{ID: "CP001"}}, hash, "qr", time.Now())
	s.Require().NoError(err)

	s.service, err = New(s.shipments, s.hasher, s.tokens, s.tokenStore,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.auditor),
	)
	s.Require().NoError(err)
}

func (s *GateSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *GateSuite) expectAudit(action audit.AuditEvent) {
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e audit.Event) {
		s.Equal(action, e.Action)
		s.Equal(s.shipment.ID.String(), e.ShipmentID)
	})
}

func (s *GateSuite) TestNew() {
	_, err := New(nil, s.hasher, s.tokens, s.tokenStore)
	s.Error(err)
	_, err = New(s.shipments, nil, s.tokens, s.tokenStore)
	s.Error(err)
	_, err = New(s.shipments, s.hasher, nil, s.tokenStore)
	s.Error(err)
	_, err = New(s.shipments, s.hasher, s.tokens, nil)
	s.Error(err)
}

func (s *GateSuite) TestVerifyPIN() {
	s.Run("correct pin issues a scoped token", func() {
		s.shipments.EXPECT().FindShipment(gomock.Any(), s.shipment.ID).Return(s.shipment.Clone(), nil)
		s.expectAudit(audit.EventRecipientVerified)

		tok, err := s.service.VerifyPIN(s.ctx, s.shipment.ID, "246810")
		s.Require().NoError(err)
		s.Equal(s.shipment.ID, tok.ShipmentID)
		s.NotEmpty(tok.Value)

		scoped, err := s.service.ShipmentOf(tok.Value)
		s.Require().NoError(err)
		s.Equal(s.shipment.ID, scoped)
	})

	s.Run("wrong pin", func() {
		s.shipments.EXPECT().FindShipment(gomock.Any(), s.shipment.ID).Return(s.shipment.Clone(), nil)
		s.expectAudit(audit.EventRecipientPINFailed)

		_, err := s.service.VerifyPIN(s.ctx, s.shipment.ID, "000000")
		s.True(dErrors.HasCode(err, dErrors.CodeIncorrectPin))
	})

	s.Run("malformed pin fails like a wrong pin", func() {
		s.shipments.EXPECT().FindShipment(gomock.Any(), s.shipment.ID).Return(s.shipment.Clone(), nil)
		s.expectAudit(audit.EventRecipientPINFailed)

		_, err := s.service.VerifyPIN(s.ctx, s.shipment.ID, "24681")
		s.True(dErrors.HasCode(err, dErrors.CodeIncorrectPin))
	})

	s.Run("unknown shipment fails like a wrong pin", func() {
		s.shipments.EXPECT().FindShipment(gomock.Any(), s.shipment.ID).Return(nil, sentinel.ErrNotFound)
		s.expectAudit(audit.EventRecipientPINFailed)

		_, err := s.service.VerifyPIN(s.ctx, s.shipment.ID, "246810")
		s.True(dErrors.HasCode(err, dErrors.CodeIncorrectPin))
	})

	s.Run("store failure is internal", func() {
		s.shipments.EXPECT().FindShipment(gomock.Any(), s.shipment.ID).Return(nil, errors.New("db down"))

		_, err := s.service.VerifyPIN(s.ctx, s.shipment.ID, "246810")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *GateSuite) issue() string {
	s.shipments.EXPECT().FindShipment(gomock.Any(), s.shipment.ID).Return(s.shipment.Clone(), nil)
	s.expectAudit(audit.EventRecipientVerified)
	tok, err := s.service.VerifyPIN(s.ctx, s.shipment.ID, "246810")
	s.Require().NoError(err)
	return tok.Value
}

func (s *GateSuite) TestAuthorize() {
	s.Run("token authorizes exactly once", func() {
		value := s.issue()
		s.NoError(s.service.Authorize(s.ctx, s.shipment.ID, value))

		s.expectAudit(audit.EventDisclosureRejected)
		err := s.service.Authorize(s.ctx, s.shipment.ID, value)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	s.Run("token for another shipment", func() {
		value := s.issue()
		other := id.NewShipmentID()
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any())

		err := s.service.Authorize(s.ctx, other, value)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	s.Run("forged token", func() {
		s.expectAudit(audit.EventDisclosureRejected)
		err := s.service.Authorize(s.ctx, s.shipment.ID, "eyJhbGciOiJIUzI1NiJ9.e30.bogus")
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	s.Run("well-signed token never registered", func() {
		issued, err := s.tokens.Issue(s.shipment.ID)
		s.Require().NoError(err)
		s.expectAudit(audit.EventDisclosureRejected)

		err = s.service.Authorize(s.ctx, s.shipment.ID, issued.Value)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})
}

func (s *GateSuite) TestCheck() {
	s.Run("valid token is left unconsumed", func() {
		value := s.issue()
		s.NoError(s.service.Check(s.ctx, s.shipment.ID, value))
		s.NoError(s.service.Check(s.ctx, s.shipment.ID, value))
		s.NoError(s.service.Authorize(s.ctx, s.shipment.ID, value))
	})

	s.Run("token for another shipment", func() {
		value := s.issue()
		s.expectAudit(audit.EventDisclosureRejected)
		err := s.service.Check(s.ctx, id.NewShipmentID(), value)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	s.Run("forged token", func() {
		s.expectAudit(audit.EventDisclosureRejected)
		err := s.service.Check(s.ctx, s.shipment.ID, "eyJhbGciOiJIUzI1NiJ9.e30.bogus")
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})
}
