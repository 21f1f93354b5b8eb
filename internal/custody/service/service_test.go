package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"veriseal/internal/custody/catalog"
	"veriseal/internal/custody/ledger"
	"veriseal/internal/custody/metrics"
	"veriseal/internal/custody/models"
	"veriseal/internal/custody/policy"
	"veriseal/internal/custody/service/mocks"
	"veriseal/internal/custody/store"
	"veriseal/internal/disclosure/pin"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
	"veriseal/pkg/platform/audit"
	"veriseal/pkg/requestcontext"
)

// =============================================================================
// Custody State Machine Test Suite
// =============================================================================
// Justification for unit tests: the state machine decides what lands in the
// ledger. Tests cover every transition, the all-or-nothing commit of a scan,
// and the guarantee that rejected scans leave no trace.

type CustodySuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	auditor   *mocks.MockAuditPublisher
	publisher *mocks.MockEventPublisher
	repo      *store.InMemoryStore
	ledger    *ledger.Ledger
	metrics   *metrics.Metrics
	hasher    *pin.Hasher
	service   *Service
	ctx       context.Context
}

func TestCustodySuite(t *testing.T) {
	suite.Run(t, new(CustodySuite))
}

func (s *CustodySuite) SetupTest() {
	s.ctx = requestcontext.WithOperatorID(context.Background(), "op-7")
	s.ctrl = gomock.NewController(s.T())
	s.auditor = mocks.NewMockAuditPublisher(s.ctrl)
	s.publisher = mocks.NewMockEventPublisher(s.ctrl)
	s.repo = store.NewInMemory()
	s.ledger = ledger.New(s.repo)
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())

	var err error
	s.hasher, err = pin.NewHasher(bcrypt.MinCost)
	s.Require().NoError(err)

	cat := catalog.Default()
	s.service, err = New(s.repo, s.ledger, policy.New(cat), cat, s.hasher,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithAuditPublisher(s.auditor),
		WithEventPublisher(s.publisher),
	)
	s.Require().NoError(err)
}

func (s *CustodySuite) TearDownTest() {
	s.ctrl.Finish()
}

// allowSideEffects accepts any audit and publish calls not matched by an
// earlier, more specific expectation.
func (s *CustodySuite) allowSideEffects() {
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).AnyTimes()
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func safeReading() models.SensorReading {
	return models.SensorReading{
		Temperature:   22.5,
		Humidity:      40,
		BatteryLevel:  90,
		TamperStatus:  models.TamperSecure,
		LoopConnected: true,
		Acceleration:  3,
		CapturedAt:    time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func loopBroken() models.SensorReading {
	r := safeReading()
	r.LoopConnected = false
	return r
}

func (s *CustodySuite) register(route ...string) *Registration {
	reg, err := s.service.Register(s.ctx, RegisterCommand{
		PackageType:  "electronics",
		Route:        route,
		RecipientPIN: "482913",
	})
	s.Require().NoError(err)
	return reg
}

func (s *CustodySuite) scan(shipmentID id.ShipmentID, cp string, r models.SensorReading, d models.Decision) (*ScanResult, error) {
	return s.service.Scan(s.ctx, ScanCommand{
		ShipmentID:   shipmentID,
		CheckpointID: id.CheckpointID(cp),
		Reading:      r,
		Decision:     d,
	})
}

func (s *CustodySuite) events(shipmentID id.ShipmentID) []models.CustodyEvent {
	events, err := s.ledger.ReadAll(s.ctx, shipmentID)
	s.Require().NoError(err)
	return events
}

func eventTypes(events []models.CustodyEvent) []models.EventType {
	out := make([]models.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func (s *CustodySuite) TestNew() {
	cat := catalog.Default()
	_, err := New(nil, s.ledger, policy.New(cat), cat, s.hasher)
	s.Error(err)
	_, err = New(s.repo, nil, policy.New(cat), cat, s.hasher)
	s.Error(err)
	_, err = New(s.repo, s.ledger, nil, cat, s.hasher)
	s.Error(err)
	_, err = New(s.repo, s.ledger, policy.New(cat), nil, s.hasher)
	s.Error(err)
	_, err = New(s.repo, s.ledger, policy.New(cat), cat, nil)
	s.Error(err)
}

func (s *CustodySuite) TestRegister() {
	s.Run("stores a hashed pin and starts in created", func() {
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e audit.Event) {
			s.Equal(audit.EventShipmentRegistered, e.Action)
		})

		reg := s.register("CP001", "CP003", "CP006")
		sh := reg.Shipment
		s.Equal(models.StatusCreated, sh.Status)
		s.Equal(-1, sh.CurrentCheckpointIndex)
		s.False(sh.IsTampered)
		s.Len(sh.Route, 3)
		s.Equal(2, sh.Route[2].SequenceIndex)
		s.NotEqual("482913", sh.RecipientPINHash)
		s.NoError(s.hasher.Compare(sh.RecipientPINHash, "482913"))
		s.NotEmpty(sh.QRToken)
		s.False(reg.PINGenerated)
		s.Empty(s.events(sh.ID))
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.ShipmentsRegistered))
	})

	s.Run("generates a pin and full route when omitted", func() {
		s.allowSideEffects()
		reg, err := s.service.Register(s.ctx, RegisterCommand{PackageType: "medical"})
		s.Require().NoError(err)
		s.True(reg.PINGenerated)
		s.NoError(pin.Validate(reg.PIN))
		s.Len(reg.Shipment.Route, 6)
	})

	s.Run("rejects bad input without storing anything", func() {
		cases := []struct {
			name string
			cmd  RegisterCommand
		}{
			{"unknown package type", RegisterCommand{PackageType: "plutonium", RecipientPIN: "123456"}},
			{"short pin", RegisterCommand{PackageType: "books", RecipientPIN: "1234"}},
			{"non numeric pin", RegisterCommand{PackageType: "books", RecipientPIN: "12a456"}},
			{"unknown checkpoint", RegisterCommand{PackageType: "books", Route: []string{"CP999"}, RecipientPIN: "123456"}},
			{"repeated checkpoint", RegisterCommand{PackageType: "books", Route: []string{"CP001", "CP001"}, RecipientPIN: "123456"}},
			{"out of order route", RegisterCommand{PackageType: "books", Route: []string{"CP003", "CP001"}, RecipientPIN: "123456"}},
		}
		before, err := s.repo.ListShipments(s.ctx)
		s.Require().NoError(err)
		for _, tc := range cases {
			_, err := s.service.Register(s.ctx, tc.cmd)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "%s: %v", tc.name, err)
		}
		after, err := s.repo.ListShipments(s.ctx)
		s.Require().NoError(err)
		s.Len(after, len(before))
	})
}

func (s *CustodySuite) TestScanLifecycle() {
	s.allowSideEffects()
	sh := s.register("CP001", "CP002", "CP003").Shipment

	s.Run("safe proceed at the first stop", func() {
		res, err := s.scan(sh.ID, "CP001", safeReading(), models.DecisionProceed)
		s.Require().NoError(err)
		s.Equal(models.StatusAtCheckpoint, res.Shipment.Status)
		s.Equal(0, res.Shipment.CurrentCheckpointIndex)
		s.False(res.Shipment.IsTampered)
		s.Len(s.events(sh.ID), 1)
		s.Equal("op-7", res.Events[0].OperatorID)
	})

	s.Run("tampered proceed appends detection before the scan", func() {
		res, err := s.scan(sh.ID, "CP002", loopBroken(), models.DecisionProceed)
		s.Require().NoError(err)
		s.Equal([]models.EventType{models.EventTamperDetected, models.EventCheckpointScan}, eventTypes(res.Events))
		s.Equal([]models.ViolationKind{models.ViolationLoopBroken}, res.Events[0].Violations)
		s.Equal(models.DecisionNotApplicable, res.Events[0].Decision)
		s.True(res.Shipment.IsTampered)
		s.Equal(1, res.Shipment.TamperCount)
		s.Equal(models.StatusAtCheckpoint, res.Shipment.Status)
		s.Equal(id.CheckpointID("CP002"), res.Shipment.CurrentCheckpointID)
		s.Len(s.events(sh.ID), 3)
	})

	s.Run("replaying an earlier stop is out of sequence", func() {
		_, err := s.scan(sh.ID, "CP001", safeReading(), models.DecisionProceed)
		s.True(dErrors.HasCode(err, dErrors.CodeOutOfSequence))
		s.Len(s.events(sh.ID), 3)
	})

	s.Run("final stop delivers", func() {
		res, err := s.scan(sh.ID, "CP003", safeReading(), models.DecisionProceed)
		s.Require().NoError(err)
		s.Equal([]models.EventType{models.EventCheckpointScan, models.EventDelivery}, eventTypes(res.Events))
		s.Nil(res.Events[1].Reading)
		s.Equal(models.StatusDelivered, res.Shipment.Status)
		s.True(res.Shipment.IsTampered, "tamper flag survives delivery")
		s.NoError(s.ledger.Verify(s.ctx, sh.ID))
	})

	s.Run("terminal shipments accept nothing", func() {
		_, err := s.scan(sh.ID, "CP003", safeReading(), models.DecisionProceed)
		s.True(dErrors.HasCode(err, dErrors.CodeTerminalState))
		_, err = s.service.ReportDeviceTamper(s.ctx, DeviceTamperCommand{ShipmentID: sh.ID, Reading: loopBroken()})
		s.True(dErrors.HasCode(err, dErrors.CodeTerminalState))
		s.Len(s.events(sh.ID), 5)
	})

	s.Equal(float64(1), testutil.ToFloat64(s.metrics.ScansTotal.WithLabelValues("delivered")))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.ViolationsTotal.WithLabelValues("LOOP_BROKEN")))
}

func (s *CustodySuite) TestScanReturn() {
	s.Run("tampered return ends custody", func() {
		s.allowSideEffects()
		sh := s.register("CP001", "CP002", "CP003").Shipment
		_, err := s.scan(sh.ID, "CP001", safeReading(), models.DecisionProceed)
		s.Require().NoError(err)

		res, err := s.scan(sh.ID, "CP002", loopBroken(), models.DecisionReturn)
		s.Require().NoError(err)
		s.Equal([]models.EventType{models.EventTamperDetected, models.EventReturn}, eventTypes(res.Events))
		s.Equal(models.StatusReturned, res.Shipment.Status)

		_, err = s.scan(sh.ID, "CP003", safeReading(), models.DecisionProceed)
		s.True(dErrors.HasCode(err, dErrors.CodeTerminalState))
	})

	s.Run("return is allowed at the first stop", func() {
		s.allowSideEffects()
		sh := s.register("CP001", "CP002").Shipment
		res, err := s.scan(sh.ID, "CP001", safeReading(), models.DecisionReturn)
		s.Require().NoError(err)
		s.Equal([]models.EventType{models.EventReturn}, eventTypes(res.Events))
		s.Equal(models.StatusReturned, res.Shipment.Status)
	})
}

func (s *CustodySuite) TestScanRejections() {
	s.allowSideEffects()
	sh := s.register("CP001", "CP002").Shipment

	cases := []struct {
		name     string
		shipment id.ShipmentID
		cp       string
		reading  models.SensorReading
		decision models.Decision
		code     dErrors.Code
	}{
		{"unknown shipment", id.NewShipmentID(), "CP001", safeReading(), models.DecisionProceed, dErrors.CodeNotFound},
		{"checkpoint off route", sh.ID, "CP004", safeReading(), models.DecisionProceed, dErrors.CodeValidation},
		{"skipping ahead", sh.ID, "CP002", safeReading(), models.DecisionProceed, dErrors.CodeOutOfSequence},
		{"bad decision", sh.ID, "CP001", safeReading(), models.Decision("hold"), dErrors.CodeValidation},
		{"humidity out of range", sh.ID, "CP001", func() models.SensorReading {
			r := safeReading()
			r.Humidity = 140
			return r
		}(), models.DecisionProceed, dErrors.CodeInvalidReading},
		{"missing tamper status", sh.ID, "CP001", func() models.SensorReading {
			r := safeReading()
			r.TamperStatus = ""
			return r
		}(), models.DecisionProceed, dErrors.CodeInvalidReading},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.scan(tc.shipment, tc.cp, tc.reading, tc.decision)
			s.True(dErrors.HasCode(err, tc.code), "got %v", err)
		})
	}

	current, err := s.service.GetShipment(s.ctx, sh.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCreated, current.Status)
	s.Empty(s.events(sh.ID))
	s.Equal(float64(len(cases)), testutil.ToFloat64(s.metrics.ScansTotal.WithLabelValues("rejected")))
}

func (s *CustodySuite) TestScanAudit() {
	sh := func() *models.Shipment {
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any())
		return s.register("CP001").Shipment
	}()
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	var actions []audit.AuditEvent
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e audit.Event) {
		actions = append(actions, e.Action)
		if e.Action == audit.EventTamperDetected {
			s.Equal("SHOCK", e.Reason)
			s.Equal(audit.SeverityWarning, e.Severity)
		}
	}).Times(2)

	r := safeReading()
	r.Acceleration = 35
	_, err := s.scan(sh.ID, "CP001", r, models.DecisionProceed)
	s.Require().NoError(err)
	s.Equal([]audit.AuditEvent{audit.EventTamperDetected, audit.EventShipmentDelivered}, actions)
}

func (s *CustodySuite) TestPublishAfterCommit() {
	s.Run("committed events are published in order", func() {
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).AnyTimes()
		sh := s.register("CP001", "CP002").Shipment

		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, events []models.CustodyEvent) error {
				s.Require().Len(events, 2)
				s.Equal(int64(0), events[0].Sequence)
				s.Equal(events[0].Hash, events[1].PrevHash)
				return nil
			})
		_, err := s.scan(sh.ID, "CP001", loopBroken(), models.DecisionProceed)
		s.Require().NoError(err)
	})

	s.Run("publish failure does not undo custody", func() {
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).AnyTimes()
		sh := s.register("CP001", "CP002").Shipment

		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))
		res, err := s.scan(sh.ID, "CP001", safeReading(), models.DecisionProceed)
		s.Require().NoError(err)
		s.Len(res.Events, 1)
		s.Len(s.events(sh.ID), 1)
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.PublishFailures))
	})

	s.Run("rejected scans publish nothing", func() {
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).AnyTimes()
		sh := s.register("CP001", "CP002").Shipment
		_, err := s.scan(sh.ID, "CP002", safeReading(), models.DecisionProceed)
		s.Error(err)
	})
}

func (s *CustodySuite) TestReportDeviceTamper() {
	s.allowSideEffects()
	sh := s.register("CP001", "CP002").Shipment

	s.Run("safe reading appends nothing", func() {
		res, err := s.service.ReportDeviceTamper(s.ctx, DeviceTamperCommand{ShipmentID: sh.ID, Reading: safeReading()})
		s.Require().NoError(err)
		s.Empty(res.Events)
		s.False(res.Shipment.IsTampered)
		s.Empty(s.events(sh.ID))
	})

	s.Run("violation appends a detection without a checkpoint", func() {
		r := safeReading()
		r.TamperStatus = models.TamperTampered
		r.Temperature = 60
		res, err := s.service.ReportDeviceTamper(s.ctx, DeviceTamperCommand{ShipmentID: sh.ID, Reading: r, Notes: "lid sensor"})
		s.Require().NoError(err)
		s.Require().Len(res.Events, 1)
		e := res.Events[0]
		s.Equal(models.EventTamperDetected, e.Type)
		s.Empty(e.CheckpointID)
		s.Equal([]models.ViolationKind{models.ViolationTamperFlag, models.ViolationTemperature}, e.Violations)
		s.Equal(models.StatusCreated, res.Shipment.Status)
		s.True(res.Shipment.IsTampered)
	})

	s.Run("custody continues afterwards", func() {
		res, err := s.scan(sh.ID, "CP001", safeReading(), models.DecisionProceed)
		s.Require().NoError(err)
		s.Equal(int64(1), res.Events[0].Sequence)
		s.True(res.Shipment.IsTampered)
	})

	s.Run("unknown shipment", func() {
		_, err := s.service.ReportDeviceTamper(s.ctx, DeviceTamperCommand{ShipmentID: id.NewShipmentID(), Reading: loopBroken()})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *CustodySuite) TestConcurrentScansSerialize() {
	s.allowSideEffects()
	sh := s.register("CP001", "CP002", "CP003").Shipment

	const writers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		codes     []dErrors.Code
	)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.scan(sh.ID, "CP001", safeReading(), models.DecisionProceed)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			codes = append(codes, dErrors.CodeOf(err))
		}()
	}
	wg.Wait()

	s.Equal(1, successes)
	for _, code := range codes {
		s.Equal(dErrors.CodeOutOfSequence, code)
	}
	events := s.events(sh.ID)
	s.Len(events, 1)
	s.NoError(ledger.VerifyChain(sh.ID, events))
}

func (s *CustodySuite) TestQueries() {
	s.allowSideEffects()
	first := s.register("CP001", "CP002").Shipment
	second := s.register("CP001").Shipment
	returned := s.register("CP001", "CP002").Shipment
	_, err := s.scan(first.ID, "CP001", loopBroken(), models.DecisionProceed)
	s.Require().NoError(err)
	_, err = s.scan(returned.ID, "CP001", safeReading(), models.DecisionProceed)
	s.Require().NoError(err)
	_, err = s.scan(returned.ID, "CP002", safeReading(), models.DecisionReturn)
	s.Require().NoError(err)

	s.Run("qr token resolves to its shipment", func() {
		got, err := s.service.ResolveQRToken(s.ctx, second.QRToken)
		s.Require().NoError(err)
		s.Equal(second.ID, got)

		_, err = s.service.ResolveQRToken(s.ctx, "no-such-token")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		_, err = s.service.ResolveQRToken(s.ctx, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("summaries carry progress and the latest reading", func() {
		summaries, err := s.service.ListShipments(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(summaries, 3)
		byID := map[id.ShipmentID]ShipmentSummary{}
		for _, sum := range summaries {
			byID[sum.Shipment.ID] = sum
		}
		s.Equal(1, byID[first.ID].CheckpointsPassed)
		s.Equal(2, byID[first.ID].EventCount)
		s.Require().NotNil(byID[first.ID].LatestReading)
		s.False(byID[first.ID].LatestReading.LoopConnected)
		s.True(byID[first.ID].Shipment.IsTampered)
		s.Equal(0, byID[second.ID].CheckpointsPassed)
		s.Nil(byID[second.ID].LatestReading)

		s.Equal(1, byID[returned.ID].CheckpointsPassed, "the stop it was returned at is not passed")
		s.Equal(2, byID[returned.ID].EventCount)
		s.Equal(models.StatusReturned, byID[returned.ID].Shipment.Status)
	})

	s.Run("unknown shipment", func() {
		_, err := s.service.GetShipment(s.ctx, id.NewShipmentID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestTranslate(t *testing.T) {
	coded := dErrors.New(dErrors.CodeTerminalState, "done")
	assert.Equal(t, coded, translate(coded, "x"))

	err := translate(errors.New("disk on fire"), "failed to record scan")
	require.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	assert.Equal(t, "failed to record scan", dErrors.MessageOf(err))
}

// editedSnapshots rewrites the ledger on snapshot reads to simulate rows
// edited behind the engine's back.
type editedSnapshots struct {
	store.Repository
	edit func([]models.CustodyEvent)
}

func (r *editedSnapshots) Snapshot(ctx context.Context, shipmentID id.ShipmentID) (*models.Shipment, []models.CustodyEvent, error) {
	sh, events, err := r.Repository.Snapshot(ctx, shipmentID)
	if err == nil && r.edit != nil {
		r.edit(events)
	}
	return sh, events, err
}

func (s *CustodySuite) TestLedgerQueries() {
	s.allowSideEffects()
	sh := s.register("CP001", "CP002").Shipment
	_, err := s.scan(sh.ID, "CP001", loopBroken(), models.DecisionProceed)
	s.Require().NoError(err)

	s.Run("ledger reads back in order", func() {
		events, err := s.service.Ledger(s.ctx, sh.ID)
		s.Require().NoError(err)
		s.Equal([]models.EventType{models.EventTamperDetected, models.EventCheckpointScan}, eventTypes(events))

		_, err = s.service.Ledger(s.ctx, id.NewShipmentID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("intact chain verifies", func() {
		res, err := s.service.VerifyLedger(s.ctx, sh.ID)
		s.Require().NoError(err)
		s.True(res.Verified)
		s.Equal(2, res.EventCount)
		s.Nil(res.FailedAt)
	})

	s.Run("edited row is reported and audited", func() {
		edited := &editedSnapshots{Repository: s.repo, edit: func(events []models.CustodyEvent) {
			events[1].Notes = "nothing to see"
		}}
		cat := catalog.Default()
		svc, err := New(edited, ledger.New(edited), policy.New(cat), cat, s.hasher,
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			WithMetrics(s.metrics),
			WithAuditPublisher(s.auditor),
		)
		s.Require().NoError(err)

		res, err := svc.VerifyLedger(s.ctx, sh.ID)
		s.Require().NoError(err)
		s.False(res.Verified)
		s.Require().NotNil(res.FailedAt)
		s.Equal(int64(1), *res.FailedAt)
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.IntegrityFailures))
	})
}

type editedEvents struct {
	store.Repository
	target id.ShipmentID
}

func (r *editedEvents) ListEvents(ctx context.Context, shipmentID id.ShipmentID) ([]models.CustodyEvent, error) {
	events, err := r.Repository.ListEvents(ctx, shipmentID)
	if err == nil && shipmentID == r.target && len(events) > 0 {
		events[0].Decision = models.DecisionReturn
	}
	return events, err
}

func (s *CustodySuite) TestSweepIntegrity() {
	s.allowSideEffects()
	healthy := s.register("CP001", "CP002").Shipment
	tampered := s.register("CP001", "CP002").Shipment
	for _, sh := range []*models.Shipment{healthy, tampered} {
		_, err := s.scan(sh.ID, "CP001", safeReading(), models.DecisionProceed)
		s.Require().NoError(err)
	}

	edited := &editedEvents{Repository: s.repo, target: tampered.ID}
	cat := catalog.Default()
	svc, err := New(s.repo, ledger.New(edited), policy.New(cat), cat, s.hasher,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithAuditPublisher(s.auditor),
	)
	s.Require().NoError(err)

	broken, err := svc.SweepIntegrity(s.ctx)
	s.Require().NoError(err)
	s.Equal([]id.ShipmentID{tampered.ID}, broken)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.IntegrityFailures))

	cancelled, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err = svc.SweepIntegrity(cancelled)
	s.Error(err)
}
