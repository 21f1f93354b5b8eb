package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"veriseal/internal/custody/models"
	"veriseal/internal/custody/report"
	"veriseal/internal/custody/service"
	dmodels "veriseal/internal/disclosure/models"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
	"veriseal/pkg/platform/httputil"
	"veriseal/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks CustodyService,ReportBuilder,PINVerifier,TokenScope

// CustodyService is the custody state machine as seen by HTTP.
type CustodyService interface {
	Register(ctx context.Context, cmd service.RegisterCommand) (*service.Registration, error)
	Scan(ctx context.Context, cmd service.ScanCommand) (*service.ScanResult, error)
	ReportDeviceTamper(ctx context.Context, cmd service.DeviceTamperCommand) (*service.ScanResult, error)
	ListShipments(ctx context.Context) ([]service.ShipmentSummary, error)
	Ledger(ctx context.Context, shipmentID id.ShipmentID) ([]models.CustodyEvent, error)
	VerifyLedger(ctx context.Context, shipmentID id.ShipmentID) (*service.LedgerVerification, error)
	ResolveQRToken(ctx context.Context, token string) (id.ShipmentID, error)
}

type ReportBuilder interface {
	Build(ctx context.Context, shipmentID id.ShipmentID, audience report.Audience) (*report.TransitReport, error)
}

// PINVerifier exchanges a correct recipient PIN for a disclosure token.
type PINVerifier interface {
	VerifyPIN(ctx context.Context, shipmentID id.ShipmentID, pin string) (*dmodels.DisclosureToken, error)
}

// TokenScope reads the shipment a disclosure token was issued for.
type TokenScope interface {
	ShipmentOf(token string) (id.ShipmentID, error)
}

// Handler wires custody and recipient endpoints to their services.
type Handler struct {
	custody CustodyService
	reports ReportBuilder
	pins    PINVerifier
	tokens  TokenScope
	logger  *slog.Logger
}

func New(custody CustodyService, reports ReportBuilder, pins PINVerifier, tokens TokenScope, logger *slog.Logger) *Handler {
	return &Handler{
		custody: custody,
		reports: reports,
		pins:    pins,
		tokens:  tokens,
		logger:  logger,
	}
}

// Register mounts operator endpoints behind requireOperator and the public
// recipient endpoints.
func (h *Handler) Register(r chi.Router, requireOperator func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireOperator)
		r.Post("/shipments", h.HandleRegisterShipment)
		r.Get("/shipments", h.HandleListShipments)
		r.Post("/shipments/{id}/scans", h.HandleScan)
		r.Post("/shipments/{id}/device-tamper", h.HandleDeviceTamper)
		r.Get("/shipments/{id}/report", h.HandleOperatorReport)
		r.Get("/shipments/{id}/ledger", h.HandleLedger)
		r.Get("/shipments/{id}/ledger/verify", h.HandleVerifyLedger)
	})

	r.Get("/recipient/qr/{token}", h.HandleResolveQR)
	r.Post("/recipient/verify", h.HandleVerifyRecipient)
	r.Get("/recipient/report", h.HandleRecipientReport)
}

// HandleRegisterShipment handles POST /shipments.
func (h *Handler) HandleRegisterShipment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterShipmentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	reg, err := h.custody.Register(ctx, service.RegisterCommand{
		PackageType:  req.PackageType,
		Route:        req.Route,
		RecipientPIN: req.RecipientPIN,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "shipment registration failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, RegisterShipmentResponse{
		ShipmentResponse: FromShipment(reg.Shipment),
		RecipientPIN:     reg.PIN,
		PINGenerated:     reg.PINGenerated,
	})
}

// HandleListShipments handles GET /shipments.
func (h *Handler) HandleListShipments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summaries, err := h.custody.ListShipments(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list shipments",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSummaries(summaries))
}

// HandleScan handles POST /shipments/{id}/scans.
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	shipmentID, ok := h.shipmentIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ScanRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.custody.Scan(ctx, service.ScanCommand{
		ShipmentID:   shipmentID,
		CheckpointID: req.ParsedCheckpointID(),
		Reading:      *req.Reading,
		Decision:     models.Decision(req.Decision),
		Notes:        req.Notes,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "checkpoint scanned",
		"request_id", requestID,
		"shipment_id", shipmentID.String(),
		"checkpoint_id", req.CheckpointID,
		"status", res.Shipment.Status.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromScanResult(res))
}

// HandleDeviceTamper handles POST /shipments/{id}/device-tamper.
func (h *Handler) HandleDeviceTamper(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	shipmentID, ok := h.shipmentIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DeviceTamperRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.custody.ReportDeviceTamper(ctx, service.DeviceTamperCommand{
		ShipmentID: shipmentID,
		Reading:    *req.Reading,
		Notes:      req.Notes,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusOK
	if len(res.Events) > 0 {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, FromScanResult(res))
}

// HandleOperatorReport handles GET /shipments/{id}/report.
func (h *Handler) HandleOperatorReport(w http.ResponseWriter, r *http.Request) {
	shipmentID, ok := h.shipmentIDParam(w, r)
	if !ok {
		return
	}
	rep, err := h.reports.Build(r.Context(), shipmentID, report.Operator())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rep)
}

// HandleLedger handles GET /shipments/{id}/ledger.
func (h *Handler) HandleLedger(w http.ResponseWriter, r *http.Request) {
	shipmentID, ok := h.shipmentIDParam(w, r)
	if !ok {
		return
	}
	events, err := h.custody.Ledger(r.Context(), shipmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromLedger(shipmentID, events))
}

// HandleVerifyLedger handles GET /shipments/{id}/ledger/verify.
func (h *Handler) HandleVerifyLedger(w http.ResponseWriter, r *http.Request) {
	shipmentID, ok := h.shipmentIDParam(w, r)
	if !ok {
		return
	}
	res, err := h.custody.VerifyLedger(r.Context(), shipmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVerification(res))
}

// HandleResolveQR handles GET /recipient/qr/{token}.
func (h *Handler) HandleResolveQR(w http.ResponseWriter, r *http.Request) {
	shipmentID, err := h.custody.ResolveQRToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, QRResolveResponse{ShipmentID: shipmentID})
}

// HandleVerifyRecipient handles POST /recipient/verify.
func (h *Handler) HandleVerifyRecipient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyRecipientRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	tok, err := h.pins.VerifyPIN(ctx, req.ParsedShipmentID(), req.PIN)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tok)
}

// HandleRecipientReport handles GET /recipient/report. The bearer token both
// names the shipment and authorizes one disclosure.
func (h *Handler) HandleRecipientReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, ok := bearerToken(r)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotAuthorized, "disclosure token required"))
		return
	}
	shipmentID, err := h.tokens.ShipmentOf(token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rep, err := h.reports.Build(ctx, shipmentID, report.Recipient(token))
	if err != nil {
		h.logger.WarnContext(ctx, "recipient report refused",
			"request_id", requestcontext.RequestID(ctx),
			"shipment_id", shipmentID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rep)
}

func (h *Handler) shipmentIDParam(w http.ResponseWriter, r *http.Request) (id.ShipmentID, bool) {
	shipmentID, err := id.ParseShipmentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid shipment id"))
		return id.ShipmentID{}, false
	}
	return shipmentID, true
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
