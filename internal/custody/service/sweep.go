package service

import (
	"context"

	"veriseal/internal/custody/ledger"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
	"veriseal/pkg/platform/audit"
)

// SweepIntegrity re-verifies every ledger and raises an incident for each
// broken one. It returns the shipments whose chains failed.
func (s *Service) SweepIntegrity(ctx context.Context) ([]id.ShipmentID, error) {
	shipments, err := s.repo.ListShipments(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list shipments")
	}
	ids := make([]id.ShipmentID, len(shipments))
	for i, sh := range shipments {
		ids[i] = sh.ID
	}

	results, err := s.ledger.VerifyMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	var broken []id.ShipmentID
	for _, shipmentID := range ids {
		verr := results[shipmentID]
		if verr == nil {
			continue
		}
		reason := dErrors.MessageOf(verr)
		if ie, ok := ledger.AsIntegrityError(verr); ok {
			reason = ie.Reason
		} else if !dErrors.HasCode(verr, dErrors.CodeIntegrity) {
			s.logger.WarnContext(ctx, "ledger could not be read during sweep",
				"shipment_id", shipmentID.String(),
				"error", verr,
			)
			continue
		}
		broken = append(broken, shipmentID)
		s.metrics.IncrementIntegrityFailure()
		s.emit(ctx, audit.Event{
			ShipmentID: shipmentID.String(),
			Action:     audit.EventLedgerIntegrityFailed,
			Reason:     reason,
			Severity:   audit.SeverityCritical,
		})
	}
	s.logger.InfoContext(ctx, "ledger integrity sweep finished",
		"shipments", len(ids),
		"broken", len(broken),
	)
	return broken, nil
}
