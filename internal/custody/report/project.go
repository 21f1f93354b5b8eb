package report

import (
	"time"

	"veriseal/internal/custody/ledger"
	"veriseal/internal/custody/models"
	id "veriseal/pkg/domain"
)

// project assembles the report body. The verdict assumes an intact chain;
// the builder downgrades it after verification.
func project(shipment *models.Shipment, events []models.CustodyEvent, audience Audience, now time.Time) *TransitReport {
	operator := !audience.IsRecipient()

	r := &TransitReport{
		ShipmentID:          shipment.ID,
		PackageType:         shipment.PackageType,
		Audience:            audience.String(),
		Status:              shipment.Status,
		CurrentCheckpointID: shipment.CurrentCheckpointID,
		Verdict:             VerdictSafe,
		Checkpoints:         make([]CheckpointEntry, len(shipment.Route)),
		Tamper: TamperSummary{
			IsTampered:  shipment.IsTampered,
			TamperCount: shipment.TamperCount,
			Incidents:   []TamperIncident{},
		},
		Integrity: Integrity{
			Verified:   true,
			HeadHash:   ledger.Head(events),
			EventCount: len(events),
		},
		CreatedAt:   shipment.CreatedAt,
		UpdatedAt:   shipment.UpdatedAt,
		GeneratedAt: models.NormalizeTime(now),
	}
	if shipment.IsTampered {
		r.Verdict = VerdictTampered
	}

	stops := make(map[id.CheckpointID]int, len(shipment.Route))
	for i, cp := range shipment.Route {
		stops[cp.ID] = i
		r.Checkpoints[i] = CheckpointEntry{
			CheckpointID:  cp.ID,
			DisplayName:   cp.DisplayName,
			LocationLabel: cp.LocationLabel,
			SequenceIndex: cp.SequenceIndex,
		}
	}

	for _, e := range events {
		switch e.Type {
		case models.EventTamperDetected:
			incident := TamperIncident{
				Sequence:     e.Sequence,
				CheckpointID: e.CheckpointID,
				Violations:   e.Violations,
				Fingerprint:  e.Hash,
				RecordedAt:   e.RecordedAt,
			}
			if operator {
				incident.Reading = e.Reading
			}
			r.Tamper.Incidents = append(r.Tamper.Incidents, incident)
		case models.EventCheckpointScan, models.EventReturn:
			i, ok := stops[e.CheckpointID]
			if !ok {
				continue
			}
			at := e.RecordedAt
			entry := &r.Checkpoints[i]
			entry.Scanned = true
			entry.Decision = e.Decision
			entry.ScannedAt = &at
			entry.EventHash = e.Hash
			if operator {
				entry.OperatorID = e.OperatorID
				entry.Notes = e.Notes
				entry.Reading = e.Reading
			}
		}
	}
	return r
}
