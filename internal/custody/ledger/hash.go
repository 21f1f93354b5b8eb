package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"veriseal/internal/custody/models"
	id "veriseal/pkg/domain"
)

// GenesisHash is the prev_hash of the first event of every ledger.
var GenesisHash = strings.Repeat("0", sha256.Size*2)

// canonicalEvent fixes the field order and encoding of the hash input.
// Every field except the event's own hash is committed, including prev_hash.
type canonicalEvent struct {
	ShipmentID   string            `json:"shipment_id"`
	Sequence     int64             `json:"sequence_number"`
	Type         string            `json:"event_type"`
	CheckpointID string            `json:"checkpoint_id"`
	Reading      *canonicalReading `json:"sensor_reading"`
	Violations   []string          `json:"violations"`
	Decision     string            `json:"decision"`
	Notes        string            `json:"notes"`
	OperatorID   string            `json:"operator_id"`
	PrevHash     string            `json:"prev_hash"`
	RecordedAt   string            `json:"recorded_at"`
}

type canonicalReading struct {
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`
	BatteryLevel  int     `json:"battery_level"`
	TamperStatus  string  `json:"tamper_status"`
	LoopConnected bool    `json:"loop_connected"`
	Acceleration  float64 `json:"acceleration"`
	GPSLocation   *string `json:"gps_location"`
	CapturedAt    string  `json:"captured_at"`
}

func canonicalTime(t time.Time) string {
	return models.NormalizeTime(t).Format(time.RFC3339Nano)
}

// Canonical returns the serialized hash input of e, without e.Hash.
// Nil and empty violation lists serialize identically.
func Canonical(e models.CustodyEvent) ([]byte, error) {
	c := canonicalEvent{
		ShipmentID:   e.ShipmentID.String(),
		Sequence:     e.Sequence,
		Type:         string(e.Type),
		CheckpointID: e.CheckpointID.String(),
		Violations:   make([]string, 0, len(e.Violations)),
		Decision:     string(e.Decision),
		Notes:        e.Notes,
		OperatorID:   e.OperatorID,
		PrevHash:     e.PrevHash,
		RecordedAt:   canonicalTime(e.RecordedAt),
	}
	for _, v := range e.Violations {
		c.Violations = append(c.Violations, string(v))
	}
	if r := e.Reading; r != nil {
		c.Reading = &canonicalReading{
			Temperature:   r.Temperature,
			Humidity:      r.Humidity,
			BatteryLevel:  r.BatteryLevel,
			TamperStatus:  string(r.TamperStatus),
			LoopConnected: r.LoopConnected,
			Acceleration:  r.Acceleration,
			GPSLocation:   r.GPSLocation,
			CapturedAt:    canonicalTime(r.CapturedAt),
		}
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode canonical event: %w", err)
	}
	return raw, nil
}

// ComputeHash returns hex(SHA-256(prev_hash || canonical(e))) using e.PrevHash.
func ComputeHash(e models.CustodyEvent) (string, error) {
	raw, err := Canonical(e)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(e.PrevHash))
	h.Write(raw)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Position locates the next event of a shipment's ledger.
type Position struct {
	ShipmentID id.ShipmentID
	Sequence   int64
	PrevHash   string
}

// PositionAfter returns the position following last, or the genesis position
// when last is nil.
func PositionAfter(shipmentID id.ShipmentID, last *models.CustodyEvent) Position {
	if last == nil {
		return Position{ShipmentID: shipmentID, PrevHash: GenesisHash}
	}
	return Position{ShipmentID: shipmentID, Sequence: last.Sequence + 1, PrevHash: last.Hash}
}

// Seal turns a draft into the sealed event at pos.
func Seal(pos Position, draft models.EventDraft) (models.CustodyEvent, error) {
	e := models.CustodyEvent{
		ShipmentID: pos.ShipmentID,
		Sequence:   pos.Sequence,
		PrevHash:   pos.PrevHash,
	}
	e.Type = draft.Type
	e.CheckpointID = draft.CheckpointID
	e.Decision = draft.Decision
	e.Notes = draft.Notes
	e.OperatorID = draft.OperatorID
	e.RecordedAt = models.NormalizeTime(draft.RecordedAt)
	if draft.Reading != nil {
		r := draft.Reading.Normalized()
		e.Reading = &r
	}
	if len(draft.Violations) > 0 {
		e.Violations = sortViolations(draft.Violations)
	}
	hash, err := ComputeHash(e)
	if err != nil {
		return models.CustodyEvent{}, err
	}
	e.Hash = hash
	return e, nil
}

func sortViolations(kinds []models.ViolationKind) []models.ViolationKind {
	seen := make(map[models.ViolationKind]bool, len(kinds))
	for _, k := range kinds {
		seen[k] = true
	}
	out := make([]models.ViolationKind, 0, len(seen))
	for _, k := range models.ViolationOrder {
		if seen[k] {
			out = append(out, k)
			delete(seen, k)
		}
	}
	for _, k := range kinds {
		if seen[k] {
			out = append(out, k)
			delete(seen, k)
		}
	}
	return out
}

// Head returns the hash a new event would chain to.
func Head(events []models.CustodyEvent) string {
	if len(events) == 0 {
		return GenesisHash
	}
	return events[len(events)-1].Hash
}
