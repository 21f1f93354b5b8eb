package report

import (
	"time"

	"veriseal/internal/custody/models"
	id "veriseal/pkg/domain"
)

// Verdict is the report's overall custody assessment.
type Verdict string

const (
	VerdictSafe     Verdict = "safe"
	VerdictTampered Verdict = "tampered"
	// VerdictCompromised means the ledger itself failed verification; no
	// statement about the journey can be trusted.
	VerdictCompromised Verdict = "compromised"
)

type audienceKind int

const (
	audienceOperator audienceKind = iota
	audienceRecipient
)

// Audience selects what a report discloses.
type Audience struct {
	kind  audienceKind
	token string
}

// Operator is the internal audience; it sees raw sensor payloads.
func Operator() Audience {
	return Audience{kind: audienceOperator}
}

// Recipient is the end recipient holding a disclosure token.
func Recipient(token string) Audience {
	return Audience{kind: audienceRecipient, token: token}
}

func (a Audience) IsRecipient() bool {
	return a.kind == audienceRecipient
}

func (a Audience) String() string {
	if a.IsRecipient() {
		return "recipient"
	}
	return "operator"
}

// CheckpointEntry is one stop of the route with what happened there.
type CheckpointEntry struct {
	CheckpointID  id.CheckpointID       `json:"checkpoint_id"`
	DisplayName   string                `json:"display_name"`
	LocationLabel string                `json:"location_label"`
	SequenceIndex int                   `json:"sequence_index"`
	Scanned       bool                  `json:"scanned"`
	Decision      models.Decision       `json:"decision,omitempty"`
	ScannedAt     *time.Time            `json:"scanned_at,omitempty"`
	EventHash     string                `json:"event_hash,omitempty"`
	OperatorID    string                `json:"operator_id,omitempty"`
	Notes         string                `json:"notes,omitempty"`
	Reading       *models.SensorReading `json:"sensor_reading,omitempty"`
}

// TamperIncident is one TAMPER_DETECTED event. Fingerprint is the event hash,
// which anyone holding the ledger can recompute.
type TamperIncident struct {
	Sequence     int64                  `json:"sequence_number"`
	CheckpointID id.CheckpointID        `json:"checkpoint_id,omitempty"`
	Violations   []models.ViolationKind `json:"violations"`
	Fingerprint  string                 `json:"fingerprint"`
	RecordedAt   time.Time              `json:"recorded_at"`
	Reading      *models.SensorReading  `json:"sensor_reading,omitempty"`
}

type TamperSummary struct {
	IsTampered  bool             `json:"is_tampered"`
	TamperCount int              `json:"tamper_count"`
	Incidents   []TamperIncident `json:"incidents"`
}

// Integrity is the outcome of re-verifying the chain for this report.
type Integrity struct {
	Verified   bool   `json:"verified"`
	HeadHash   string `json:"head_hash"`
	EventCount int    `json:"event_count"`
	// FailedAt is the first offending sequence when Verified is false.
	FailedAt *int64 `json:"failed_at,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// TransitReport is a read-only projection of one shipment's custody.
type TransitReport struct {
	ShipmentID          id.ShipmentID     `json:"shipment_id"`
	PackageType         id.PackageType    `json:"package_type"`
	Audience            string            `json:"audience"`
	Status              models.Status     `json:"status"`
	CurrentCheckpointID id.CheckpointID   `json:"current_checkpoint_id,omitempty"`
	Verdict             Verdict           `json:"verdict"`
	Checkpoints         []CheckpointEntry `json:"checkpoints"`
	Tamper              TamperSummary     `json:"tamper"`
	Integrity           Integrity         `json:"integrity"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
	GeneratedAt         time.Time         `json:"generated_at"`
}
