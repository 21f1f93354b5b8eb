package models

import (
	id "veriseal/pkg/domain"
)

// Checkpoint is static route reference data.
type Checkpoint struct {
	ID            id.CheckpointID `json:"id"`
	DisplayName   string          `json:"display_name"`
	LocationLabel string          `json:"location_label"`
	SequenceIndex int             `json:"sequence_index"`
}

// Route is the ordered list of checkpoints a shipment must pass. Stops are
// indexed 0..n-1 in route order; the route is a total order with no branches.
type Route []Checkpoint

// Find returns the stop with the given ID.
func (r Route) Find(cpID id.CheckpointID) (Checkpoint, bool) {
	for _, cp := range r {
		if cp.ID == cpID {
			return cp, true
		}
	}
	return Checkpoint{}, false
}

// At returns the stop at index i.
func (r Route) At(i int) (Checkpoint, bool) {
	if i < 0 || i >= len(r) {
		return Checkpoint{}, false
	}
	return r[i], true
}

// LastIndex is the index of the final stop, -1 for an empty route.
func (r Route) LastIndex() int {
	return len(r) - 1
}

// Clone returns a copy of the route.
func (r Route) Clone() Route {
	if r == nil {
		return nil
	}
	return append(Route(nil), r...)
}

// Thresholds are the tamper policy parameters for one package type.
type Thresholds struct {
	TempMin        float64 `yaml:"temp_min" json:"temp_min"`
	TempMax        float64 `yaml:"temp_max" json:"temp_max"`
	ShockThreshold float64 `yaml:"shock_threshold" json:"shock_threshold"`
}
