// Package policy classifies sensor readings as safe or violating.
// Classification is pure domain logic: no I/O, no side effects.
package policy

import (
	"veriseal/internal/custody/models"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
)

// Verdict is the outcome of classifying one reading. Kinds are in canonical order.
type Verdict struct {
	Kinds []models.ViolationKind
}

// Safe reports whether no rule fired.
func (v Verdict) Safe() bool {
	return len(v.Kinds) == 0
}

// Has reports whether kind fired.
func (v Verdict) Has(kind models.ViolationKind) bool {
	for _, k := range v.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Classify evaluates every rule independently; several kinds may co-occur.
// Rules, in canonical order:
//  1. TAMPER_FLAG - the tamper switch reports tampered
//  2. LOOP_BROKEN - the continuity loop is severed
//  3. SHOCK - acceleration exceeds the shock threshold
//  4. TEMPERATURE - temperature outside [TempMin, TempMax]
func Classify(reading models.SensorReading, t models.Thresholds) Verdict {
	var kinds []models.ViolationKind
	if reading.TamperStatus == models.TamperTampered {
		kinds = append(kinds, models.ViolationTamperFlag)
	}
	if !reading.LoopConnected {
		kinds = append(kinds, models.ViolationLoopBroken)
	}
	if reading.Acceleration > t.ShockThreshold {
		kinds = append(kinds, models.ViolationShock)
	}
	if reading.Temperature < t.TempMin || reading.Temperature > t.TempMax {
		kinds = append(kinds, models.ViolationTemperature)
	}
	return Verdict{Kinds: kinds}
}

// ThresholdSource resolves thresholds for a declared package type.
type ThresholdSource interface {
	Thresholds(packageType id.PackageType) (models.Thresholds, bool)
}

// Policy binds the rules to injected package-type thresholds.
type Policy struct {
	source ThresholdSource
}

func New(source ThresholdSource) *Policy {
	return &Policy{source: source}
}

// Classify looks up thresholds for packageType and classifies the reading.
// An unknown package type is an internal invariant failure: registration only
// accepts catalog package types.
func (p *Policy) Classify(packageType id.PackageType, reading models.SensorReading) (Verdict, error) {
	t, ok := p.source.Thresholds(packageType)
	if !ok {
		return Verdict{}, dErrors.New(dErrors.CodeInvariantViolation, "no thresholds configured for package type "+packageType.String())
	}
	return Classify(reading, t), nil
}
