package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriseal/internal/custody/models"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
)

var electronics = models.Thresholds{TempMin: -10, TempMax: 45, ShockThreshold: 20}

func safeReading() models.SensorReading {
	return models.SensorReading{
		Temperature:   22,
		Humidity:      40,
		BatteryLevel:  90,
		TamperStatus:  models.TamperSecure,
		LoopConnected: true,
		Acceleration:  1.5,
		CapturedAt:    time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *models.SensorReading)
		want   []models.ViolationKind
	}{
		{"safe", func(r *models.SensorReading) {}, nil},
		{"tamper flag", func(r *models.SensorReading) { r.TamperStatus = models.TamperTampered }, []models.ViolationKind{models.ViolationTamperFlag}},
		{"loop broken", func(r *models.SensorReading) { r.LoopConnected = false }, []models.ViolationKind{models.ViolationLoopBroken}},
		{"shock above threshold", func(r *models.SensorReading) { r.Acceleration = 20.01 }, []models.ViolationKind{models.ViolationShock}},
		{"shock at threshold is safe", func(r *models.SensorReading) { r.Acceleration = 20 }, nil},
		{"too cold", func(r *models.SensorReading) { r.Temperature = -10.5 }, []models.ViolationKind{models.ViolationTemperature}},
		{"too hot", func(r *models.SensorReading) { r.Temperature = 45.1 }, []models.ViolationKind{models.ViolationTemperature}},
		{"band edges are safe", func(r *models.SensorReading) { r.Temperature = 45 }, nil},
		{"cryogenic reading", func(r *models.SensorReading) { r.Temperature = -196 }, []models.ViolationKind{models.ViolationTemperature}},
		{
			"all rules co-occur in canonical order",
			func(r *models.SensorReading) {
				r.Temperature = 80
				r.Acceleration = 50
				r.LoopConnected = false
				r.TamperStatus = models.TamperTampered
			},
			[]models.ViolationKind{models.ViolationTamperFlag, models.ViolationLoopBroken, models.ViolationShock, models.ViolationTemperature},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := safeReading()
			tt.mutate(&r)
			v := Classify(r, electronics)
			assert.Equal(t, tt.want, v.Kinds)
			assert.Equal(t, len(tt.want) == 0, v.Safe())
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	r := safeReading()
	r.LoopConnected = false
	first := Classify(r, electronics)
	for range 100 {
		assert.Equal(t, first, Classify(r, electronics))
	}
	assert.True(t, first.Has(models.ViolationLoopBroken))
	assert.False(t, first.Has(models.ViolationShock))
}

type staticSource map[id.PackageType]models.Thresholds

func (s staticSource) Thresholds(pt id.PackageType) (models.Thresholds, bool) {
	t, ok := s[pt]
	return t, ok
}

func TestPolicyUsesPackageTypeBand(t *testing.T) {
	p := New(staticSource{
		"electronics": electronics,
		"medical":     {TempMin: 2, TempMax: 8, ShockThreshold: 15},
	})
	r := safeReading() // 22C: fine for electronics, too warm for medical

	v, err := p.Classify("electronics", r)
	require.NoError(t, err)
	assert.True(t, v.Safe())

	v, err = p.Classify("medical", r)
	require.NoError(t, err)
	assert.Equal(t, []models.ViolationKind{models.ViolationTemperature}, v.Kinds)

	_, err = p.Classify("unknown", r)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}
