package models_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veriseal/internal/custody/models"
	dErrors "veriseal/pkg/domain-errors"
)

// =============================================================================
// Sensor Reading Test Suite
// =============================================================================
// Justification: readings feed the hash input, so the closed schema and the
// range checks are the only barrier against unknown keys and clamped values.

type ReadingSuite struct {
	suite.Suite
}

func TestReadingSuite(t *testing.T) {
	suite.Run(t, new(ReadingSuite))
}

const validReading = `{
	"temperature": 21.5,
	"humidity": 40,
	"battery_level": 87,
	"tamper_status": "secure",
	"loop_connected": true,
	"acceleration": 1.2,
	"gps_location": "19.07,72.87",
	"captured_at": "2026-05-01T10:00:00.123456789+05:30"
}`

func (s *ReadingSuite) TestParseSensorReading() {
	s.Run("accepts a complete reading and normalizes time", func() {
		r, err := models.ParseSensorReading([]byte(validReading))
		s.Require().NoError(err)
		s.Equal(21.5, r.Temperature)
		s.Equal(87, r.BatteryLevel)
		s.Equal(models.TamperSecure, r.TamperStatus)
		s.True(r.LoopConnected)
		s.Require().NotNil(r.GPSLocation)
		s.Equal("19.07,72.87", *r.GPSLocation)
		s.Equal(time.UTC, r.CapturedAt.Location())
		s.Equal(123456000, r.CapturedAt.Nanosecond())
	})

	s.Run("gps location is optional", func() {
		_, err := models.ParseSensorReading([]byte(`{"temperature":1,"humidity":1,"battery_level":1,"tamper_status":"secure","loop_connected":true,"acceleration":0,"captured_at":"2026-05-01T10:00:00Z"}`))
		s.NoError(err)
	})

	s.Run("rejects unknown keys", func() {
		_, err := models.ParseSensorReading([]byte(`{"temperature":1,"humidity":1,"battery_level":1,"tamper_status":"secure","loop_connected":true,"acceleration":0,"captured_at":"2026-05-01T10:00:00Z","firmware":"x"}`))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidReading))
	})

	s.Run("rejects missing fields", func() {
		_, err := models.ParseSensorReading([]byte(`{"temperature":1,"humidity":1,"battery_level":1,"tamper_status":"secure","acceleration":0,"captured_at":"2026-05-01T10:00:00Z"}`))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidReading))
		s.Contains(dErrors.MessageOf(err), "loop_connected")
	})

	s.Run("rejects battery above 100 without clamping", func() {
		_, err := models.ParseSensorReading([]byte(`{"temperature":1,"humidity":1,"battery_level":101,"tamper_status":"secure","loop_connected":true,"acceleration":0,"captured_at":"2026-05-01T10:00:00Z"}`))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidReading))
		s.Contains(dErrors.MessageOf(err), "battery_level")
	})

	s.Run("rejects negative acceleration", func() {
		_, err := models.ParseSensorReading([]byte(`{"temperature":1,"humidity":1,"battery_level":1,"tamper_status":"secure","loop_connected":true,"acceleration":-0.1,"captured_at":"2026-05-01T10:00:00Z"}`))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidReading))
	})

	s.Run("rejects unknown tamper status", func() {
		_, err := models.ParseSensorReading([]byte(`{"temperature":1,"humidity":1,"battery_level":1,"tamper_status":"open","loop_connected":true,"acceleration":0,"captured_at":"2026-05-01T10:00:00Z"}`))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidReading))
	})

	s.Run("rejects malformed json", func() {
		_, err := models.ParseSensorReading([]byte(`{"temperature":`))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidReading))
	})
}

func (s *ReadingSuite) TestValidate() {
	r := models.SensorReading{
		Temperature:   20,
		Humidity:      30,
		BatteryLevel:  50,
		TamperStatus:  models.TamperSecure,
		LoopConnected: true,
		CapturedAt:    time.Now(),
	}
	s.NoError(r.Validate())

	r.BatteryLevel = -1
	s.True(dErrors.HasCode(r.Validate(), dErrors.CodeInvalidReading))

	r.BatteryLevel = 50
	r.CapturedAt = time.Time{}
	s.True(dErrors.HasCode(r.Validate(), dErrors.CodeInvalidReading))

	s.Run("extreme temperatures are left to the tamper policy", func() {
		cold := r
		cold.CapturedAt = time.Now()
		for _, temp := range []float64{-196, -80, 180} {
			cold.Temperature = temp
			s.NoError(cold.Validate(), "temperature %v", temp)
		}
	})

	s.Run("non-finite temperature", func() {
		bad := r
		bad.CapturedAt = time.Now()
		bad.Temperature = math.Inf(-1)
		s.True(dErrors.HasCode(bad.Validate(), dErrors.CodeInvalidReading))
		bad.Temperature = math.NaN()
		s.True(dErrors.HasCode(bad.Validate(), dErrors.CodeInvalidReading))
	})
}
