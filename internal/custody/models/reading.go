package models

import (
	"bytes"
	"encoding/json"
	"time"

	dErrors "veriseal/pkg/domain-errors"
	"veriseal/pkg/platform/validation"
)

// TamperStatus is the tamper switch state reported by the sensor module.
type TamperStatus string

const (
	TamperSecure   TamperStatus = "secure"
	TamperTampered TamperStatus = "tampered"
)

// SensorReading is a validated snapshot of device telemetry. It is an immutable value.
// Temperature and humidity carry no fixed range; whether a temperature is
// acceptable depends on the package type and is judged by the tamper policy.
type SensorReading struct {
	Temperature   float64      `json:"temperature" validate:"finite"`
	Humidity      float64      `json:"humidity" validate:"finite"`
	BatteryLevel  int          `json:"battery_level" validate:"gte=0,lte=100"`
	TamperStatus  TamperStatus `json:"tamper_status" validate:"required,oneof=secure tampered"`
	LoopConnected bool         `json:"loop_connected"`
	Acceleration  float64      `json:"acceleration" validate:"finite,gte=0"`
	GPSLocation   *string      `json:"gps_location,omitempty" validate:"omitempty,max=128"`
	CapturedAt    time.Time    `json:"captured_at" validate:"required"`
}

// Validate rejects out-of-range values with CodeInvalidReading. Values are never clamped.
func (r SensorReading) Validate() error {
	return validation.Struct(r, dErrors.CodeInvalidReading)
}

// Normalized returns the reading with CapturedAt in UTC at microsecond precision,
// the precision durable stores keep.
func (r SensorReading) Normalized() SensorReading {
	r.CapturedAt = NormalizeTime(r.CapturedAt)
	if r.GPSLocation != nil {
		loc := *r.GPSLocation
		r.GPSLocation = &loc
	}
	return r
}

// readingPayload is the wire schema: every field except gps_location must be present.
type readingPayload struct {
	Temperature   *float64   `json:"temperature" validate:"required"`
	Humidity      *float64   `json:"humidity" validate:"required"`
	BatteryLevel  *int       `json:"battery_level" validate:"required"`
	TamperStatus  *string    `json:"tamper_status" validate:"required"`
	LoopConnected *bool      `json:"loop_connected" validate:"required"`
	Acceleration  *float64   `json:"acceleration" validate:"required"`
	GPSLocation   *string    `json:"gps_location"`
	CapturedAt    *time.Time `json:"captured_at" validate:"required"`
}

// ParseSensorReading decodes a JSON reading. Unknown keys, missing fields and
// out-of-range values all fail with CodeInvalidReading.
func ParseSensorReading(raw []byte) (SensorReading, error) {
	var p readingPayload
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return SensorReading{}, dErrors.Wrap(err, dErrors.CodeInvalidReading, "malformed sensor reading")
	}
	if dec.More() {
		return SensorReading{}, dErrors.New(dErrors.CodeInvalidReading, "trailing data after sensor reading")
	}
	if err := validation.Struct(p, dErrors.CodeInvalidReading); err != nil {
		return SensorReading{}, err
	}
	r := SensorReading{
		Temperature:   *p.Temperature,
		Humidity:      *p.Humidity,
		BatteryLevel:  *p.BatteryLevel,
		TamperStatus:  TamperStatus(*p.TamperStatus),
		LoopConnected: *p.LoopConnected,
		Acceleration:  *p.Acceleration,
		GPSLocation:   p.GPSLocation,
		CapturedAt:    *p.CapturedAt,
	}
	if err := r.Validate(); err != nil {
		return SensorReading{}, err
	}
	return r.Normalized(), nil
}

// UnmarshalJSON applies the closed schema whenever a reading is embedded in a larger body.
func (r *SensorReading) UnmarshalJSON(data []byte) error {
	parsed, err := ParseSensorReading(data)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// NormalizeTime converts t to UTC truncated to microseconds.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
