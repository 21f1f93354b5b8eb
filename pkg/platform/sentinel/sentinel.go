package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors:
//   - ErrNotFound: record does not exist
//   - ErrConflict: uniqueness constraint hit (shipment id, qr token, event sequence)
//   - ErrAlreadyUsed: single-use resource (disclosure token) already consumed
//   - ErrExpired: single-use resource expired before consumption
//   - ErrUnavailable: backend temporarily unavailable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrAlreadyUsed = errors.New("already used")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
)
