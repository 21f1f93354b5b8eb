package models

import (
	"time"

	id "veriseal/pkg/domain"
)

// DisclosureToken is the capability handed to a recipient after a correct
// PIN. It authorizes exactly one recipient report for ShipmentID.
type DisclosureToken struct {
	Value      string        `json:"disclosure_token"`
	ShipmentID id.ShipmentID `json:"shipment_id"`
	ExpiresAt  time.Time     `json:"expires_at"`
}
