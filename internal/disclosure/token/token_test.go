package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestNewServiceRejectsWeakConfig(t *testing.T) {
	_, err := NewService("short", time.Minute)
	assert.Error(t, err)
	_, err = NewService(testKey, 0)
	assert.Error(t, err)
}

func TestIssueAndValidate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc, err := NewService(testKey, 10*time.Minute, WithClock(clock))
	require.NoError(t, err)

	shipmentID := id.NewShipmentID()
	issued, err := svc.Issue(shipmentID)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.JTI)
	assert.Equal(t, now.Add(10*time.Minute), issued.ExpiresAt)

	t.Run("valid for its shipment", func(t *testing.T) {
		claims, err := svc.Validate(issued.Value, shipmentID)
		require.NoError(t, err)
		assert.Equal(t, issued.JTI, claims.ID)

		got, err := svc.ShipmentOf(issued.Value)
		require.NoError(t, err)
		assert.Equal(t, shipmentID, got)
	})

	t.Run("foreign shipment", func(t *testing.T) {
		_, err := svc.Validate(issued.Value, id.NewShipmentID())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	t.Run("expired", func(t *testing.T) {
		later, err := NewService(testKey, 10*time.Minute, WithClock(func() time.Time { return now.Add(11 * time.Minute) }))
		require.NoError(t, err)
		_, err = later.Validate(issued.Value, shipmentID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	t.Run("other key", func(t *testing.T) {
		other, err := NewService(strings.Repeat("x", 32), 10*time.Minute, WithClock(clock))
		require.NoError(t, err)
		_, err = other.Validate(issued.Value, shipmentID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	t.Run("unsigned token", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ShipmentID: shipmentID.String()})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.Validate(raw, shipmentID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Validate("not-a-token", shipmentID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})
}
