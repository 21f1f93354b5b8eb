// Package token issues and validates disclosure tokens: short-lived HS256
// JWTs scoped to one shipment, each carrying a unique jti for single use.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
)

const (
	DefaultIssuer   = "veriseal"
	DefaultAudience = "veriseal-recipient"
)

// Claims are the disclosure token claims.
type Claims struct {
	ShipmentID string `json:"shipment_id"`
	jwt.RegisteredClaims
}

// Issued is a signed token with the facts the issuer must remember.
type Issued struct {
	Value     string
	JTI       string
	ExpiresAt time.Time
}

// Service signs and validates disclosure tokens.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
	now        func() time.Time
}

type Option func(*Service)

// WithClock sets the time source for issuing and validation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(signingKey string, ttl time.Duration, opts ...Option) (*Service, error) {
	if len(signingKey) < 32 {
		return nil, errors.New("disclosure signing key must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, errors.New("disclosure token ttl must be positive")
	}
	s := &Service{
		signingKey: []byte(signingKey),
		issuer:     DefaultIssuer,
		audience:   DefaultAudience,
		ttl:        ttl,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL is the lifetime of issued tokens.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for shipmentID with a fresh jti.
func (s *Service) Issue(shipmentID id.ShipmentID) (Issued, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	jti := uuid.NewString()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ShipmentID: shipmentID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			Subject:   shipmentID.String(),
			ID:        jti,
		},
	})
	signed, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return Issued{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign disclosure token")
	}
	return Issued{Value: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}

// Validate checks signature, expiry, issuer, audience and scope. Any failure
// is CodeNotAuthorized.
func (s *Service) Validate(tokenString string, shipmentID id.ShipmentID) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeNotAuthorized, "disclosure token has expired")
		}
		return nil, dErrors.New(dErrors.CodeNotAuthorized, "invalid disclosure token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, dErrors.New(dErrors.CodeNotAuthorized, "invalid disclosure token claims")
	}
	if claims.ShipmentID != shipmentID.String() {
		return nil, dErrors.New(dErrors.CodeNotAuthorized, "disclosure token is not valid for this shipment")
	}
	return claims, nil
}

// ShipmentOf reads the shipment a token claims to be scoped to, after
// verifying its signature. Callers must still call Validate.
func (s *Service) ShipmentOf(tokenString string) (id.ShipmentID, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return id.ShipmentID{}, dErrors.New(dErrors.CodeNotAuthorized, "invalid disclosure token")
	}
	shipmentID, err := id.ParseShipmentID(claims.ShipmentID)
	if err != nil {
		return id.ShipmentID{}, dErrors.New(dErrors.CodeNotAuthorized, "invalid disclosure token")
	}
	return shipmentID, nil
}
