// Package pin hashes and checks recipient PINs. PINs are exactly six decimal
// digits and are stored only as salted bcrypt hashes.
package pin

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	dErrors "veriseal/pkg/domain-errors"
)

// Length is the number of digits in a recipient PIN.
const Length = 6

// ErrMismatch is returned by Compare when the PIN does not match the hash.
var ErrMismatch = errors.New("pin mismatch")

// Hasher hashes and compares PINs at a fixed bcrypt cost.
type Hasher struct {
	cost      int
	dummyHash []byte
}

// NewHasher builds a Hasher. A cost outside bcrypt's range falls back to
// bcrypt.DefaultCost.
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("000000"), cost)
	if err != nil {
		return nil, fmt.Errorf("could not prepare dummy pin hash: %w", err)
	}
	return &Hasher{cost: cost, dummyHash: dummy}, nil
}

// Validate rejects anything but exactly six ASCII digits.
func Validate(pin string) error {
	if len(pin) != Length {
		return dErrors.New(dErrors.CodeValidation, "recipient_pin must be exactly 6 digits")
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return dErrors.New(dErrors.CodeValidation, "recipient_pin must be exactly 6 digits")
		}
	}
	return nil
}

// Generate returns a uniformly random six-digit PIN.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("could not generate pin: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// GenerateToken returns a random URL-safe token for QR labels.
func GenerateToken() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash creates a salted bcrypt hash of a valid PIN.
func (h *Hasher) Hash(pin string) (string, error) {
	if err := Validate(pin); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), h.cost)
	if err != nil {
		return "", fmt.Errorf("could not hash pin: %w", err)
	}
	return string(hashed), nil
}

// Compare checks pin against hash. It returns ErrMismatch on a wrong PIN.
func (h *Hasher) Compare(hash, pin string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return fmt.Errorf("could not verify pin: %w", err)
	}
	return nil
}

// CompareDummy spends the same work as Compare against a fixed hash so that
// unknown shipments are indistinguishable from wrong PINs by timing.
func (h *Hasher) CompareDummy(pin string) {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(pin))
}
