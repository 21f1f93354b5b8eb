package domain

import (
	"strings"

	dErrors "veriseal/pkg/domain-errors"
)

// PackageType is the declared content class of a shipment. It selects the
// tamper thresholds (temperature band, shock limit) applied to its readings.
//
// Usage: construct via ParsePackageType at trust boundaries. Whether the type is
// known is decided by the loaded catalog, not by this package.
type PackageType string

// ParsePackageType lower-cases and validates a package type name.
func ParsePackageType(s string) (PackageType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "package type is required")
	}
	if len(s) > 64 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "package type must be at most 64 characters")
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '-') {
			return "", dErrors.New(dErrors.CodeInvalidInput, "package type contains invalid characters")
		}
	}
	return PackageType(s), nil
}

func (p PackageType) String() string {
	return string(p)
}
