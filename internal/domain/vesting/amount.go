package vesting

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// MaxDecimals is the largest decimals value whose unit still fits in 256 bits.
const MaxDecimals = 77

// ParseAmount parses a base-10 count of base units.
func ParseAmount(s string) (uint256.Int, error) {
	var v uint256.Int
	s = strings.TrimSpace(s)
	if s == "" || !isDigits(s) {
		return v, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if err := v.SetFromDecimal(s); err != nil {
		return v, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	return v, nil
}

// TokenUnits returns n whole tokens expressed in base units.
func TokenUnits(n uint64, decimals uint8) uint256.Int {
	var v uint256.Int
	v.Mul(uint256.NewInt(n), unit(decimals))
	return v
}

// ParseUnits converts a decimal token quantity such as "1000.5" into
// base units. The fraction may not carry more digits than decimals.
func ParseUnits(s string, decimals uint8) (uint256.Int, error) {
	var v uint256.Int
	if decimals > MaxDecimals {
		return v, fmt.Errorf("%w: decimals %d out of range", ErrInvalidAmount, decimals)
	}
	s = strings.TrimSpace(s)
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return v, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if (whole != "" && !isDigits(whole)) || (frac != "" && !isDigits(frac)) {
		return v, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	frac = strings.TrimRight(frac, "0")
	if len(frac) > int(decimals) {
		return v, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidAmount, s, decimals)
	}
	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	if err := v.SetFromDecimal(digits); err != nil {
		return v, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	return v, nil
}

// FormatUnits renders base units as a token quantity without trailing
// fractional zeros, e.g. 1500000000000000000 at 18 decimals is "1.5".
func FormatUnits(v uint256.Int, decimals uint8) string {
	dec := v.Dec()
	if decimals == 0 {
		return dec
	}
	d := int(decimals)
	if len(dec) <= d {
		dec = strings.Repeat("0", d-len(dec)+1) + dec
	}
	whole, frac := dec[:len(dec)-d], strings.TrimRight(dec[len(dec)-d:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

func unit(decimals uint8) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(decimals)))
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
