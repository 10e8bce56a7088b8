// Package money converts between human-facing decimal amounts and the scaled
// integer representation persisted by the stores. Amounts are stored as int64
// minor units scaled by 10,000, giving exactly 4 fractional decimal digits.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Scale is the number of minor units per major unit.
const Scale = 10_000

// MaxFractionDigits is the precision the ledger accepts on input.
const MaxFractionDigits = 4

// ErrInvalidAmount indicates the input is not a decimal number the ledger can
// represent without loss.
var ErrInvalidAmount = errors.New("invalid amount")

// Parse converts a signed decimal string into minor units. It rejects empty
// input, non-numeric input and amounts with more than 4 fractional digits.
// The zero value is accepted here; callers that disallow zero check the result.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	negative := false
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		negative = true
		s = s[1:]
	}
	if s == "" || s == "." {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	intPart := s
	fracPart := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart, fracPart = s[:idx], s[idx+1:]
	}
	if len(fracPart) > MaxFractionDigits {
		return 0, fmt.Errorf("%w: more than %d fractional digits", ErrInvalidAmount, MaxFractionDigits)
	}

	var minor int64
	for _, r := range intPart {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		d := int64(r - '0')
		if minor > (1<<62)/10 {
			return 0, fmt.Errorf("%w: out of range", ErrInvalidAmount)
		}
		minor = minor*10 + d
	}

	frac := int64(0)
	for _, r := range fracPart {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		frac = frac*10 + int64(r-'0')
	}
	for i := len(fracPart); i < MaxFractionDigits; i++ {
		frac *= 10
	}

	if minor > (math.MaxInt64-frac)/Scale {
		return 0, fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	minor = minor*Scale + frac
	if negative {
		minor = -minor
	}
	return minor, nil
}

// Format renders minor units as a decimal string with 4 fractional digits.
func Format(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%04d", sign, minor/Scale, minor%Scale)
}
