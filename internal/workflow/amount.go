package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/trustvest/be-proposals/internal/apperr"
)

// Amount is a positive decimal kept in the exact form it was submitted in.
// It is never converted through a float, so "100000.10" round-trips with the
// submitted digits intact. The zero value is invalid.
type Amount string

// ParseAmount validates s as a positive plain decimal (digits with an
// optional fractional part; no sign, no exponent).
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return "", apperr.InvalidInput("amount", "amount is required")
	}

	intDigits, fracDigits := 0, 0
	seenDot := false
	nonZero := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			if seenDot {
				fracDigits++
			} else {
				intDigits++
			}
			if c != '0' {
				nonZero = true
			}
		case c == '.':
			if seenDot {
				return "", apperr.InvalidInput("amount", "not a valid decimal number")
			}
			seenDot = true
		default:
			return "", apperr.InvalidInput("amount", "not a valid decimal number")
		}
	}
	if intDigits == 0 || (seenDot && fracDigits == 0) {
		return "", apperr.InvalidInput("amount", "not a valid decimal number")
	}
	// A leading integer zero ("007", "00.5") is not a valid JSON number.
	if intDigits > 1 && s[0] == '0' {
		return "", apperr.InvalidInput("amount", "not a valid decimal number")
	}
	if !nonZero {
		return "", apperr.InvalidInput("amount", "amount must be greater than zero")
	}

	return Amount(s), nil
}

// String returns the decimal text.
func (a Amount) String() string { return string(a) }

// MarshalJSON emits the amount as a raw JSON number with the original digits.
func (a Amount) MarshalJSON() ([]byte, error) {
	if _, err := ParseAmount(string(a)); err != nil {
		return nil, fmt.Errorf("marshal amount %q: %w", string(a), err)
	}
	return []byte(a), nil
}

// UnmarshalJSON accepts a JSON number (or a numeric string, which some
// clients send) and validates it.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		var s string
		if err2 := json.Unmarshal(data, &s); err2 != nil {
			return apperr.InvalidInput("amount", "must be a number")
		}
		n = json.Number(s)
	}
	parsed, err := ParseAmount(n.String())
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
