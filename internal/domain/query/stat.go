package query

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// Stat is an optional per-game number. The zero value is absent and is
// omitted from payloads tagged with omitzero.
type Stat struct {
	Value   float64
	Present bool
}

// Num returns a present Stat holding v.
func Num(v float64) Stat { return Stat{Value: v, Present: true} }

// IsZero reports whether the stat is absent.
func (s Stat) IsZero() bool { return !s.Present }

// MarshalJSON encodes non-finite values as null, like a browser would.
func (s Stat) MarshalJSON() ([]byte, error) {
	if !s.Present || math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return []byte("null"), nil
	}
	if s.Value == 0 {
		// negative zero prints as 0
		return []byte("0"), nil
	}
	return json.Marshal(s.Value)
}

// UnmarshalJSON accepts a number or null.
func (s *Stat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = Stat{Value: math.NaN(), Present: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = Num(v)
	return nil
}

// decimalNumber is the decimal literal syntax a browser accepts.
var decimalNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// ParseNumber coerces a form string to a number the way an unchecked
// browser conversion does: blank is 0, 0x/0o/0b literals and Infinity are
// understood, and anything else unparsable is NaN.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if v, ok := parseRadix(s); ok {
		return v
	}
	if !decimalNumber.MatchString(s) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	// overflow is ±Inf, underflow is 0
	return v
}

// parseRadix handles unsigned 0x, 0o and 0b literals. ok is false when s
// has no such prefix.
func parseRadix(s string) (float64, bool) {
	if len(s) < 2 || s[0] != '0' {
		return 0, false
	}
	var base int
	switch s[1] {
	case 'x', 'X':
		base = 16
	case 'o', 'O':
		base = 8
	case 'b', 'B':
		base = 2
	default:
		return 0, false
	}
	digits := s[2:]
	if digits == "" || digits[0] == '+' || digits[0] == '-' {
		return math.NaN(), true
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return math.NaN(), true
	}
	v, _ := new(big.Float).SetInt(n).Float64()
	return v, true
}
