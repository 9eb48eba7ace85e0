// Package bignum holds the tolerant number handling shared by content
// loading and the meta-currency ledger.
package bignum

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// SafeFloat clamps NaN, ±Inf and negatives to 0.
func SafeFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// ParseFloat accepts plain and exponent notation ("5e10"); anything
// unparseable, non-finite or negative yields 0.
func ParseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return SafeFloat(v)
}

// ParseDecimal parses a decimal string (exponent notation allowed) and
// floors it to a whole, non-negative amount.
func ParseDecimal(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		f := ParseFloat(s)
		if f == 0 {
			return decimal.Zero
		}
		return FromFloat(f)
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Floor()
}

// FromFloat converts a float amount into a whole decimal, 0 for degenerate input.
func FromFloat(v float64) decimal.Decimal {
	v = SafeFloat(v)
	if v == 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(math.Floor(v)).Floor()
}

// AddFloor returns floor(a+b).
func AddFloor(a, b decimal.Decimal) decimal.Decimal {
	return a.Add(b).Floor()
}

// SubFloor returns floor(a-b), never below zero.
func SubFloor(a, b decimal.Decimal) decimal.Decimal {
	out := a.Sub(b).Floor()
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// Number is a float64 that decodes from JSON numbers or numeric strings and
// never holds a non-finite or negative value.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number(parseRaw(b))
	return nil
}

func (n Number) Float() float64 { return float64(n) }

func parseRaw(b []byte) float64 {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return 0
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return 0
		}
		return ParseFloat(s)
	}
	return ParseFloat(string(b))
}

// ParseSigned decodes a JSON number or numeric string without clamping. ok is
// false for missing, null, unparseable and non-finite input.
func ParseSigned(b []byte) (v float64, ok bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return 0, false
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return 0, false
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Amount is a whole, non-negative decimal that decodes from JSON numbers or
// numeric strings. It encodes as a decimal string.
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		a.Decimal = decimal.Zero
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			a.Decimal = decimal.Zero
			return nil
		}
		a.Decimal = ParseDecimal(s)
	default:
		a.Decimal = ParseDecimal(string(b))
	}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Decimal.String())
}

// Signed is a finite float64 that may be negative; it decodes like Number.
type Signed float64

func (n *Signed) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			*n = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	*n = Signed(v)
	return nil
}

func (n Signed) Float() float64 { return float64(n) }
