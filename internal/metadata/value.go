package metadata

import (
	"strconv"
	"strings"
)

// Value is a cast cell value, tagged by its DataType. Integer values are
// also readable as Decimal (§8.2 casting monotonicity) via AsDecimal.
type Value struct {
	Type DataType
	S    string
	I    int64
	D    float64
}

// NewStringValue builds a String value.
func NewStringValue(s string) Value { return Value{Type: String, S: s} }

// NewIntegerValue builds an Integer value.
func NewIntegerValue(i int64) Value { return Value{Type: Integer, I: i} }

// NewDecimalValue builds a Decimal value.
func NewDecimalValue(d float64) Value { return Value{Type: Decimal, D: d} }

// AsDecimal returns the value as a float64, promoting Integer values.
// Valid only for Integer/Decimal values.
func (v Value) AsDecimal() float64 {
	if v.Type == Integer {
		return float64(v.I)
	}
	return v.D
}

// Raw returns the value rendered back to its original string form, the
// form every value is representable as (§3.1).
func (v Value) Raw() string {
	switch v.Type {
	case String:
		return v.S
	case Integer:
		return strconv.FormatInt(v.I, 10)
	case Decimal:
		return strconv.FormatFloat(v.D, 'g', -1, 64)
	default:
		return ""
	}
}

// Equal compares two values for equality of (type, content).
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case String:
		return v.S == o.S
	case Integer:
		return v.I == o.I
	case Decimal:
		return v.D == o.D
	}
	return false
}

// Cast parses raw as the given DataType. It returns (_, false) if raw
// cannot be parsed as that type — Integer rejects "1.0"-shaped strings;
// Decimal accepts integer-looking strings; String always succeeds.
func Cast(raw string, dt DataType) (Value, bool) {
	switch dt {
	case String:
		return NewStringValue(raw), true
	case Integer:
		i, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return Value{}, false
		}
		return NewIntegerValue(i), true
	case Decimal:
		d, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return Value{}, false
		}
		return NewDecimalValue(d), true
	default:
		return Value{}, false
	}
}

// DominantCastableType reports the most specific type raw can be cast to:
// Integer if it parses as Integer, else Decimal if it parses as Decimal,
// else String (which always succeeds).
func DominantCastableType(raw string) DataType {
	if _, ok := Cast(raw, Integer); ok {
		return Integer
	}
	if _, ok := Cast(raw, Decimal); ok {
		return Decimal
	}
	return String
}
