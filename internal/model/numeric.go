package model

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

// ParseNumericOrDefault converts a loosely typed value into a finite float64.
// Anything that is not a finite number becomes def.
func ParseNumericOrDefault(v any, def float64) float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return def
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint:
		f = float64(n)
	case Number:
		f = float64(n)
	case Atomic:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return def
		}
		f = parsed
	default:
		return def
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// Number is a JSON numeric field that never fails to decode. Strings holding
// numbers are accepted, everything else collapses to zero.
type Number float64

// Float returns the value as float64.
func (n Number) Float() float64 { return float64(n) }

// Int returns the value truncated toward zero.
func (n Number) Int() int64 { return int64(n) }

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number(ParseNumericOrDefault(rawScalar(data), 0))
	return nil
}

// Atomic is an amount in atomic currency units. It stays integral so block
// rewards above 2^53 keep every digit.
type Atomic uint64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Atomic) UnmarshalJSON(data []byte) error {
	s := rawScalar(data)
	if s == nil {
		*a = 0
		return nil
	}
	str := s.(string)
	if u, err := strconv.ParseUint(str, 10, 64); err == nil {
		*a = Atomic(u)
		return nil
	}
	f := ParseNumericOrDefault(str, 0)
	if f <= 0 || f >= math.MaxUint64 {
		*a = 0
		return nil
	}
	*a = Atomic(f)
	return nil
}

// rawScalar returns the textual payload of a JSON number or string, or nil
// for null, booleans, objects and arrays.
func rawScalar(data []byte) any {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		unquoted, err := strconv.Unquote(string(data))
		if err != nil {
			return nil
		}
		return strings.TrimSpace(unquoted)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(data)
	default:
		return nil
	}
}
