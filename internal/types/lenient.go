package types

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Number is an optional numeric API field.
// Only finite JSON numbers are kept; strings, booleans, objects and null
// decode to an absent value instead of failing the whole payload.
type Number struct {
	value float64
	valid bool
}

// NumberOf returns a present Number, or an absent one for NaN and infinities.
func NumberOf(f float64) Number {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Number{}
	}
	return Number{value: f, valid: true}
}

// Float64 returns the value and whether it is present.
func (n Number) Float64() (float64, bool) {
	return n.value, n.valid
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || !(data[0] == '-' || (data[0] >= '0' && data[0] <= '9')) {
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return nil
	}
	*n = NumberOf(f)
	return nil
}

// MarshalJSON implements json.Marshaler. Absent values encode as null.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}

// Flag is a relay state decoded by truthiness: true, non-zero numbers,
// non-empty strings, arrays and objects are on; false, 0, "" and null are off.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*f = false
		return nil
	}

	switch data[0] {
	case 't':
		*f = true
	case 'f', 'n':
		*f = false
	case '[', '{':
		*f = true
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = s != ""
	default:
		v, _ := strconv.ParseFloat(string(data), 64)
		*f = v != 0
	}
	return nil
}
