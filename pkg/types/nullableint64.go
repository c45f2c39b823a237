package types

import "encoding/json"

// NullableInt64 is an optional 64-bit integer.
type NullableInt64 struct {
	Value int64
	Valid bool
}

// Int64 returns the value, or 0 if absent.
func (ni NullableInt64) Int64() int64 {
	if ni.Valid {
		return ni.Value
	}
	return 0
}

// IsNil reports whether the value is absent.
func (ni NullableInt64) IsNil() bool {
	return !ni.Valid
}

// Set assigns a value and marks it present.
func (ni *NullableInt64) Set(value int64) {
	ni.Value = value
	ni.Valid = true
}

// OrElse returns the value when present and the result of fallback otherwise.
// fallback is not called for present values.
func (ni NullableInt64) OrElse(fallback func() int64) int64 {
	if ni.Valid {
		return ni.Value
	}
	return fallback()
}

// MarshalJSON encodes an absent value as null.
func (ni NullableInt64) MarshalJSON() ([]byte, error) {
	if ni.Valid {
		return json.Marshal(ni.Value)
	}
	return []byte("null"), nil
}

// UnmarshalJSON treats null as absent.
func (ni *NullableInt64) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*ni = NullableInt64{}
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	ni.Set(v)
	return nil
}

// NullableInt64From returns a present NullableInt64 holding v.
func NullableInt64From(v int64) NullableInt64 {
	return NullableInt64{Value: v, Valid: true}
}

// NullInt64 returns an absent NullableInt64.
func NullInt64() NullableInt64 {
	return NullableInt64{}
}

var _ json.Marshaler = &NullableInt64{}
var _ json.Unmarshaler = &NullableInt64{}
var _ Nullable = &NullableInt64{}
