package types

import "encoding/json"

// NullableString is an optional string. An empty string with Valid set is present.
type NullableString struct {
	Value string
	Valid bool
}

// String returns the value, or an empty string if absent.
func (ns NullableString) String() string {
	if ns.Valid {
		return ns.Value
	}
	return ""
}

// IsNil reports whether the value is absent.
func (ns NullableString) IsNil() bool {
	return !ns.Valid
}

// Set assigns a value and marks it present.
func (ns *NullableString) Set(value string) {
	ns.Value = value
	ns.Valid = true
}

// MarshalJSON encodes an absent value as null.
func (ns NullableString) MarshalJSON() ([]byte, error) {
	if ns.Valid {
		return json.Marshal(ns.Value)
	}
	return []byte("null"), nil
}

// UnmarshalJSON treats null as absent.
func (ns *NullableString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*ns = NullableString{}
		return nil
	}
	ns.Valid = true
	return json.Unmarshal(data, &ns.Value)
}

// NullableStringFrom returns a present NullableString holding s.
func NullableStringFrom(s string) NullableString {
	return NullableString{Value: s, Valid: true}
}

// NullString returns an absent NullableString.
func NullString() NullableString {
	return NullableString{}
}

var _ json.Marshaler = &NullableString{}
var _ json.Unmarshaler = &NullableString{}
var _ Nullable = &NullableString{}
