// Package types provides optional value types for request fields that may be absent.
package types

// Nullable is implemented by values that distinguish "absent" from a zero value.
type Nullable interface {
	IsNil() bool
}
