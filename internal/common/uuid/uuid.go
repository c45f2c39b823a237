// Package uuid issues the time-ordered identifiers used for request ids.
// It wraps github.com/google/uuid and always produces UUIDv7.
package uuid

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

// UUID is github.com/google/uuid.UUID.
type UUID = uuid.UUID

// Nil is the zero UUID value.
var Nil = uuid.Nil

// NewRandom returns a new UUIDv7 and any error encountered during generation.
func NewRandom() (UUID, error) {
	return uuid.NewV7()
}

// New returns a new UUIDv7. Panics if UUID generation fails.
func New() UUID {
	return uuid.Must(uuid.NewV7())
}

// Parse parses a UUID string into a UUID value.
func Parse(s string) (UUID, error) {
	return uuid.Parse(s)
}

// IsUUIDv7 reports whether the given UUID is a UUIDv7.
func IsUUIDv7(id UUID) bool {
	return id.Version() == uuid.Version(7)
}

// Timestamp extracts the creation time embedded in the top 48 bits of a UUIDv7.
func Timestamp(u UUID) time.Time {
	ms := binary.BigEndian.Uint64(u[0:8]) >> 16
	return time.UnixMilli(int64(ms))
}
