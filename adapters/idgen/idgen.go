// Package idgen provides key generators for records stored without a key.
package idgen

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/matchboxjs/matchbox-model/ports"
)

// UUID generates random (version 4) UUIDs.
type UUID struct{}

// New generates a new UUID v4.
func (UUID) New() string {
	return uuid.NewString()
}

// UUIDv7 generates time-ordered (version 7) UUIDs, so keys sort by
// creation time in stores that list keys in order.
type UUIDv7 struct{}

// New generates a new UUID v7. It falls back to v4 if the clock source
// fails.
func (UUIDv7) New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Sequential generates prefixed, increasing IDs (for testing).
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

// Reset resets the counter.
func (s *Sequential) Reset() {
	s.counter.Store(0)
}

// ByName returns the generator configured by name: "uuid" (or ""),
// "uuidv7" or "sequential".
func ByName(name string) (ports.IDGenerator, error) {
	switch name {
	case "", "uuid":
		return UUID{}, nil
	case "uuidv7":
		return UUIDv7{}, nil
	case "sequential":
		return NewSequential(""), nil
	}
	return nil, fmt.Errorf("unknown id generator %q", name)
}

// Ensure interface compliance.
var (
	_ ports.IDGenerator = UUID{}
	_ ports.IDGenerator = UUIDv7{}
	_ ports.IDGenerator = (*Sequential)(nil)
)
