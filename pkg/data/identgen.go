// SPDX-License-Identifier: Apache-2.0

package data

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces identifier values for columns the loader
// populates itself (spec §4.4.5: "pluggable identifier generation").
type Generator interface {
	Next() (any, error)
}

// GuidGenerator issues random v4 UUIDs, the default for guid-typed
// identifier columns.
type GuidGenerator struct{}

func (GuidGenerator) Next() (any, error) { return uuid.New(), nil }

// IntGenerator issues a monotonically increasing int32 sequence
// seeded by the caller. It does not coordinate with the database's
// own identity sequence; it is for non-identity integer PKs that the
// loader, not the engine, assigns (spec §4.4.5).
type IntGenerator struct {
	counter int64
}

// NewIntGenerator seeds the generator so the first Next() returns
// seed.
func NewIntGenerator(seed int32) *IntGenerator {
	return &IntGenerator{counter: int64(seed) - 1}
}

func (g *IntGenerator) Next() (any, error) {
	return int32(atomic.AddInt64(&g.counter, 1)), nil
}

// LongGenerator is IntGenerator's int64 counterpart.
type LongGenerator struct {
	counter int64
}

func NewLongGenerator(seed int64) *LongGenerator {
	return &LongGenerator{counter: seed - 1}
}

func (g *LongGenerator) Next() (any, error) {
	return atomic.AddInt64(&g.counter, 1), nil
}

// IntegerToGUID deterministically encodes n, as a big-endian 64-bit
// value, into the first 8 bytes of an otherwise-zeroed UUID, letting
// seed data reference guid primary keys by small readable integers
// (coerceGUID applies it to a plain integer or an integer string in a
// guid column; a "^N"-prefixed string is not expanded). The result is not a valid v4 UUID; it is a stable,
// collision-free-for-small-n placeholder, not a cryptographic id.
func IntegerToGUID(n int64) uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint64(u[:8], uint64(n))
	return u
}
