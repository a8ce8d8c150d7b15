package jbeamsync

import "github.com/google/uuid"

// IDGenerator mints vertex ids that do not clash with anything the caller
// already knows about. Swappable in tests for deterministic names.
type IDGenerator interface {
	// NewID returns a fresh id with the given prefix for which taken
	// reports false.
	NewID(prefix string, taken func(string) bool) string
}

type uuidGenerator struct{}

// NewUUIDGenerator returns the production generator: prefix plus the first
// eight hex characters of a random UUID, re-rolled until unused.
func NewUUIDGenerator() IDGenerator { return uuidGenerator{} }

func (uuidGenerator) NewID(prefix string, taken func(string) bool) string {
	for {
		id := prefix + uuid.NewString()[:8]
		if taken == nil || !taken(id) {
			return id
		}
	}
}
