package writepipeline

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces opaque, store-unique event or snapshot ids. The
// default implementation below is the one spec.md §6 describes ("UUID-
// v4-style strings using a cryptographic RNG"); callers inject a
// deterministic generator for reproducible tests, mirroring the
// teacher's engine.FlowTokenGenerator / engine.FixedGenerator split in
// internal/engine/flow.go.
type IDGenerator func() string

// DefaultIDGenerator returns a new random UUIDv4 string on every call.
func DefaultIDGenerator() string {
	return uuid.New().String()
}

// FixedGenerator returns predetermined ids in order, for deterministic
// tests and golden-file comparisons. Panics if exhausted — a fail-fast
// signal that the test asked for more ids than it provisioned.
type FixedGenerator struct {
	mu   sync.Mutex
	ids  []string
	next int
}

// NewFixedGenerator creates a generator that yields ids in the given
// order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.next >= len(g.ids) {
		panic("writepipeline: FixedGenerator exhausted")
	}
	id := g.ids[g.next]
	g.next++
	return id
}
