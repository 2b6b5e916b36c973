package store

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// RunIDGenerator supplies the ID of each new run.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator issues UUIDv7 IDs, which sort by creation time. It is
// safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator hands out a fixed list of IDs, for tests.
type FixedGenerator struct {
	mu   sync.Mutex
	ids  []string
	next int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next ID. It panics once the list is used up.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.next == len(g.ids) {
		panic(fmt.Sprintf("store: FixedGenerator ran out after %d ids", len(g.ids)))
	}
	id := g.ids[g.next]
	g.next++
	return id
}
