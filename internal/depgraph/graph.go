// Package depgraph indexes reactions by the model elements they read, so
// that after a reaction fires the engine can find exactly the reactions its
// writes may have invalidated.
//
// Matching is by dependency kind:
//
//	write Local(n,m)   hits readers of Local(n,m) and Global(m)
//	write Global(m)    hits readers of Global(m) and of any Local(*,m)
//	write Layer(m)     hits readers of Layer(m)
//	write Everything   hits every reaction
//
// Readers of Everything are hit by any write. Results are returned in
// registration order so that rescheduling is deterministic.
package depgraph

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/kinetic/internal/model"
)

// ErrNotRegistered is returned by Reindex for an unknown reaction.
var ErrNotRegistered = errors.New("reaction not registered")

type reactionSet map[model.Reaction]struct{}

type registration struct {
	seq    uint64
	inputs []model.Dependency
}

// Graph is the reader index. It is not safe for concurrent use.
type Graph struct {
	regs    map[model.Reaction]registration
	seq     uint64
	readers map[model.Dependency]reactionSet
	// localReaders holds readers of any Local(*,m), keyed by m.
	localReaders map[model.Molecule]reactionSet
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		regs:         make(map[model.Reaction]registration),
		readers:      make(map[model.Dependency]reactionSet),
		localReaders: make(map[model.Molecule]reactionSet),
	}
}

// Add registers r under its current read set. Adding a registered reaction
// is a no-op.
func (g *Graph) Add(r model.Reaction) {
	if _, ok := g.regs[r]; ok {
		return
	}
	g.seq++
	g.index(r, g.seq)
}

// Remove unregisters r. Unknown reactions are ignored.
func (g *Graph) Remove(r model.Reaction) {
	reg, ok := g.regs[r]
	if !ok {
		return
	}
	for _, d := range reg.inputs {
		del(g.readers, d, r)
		if d.Kind == model.DependsOnLocal {
			del(g.localReaders, d.Molecule, r)
		}
	}
	delete(g.regs, r)
}

// Reindex re-reads r's read set, keeping its registration order.
func (g *Graph) Reindex(r model.Reaction) error {
	reg, ok := g.regs[r]
	if !ok {
		return fmt.Errorf("reindex %s: %w", r.ID(), ErrNotRegistered)
	}
	g.Remove(r)
	g.index(r, reg.seq)
	return nil
}

// Contains reports whether r is registered.
func (g *Graph) Contains(r model.Reaction) bool {
	_, ok := g.regs[r]
	return ok
}

// Len returns the number of registered reactions.
func (g *Graph) Len() int {
	return len(g.regs)
}

// Reactions returns every registered reaction in registration order.
func (g *Graph) Reactions() []model.Reaction {
	out := make([]model.Reaction, 0, len(g.regs))
	for r := range g.regs {
		out = append(out, r)
	}
	g.sort(out)
	return out
}

// InvalidatedBy returns every reaction whose read set intersects writes.
func (g *Graph) InvalidatedBy(writes []model.Dependency) []model.Reaction {
	if len(writes) == 0 {
		return nil
	}

	hit := make(reactionSet)
	collect := func(s reactionSet) {
		for r := range s {
			hit[r] = struct{}{}
		}
	}

	collect(g.readers[model.Everything])
	for _, w := range writes {
		switch w.Kind {
		case model.DependsOnLocal:
			collect(g.readers[w])
			collect(g.readers[model.Global(w.Molecule)])
		case model.DependsOnGlobal:
			collect(g.readers[w])
			collect(g.localReaders[w.Molecule])
		case model.DependsOnLayer:
			collect(g.readers[w])
		case model.DependsOnEverything:
			return g.Reactions()
		}
	}

	out := make([]model.Reaction, 0, len(hit))
	for r := range hit {
		out = append(out, r)
	}
	g.sort(out)
	return out
}

// Dependents returns the reactions r's writes may invalidate. r itself is
// included when it reads what it writes.
func (g *Graph) Dependents(r model.Reaction) []model.Reaction {
	return g.InvalidatedBy(r.Outputs())
}

func (g *Graph) index(r model.Reaction, seq uint64) {
	inputs := slices.Clone(r.Inputs())
	g.regs[r] = registration{seq: seq, inputs: inputs}
	for _, d := range inputs {
		put(g.readers, d, r)
		if d.Kind == model.DependsOnLocal {
			put(g.localReaders, d.Molecule, r)
		}
	}
}

func (g *Graph) sort(rs []model.Reaction) {
	slices.SortFunc(rs, func(a, b model.Reaction) int {
		return cmp.Compare(g.regs[a].seq, g.regs[b].seq)
	})
}

func put[K comparable](m map[K]reactionSet, k K, r model.Reaction) {
	s, ok := m[k]
	if !ok {
		s = make(reactionSet)
		m[k] = s
	}
	s[r] = struct{}{}
}

func del[K comparable](m map[K]reactionSet, k K, r model.Reaction) {
	s, ok := m[k]
	if !ok {
		return
	}
	delete(s, r)
	if len(s) == 0 {
		delete(m, k)
	}
}
