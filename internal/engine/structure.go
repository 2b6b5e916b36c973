package engine

import "github.com/roach88/kinetic/internal/model"

type changeKind int

const (
	reactionAdded changeKind = iota + 1
	reactionRemoved
	reactionChanged
)

type structureChange struct {
	kind     changeKind
	reaction model.Reaction
}

// structureBuffer collects the environment's structural notifications while
// a reaction executes. The engine drains it right after Execute returns,
// before computing invalidations, so the next step never sees a stale graph.
//
// Only the Run goroutine (or Init) touches the environment, so no lock.
type structureBuffer struct {
	changes []structureChange
}

var _ model.StructureListener = (*structureBuffer)(nil)

func (b *structureBuffer) ReactionAdded(r model.Reaction) {
	b.changes = append(b.changes, structureChange{kind: reactionAdded, reaction: r})
}

func (b *structureBuffer) ReactionRemoved(r model.Reaction) {
	b.changes = append(b.changes, structureChange{kind: reactionRemoved, reaction: r})
}

func (b *structureBuffer) ReactionChanged(r model.Reaction) {
	b.changes = append(b.changes, structureChange{kind: reactionChanged, reaction: r})
}

func (b *structureBuffer) drain() []structureChange {
	out := b.changes
	b.changes = nil
	return out
}
