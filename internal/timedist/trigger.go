package timedist

import "github.com/roach88/kinetic/internal/model"

// Trigger fires exactly once at a fixed time.
type Trigger struct {
	next model.Time
}

func NewTrigger(at model.Time) *Trigger {
	return &Trigger{next: at}
}

// NextOccurrence implements model.TimeDistribution.
func (t *Trigger) NextOccurrence() model.Time {
	return t.next
}

// Rate implements model.TimeDistribution.
func (t *Trigger) Rate() float64 {
	return 0
}

// Update implements model.TimeDistribution. After the single slot the
// trigger is exhausted. A trigger whose time has already passed fires now.
func (t *Trigger) Update(now model.Time, fired bool, _ float64) {
	switch {
	case fired:
		t.next = model.Infinity
	case t.next.Before(now):
		t.next = now
	}
}
