package timedist

import (
	"math"

	"github.com/roach88/kinetic/internal/model"
)

// DiracComb fires at start, start+interval, start+2*interval, ...
//
// The comb only advances on a fired slot, so a reaction whose conditions
// never hold still moves forward one interval per pop.
type DiracComb struct {
	interval model.Time
	next     model.Time
}

// NewDiracComb panics if interval is not positive: a zero interval would
// pin the global clock forever.
func NewDiracComb(start, interval model.Time) *DiracComb {
	if interval <= 0 {
		panic("timedist: DiracComb interval must be positive")
	}
	return &DiracComb{interval: interval, next: start}
}

// NextOccurrence implements model.TimeDistribution.
func (d *DiracComb) NextOccurrence() model.Time {
	return d.next
}

// Rate is the frequency of the comb.
func (d *DiracComb) Rate() float64 {
	return 1 / float64(d.interval)
}

// Update implements model.TimeDistribution. Propensity is ignored.
//
// A comb created mid-run with a start in the past is moved forward to its
// first slot at or after now.
func (d *DiracComb) Update(now model.Time, fired bool, _ float64) {
	if fired {
		d.next = d.next.Plus(d.interval)
		return
	}
	if d.next.Before(now) {
		k := math.Ceil(float64(now.Minus(d.next) / d.interval))
		d.next = d.next.Plus(model.Time(k) * d.interval)
	}
}
