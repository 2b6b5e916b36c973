package timedist

import (
	"math"

	"github.com/roach88/kinetic/internal/model"
)

// Exponential is a Poisson process with rate = base rate * propensity.
type Exponential struct {
	rate       float64
	rng        model.RandomSource
	next       model.Time
	propensity float64 // effective rate used for the current next time
}

// NewExponential returns an exponential distribution with the given base
// rate drawing from rng. Until the first Update the next occurrence is
// Infinity.
func NewExponential(rate float64, rng model.RandomSource) *Exponential {
	return &Exponential{
		rate: rate,
		rng:  rng,
		next: model.Infinity,
	}
}

// NextOccurrence implements model.TimeDistribution.
func (e *Exponential) NextOccurrence() model.Time {
	return e.next
}

// Rate implements model.TimeDistribution.
func (e *Exponential) Rate() float64 {
	return e.rate
}

// Update implements model.TimeDistribution.
//
//   - effective rate 0             -> Infinity
//   - fired, or previously idle    -> fresh draw from now
//   - rate changed, not fired      -> remaining wait scaled by old/new
//   - rate unchanged, not fired    -> next time untouched
func (e *Exponential) Update(now model.Time, fired bool, propensity float64) {
	effective := e.rate * propensity
	switch {
	case effective <= 0:
		e.next = model.Infinity
	case fired || e.propensity <= 0 || e.next.IsInfinite():
		e.next = now.Plus(e.sample(effective))
	case effective != e.propensity:
		remaining := e.next.Minus(now)
		e.next = now.Plus(model.Time(e.propensity/effective) * remaining)
	}
	e.propensity = effective
}

// sample draws an exponential waiting time by inversion.
func (e *Exponential) sample(rate float64) model.Time {
	u := e.rng.Float64()
	return model.Time(-math.Log1p(-u) / rate)
}
