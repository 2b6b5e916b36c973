package engine

import (
	"math"
	"sync/atomic"

	"github.com/roach88/kinetic/internal/model"
)

// Clock holds the simulation's position: the number of completed steps and
// the current simulated time.
//
// Only the Run loop advances it. Reads are atomic so that Status can be
// served from any goroutine without waiting for an in-flight step.
type Clock struct {
	steps atomic.Int64
	time  atomic.Uint64 // math.Float64bits of model.Time
}

// NewClock creates a clock at step 0, time 0.
func NewClock() *Clock {
	return &Clock{}
}

// Steps returns the number of completed steps.
func (c *Clock) Steps() int64 {
	return c.steps.Load()
}

// Advance records one more completed step and returns the new count.
func (c *Clock) Advance() int64 {
	return c.steps.Add(1)
}

// Time returns the current simulated time.
func (c *Clock) Time() model.Time {
	return model.Time(math.Float64frombits(c.time.Load()))
}

// SetTime moves the simulated time.
func (c *Clock) SetTime(t model.Time) {
	c.time.Store(math.Float64bits(float64(t)))
}
