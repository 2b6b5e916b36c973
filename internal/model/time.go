package model

import (
	"math"
	"strconv"
)

// Time is a point on the simulated time axis.
//
// Time is an immutable value type with a total order. Infinity is the
// distinguished "never fires again" value: reactions whose next time is
// Infinity sit at the bottom of the scheduler and are never executed.
type Time float64

const (
	// Zero is the start of every simulation.
	Zero Time = 0
)

// Infinity marks a reaction that cannot fire (exhausted one-shot events,
// zero propensity).
var Infinity = Time(math.Inf(1))

// Plus returns t + d. Adding anything to Infinity yields Infinity.
func (t Time) Plus(d Time) Time {
	return t + d
}

// Minus returns t - d.
func (t Time) Minus(d Time) Time {
	return t - d
}

// Compare returns -1, 0 or +1 depending on whether t is before, equal to or
// after o.
func (t Time) Compare(o Time) int {
	switch {
	case t < o:
		return -1
	case t > o:
		return 1
	default:
		return 0
	}
}

// Before reports whether t < o.
func (t Time) Before(o Time) bool {
	return t < o
}

// After reports whether t > o.
func (t Time) After(o Time) bool {
	return t > o
}

// IsInfinite reports whether t is the Infinity sentinel.
func (t Time) IsInfinite() bool {
	return math.IsInf(float64(t), 1)
}

// Float64 returns the raw value.
func (t Time) Float64() float64 {
	return float64(t)
}

// String formats t with the shortest representation that round-trips.
// Used for canonical trace encoding, so it must stay stable.
func (t Time) String() string {
	return strconv.FormatFloat(float64(t), 'g', -1, 64)
}

// ParseTime is the inverse of Time.String.
func ParseTime(s string) (Time, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return Time(f), nil
}
