// Package stochastic implements the per-tick random draws that drive staffing
// and phase durations.
package stochastic

import (
	"fmt"
	"math"
)

// Source is the subset of *rand.Rand the draws need.
type Source interface {
	NormFloat64() float64
	Float64() float64
}

// Hazard converts one draw x of an event's inter-arrival time into the
// probability that the event happens this tick. The result is 1/x clamped to
// [0, 1]; x <= 0 means the event is overdue and yields 1. NaN never fires.
func Hazard(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x <= 1:
		return 1
	default:
		return 1 / x
	}
}

// Fires decides whether an event with the given mean and standard deviation
// of inter-arrival ticks happens this tick. It always consumes exactly one
// normal and one uniform draw.
func Fires(src Source, mean, stdDev float64) bool {
	x := src.NormFloat64()*stdDev + mean
	u := src.Float64()
	return u < Hazard(x)
}

// Trigger is a named hazard event such as "hire found" or "modeler quits".
type Trigger struct {
	Name   string  `yaml:"name,omitempty" toml:"name,omitempty"`
	Mean   float64 `yaml:"mean" toml:"mean"`
	StdDev float64 `yaml:"stddev" toml:"stddev"`
}

// Disabled reports whether the trigger is switched off (mean and stddev both zero).
func (t Trigger) Disabled() bool {
	return t.Mean == 0 && t.StdDev == 0
}

// Fires draws once for this tick. A disabled trigger never fires and consumes
// no randomness.
func (t Trigger) Fires(src Source) bool {
	if t.Disabled() {
		return false
	}
	return Fires(src, t.Mean, t.StdDev)
}

// Validate rejects parameters that cannot describe an inter-arrival time.
func (t Trigger) Validate() error {
	if t.Disabled() {
		return nil
	}
	if math.IsNaN(t.Mean) || math.IsInf(t.Mean, 0) || t.Mean <= 0 {
		return fmt.Errorf("trigger %q: mean must be a positive finite number, got %v", t.Name, t.Mean)
	}
	if math.IsNaN(t.StdDev) || math.IsInf(t.StdDev, 0) || t.StdDev < 0 {
		return fmt.Errorf("trigger %q: stddev must be a non-negative finite number, got %v", t.Name, t.StdDev)
	}
	return nil
}

func (t Trigger) String() string {
	return fmt.Sprintf("%s(mean=%g, stddev=%g)", t.Name, t.Mean, t.StdDev)
}
