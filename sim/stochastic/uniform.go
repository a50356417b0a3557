package stochastic

import "math"

// Uniform is the subset of *rand.Rand UniformRound needs.
type Uniform interface {
	Float64() float64
}

// UniformRound draws an integer in [lo, hi] by sampling uniformly on
// [lo-0.5, hi+0.5) and rounding half away from zero, so both endpoints get the
// same weight as interior values. lo == hi returns lo without a draw.
func UniformRound(src Uniform, lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	if lo == hi {
		return lo
	}
	x := float64(lo) - 0.5 + src.Float64()*float64(hi-lo+1)
	v := int(math.Round(x))
	// Rounding half away from zero can push -0.5 offsets past the bounds.
	return min(max(v, lo), hi)
}

// Range is an inclusive integer range of ticks.
type Range struct {
	Min int `yaml:"min" toml:"min"`
	Max int `yaml:"max" toml:"max"`
}

// Draw samples the range with UniformRound.
func (r Range) Draw(src Uniform) int {
	return UniformRound(src, r.Min, r.Max)
}

// Fixed reports whether the range has a single value.
func (r Range) Fixed() bool { return r.Min == r.Max }
