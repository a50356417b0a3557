// Package testutil provides shared test fixtures and assertion helpers for
// the simulation packages.
package testutil

import (
	"math"
	"testing"

	"github.com/inference-sim/workforce-sim/sim/scenario"
)

// SmallScenario returns the default modeling team shrunk to a horizon,
// replication count and backlog size that keep tests fast.
func SmallScenario(name string, horizon int64, replications, deliverables int) scenario.Scenario {
	sc := scenario.Default()
	sc.Name = name
	sc.Horizon = horizon
	sc.Replications = replications
	sc.Backlog.Count = deliverables
	return sc
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertSeriesBounded checks the per-tick series of one replication: one
// entry per tick, headcount within [0, target], and never more free slots
// than employed modelers.
func AssertSeriesBounded(t *testing.T, available, headcount []int, horizon int64, target int) {
	t.Helper()
	if int64(len(available)) != horizon || int64(len(headcount)) != horizon {
		t.Fatalf("series lengths: available=%d headcount=%d, want %d", len(available), len(headcount), horizon)
	}
	for tick := range available {
		if headcount[tick] < 0 || headcount[tick] > target {
			t.Errorf("tick %d: headcount %d outside [0, %d]", tick, headcount[tick], target)
		}
		if available[tick] < 0 || available[tick] > headcount[tick] {
			t.Errorf("tick %d: available %d outside [0, %d]", tick, available[tick], headcount[tick])
		}
	}
}
