// Package deliverable implements the lifecycle of a model: an initial Build,
// then repeating maintenance cycles of six quarterly Monitors and a Rebuild.
package deliverable

import (
	"fmt"

	"github.com/inference-sim/workforce-sim/sim"
)

const (
	// QuarterTicks is the length of a fixed-origin quarter.
	QuarterTicks = 13
	// MonitorsPerCycle is the number of Monitor phases planned after each Build or Rebuild.
	MonitorsPerCycle = 6
)

// TargetQuarter returns the first tick of the quarter n quarters after the one
// containing tick, plus one: T - (T mod 13) + 13n + 1.
func TargetQuarter(tick int64, n int) int64 {
	return tick - tick%QuarterTicks + QuarterTicks*int64(n) + 1
}

// Kind is a phase type.
type Kind string

const (
	KindBuild   Kind = "build"
	KindMonitor Kind = "monitor"
	KindRebuild Kind = "rebuild"
)

// Priority returns the pool priority of the phase kind.
func (k Kind) Priority() int {
	switch k {
	case KindBuild:
		return sim.PriorityBuild
	case KindMonitor:
		return sim.PriorityMonitor
	case KindRebuild:
		return sim.PriorityRebuild
	}
	panic(fmt.Sprintf("unknown phase kind %q", string(k)))
}

// Terminal reports whether a deadline miss in this kind fails the deliverable.
func (k Kind) Terminal() bool { return k != KindMonitor }

// Phase is one bounded unit of work with its acquisition window.
// A grant on the MustStartBy tick itself still counts as on time.
type Phase struct {
	Kind           Kind
	Index          int // monitor number 1..MonitorsPerCycle; 0 otherwise
	StartNotBefore int64
	MustStartBy    int64
}

// Label names the phase, e.g. "build", "monitor-3", "rebuild".
func (p Phase) Label() string {
	if p.Kind == KindMonitor {
		return fmt.Sprintf("%s-%d", p.Kind, p.Index)
	}
	return string(p.Kind)
}

func (p Phase) String() string {
	return fmt.Sprintf("%s [%d, %d]", p.Label(), p.StartNotBefore, p.MustStartBy)
}

// quarterWindow is the one-quarter window that opens at start.
func quarterWindow(kind Kind, index int, start int64) Phase {
	return Phase{Kind: kind, Index: index, StartNotBefore: start, MustStartBy: start + QuarterTicks}
}

// PlanCycle lays out the maintenance cycle that follows a Build or Rebuild
// completed at tick completedAt: Monitor k opens at TargetQuarter(completedAt, k)
// and the Rebuild opens at TargetQuarter(completedAt, rebuildQuarters).
func PlanCycle(completedAt int64, rebuildQuarters int) []Phase {
	plan := make([]Phase, 0, MonitorsPerCycle+1)
	for k := 1; k <= MonitorsPerCycle; k++ {
		plan = append(plan, quarterWindow(KindMonitor, k, TargetQuarter(completedAt, k)))
	}
	plan = append(plan, quarterWindow(KindRebuild, 0, TargetQuarter(completedAt, rebuildQuarters)))
	return plan
}
