// Package montecarlo runs independent replications of the workforce
// simulation and aggregates their outcomes into distributions.
package montecarlo

import (
	"fmt"

	"github.com/inference-sim/workforce-sim/sim"
	"github.com/inference-sim/workforce-sim/sim/deliverable"
	"github.com/inference-sim/workforce-sim/sim/scenario"
	"github.com/inference-sim/workforce-sim/sim/staffing"
	"github.com/inference-sim/workforce-sim/sim/trace"
)

// ReplicationResult summarises one replication. It is not modified after
// RunReplication returns.
type ReplicationResult struct {
	Index int
	Seed  int64 // derived replication key, not the experiment's master seed

	Hires int
	Quits int

	BuildsCompleted   int
	BuildsFailed      int
	RebuildsCompleted int
	RebuildsFailed    int
	MonitorsCompleted int
	MonitorsFailed    int

	// AllBuiltAt is the tick the last initial build resolved with every
	// surviving deliverable built, or -1.
	AllBuiltAt int64

	FailedDeliverables int
	AbandonedTasks     int
	PeakInUse          int

	// Per-tick series, one entry per tick in [0, horizon).
	Available []int // free pool slots
	Headcount []int // employed modelers
}

func (r *ReplicationResult) String() string {
	return fmt.Sprintf("Replication %d: hires=%d quits=%d builds=%d/%d rebuilds=%d/%d monitors=%d/%d all_built_at=%d",
		r.Index, r.Hires, r.Quits,
		r.BuildsCompleted, r.BuildsCompleted+r.BuildsFailed,
		r.RebuildsCompleted, r.RebuildsCompleted+r.RebuildsFailed,
		r.MonitorsCompleted, r.MonitorsCompleted+r.MonitorsFailed,
		r.AllBuiltAt)
}

// RunReplication runs replication idx of sc to its horizon. The result depends
// only on (sc, idx), so any replication can be reproduced on its own. st may
// be nil.
func RunReplication(sc scenario.Scenario, idx int, st *trace.SimulationTrace) *ReplicationResult {
	key := sim.ReplicationKey(sc.Seed, idx)
	rng := sim.NewPartitionedRNG(key)

	s := sim.NewSimulator(sc.Horizon)
	pool := sim.NewPool("modelers", sc.Staffing.TargetHeadcount)
	ctrl := staffing.NewController(sc.StaffingConfig(), pool, rng.ForSubsystem(sim.SubsystemStaffing), st)
	backlog := deliverable.NewBacklog(sc.BacklogNames(), sc.DeliverableConfig(), pool, rng.ForSubsystem(sim.SubsystemLifecycle), st)

	res := &ReplicationResult{
		Index:     idx,
		Seed:      int64(key),
		Available: make([]int, 0, sc.Horizon),
	}
	s.Observe(ctrl.Record)
	s.Observe(func(int64) { res.Available = append(res.Available, pool.Available()) })

	// Staffing is spawned first so its setup vacancies take slots before any build.
	s.Spawn(ctrl)
	backlog.Start(s)
	s.Run()

	tally := backlog.Tally()
	res.Hires = ctrl.Hires()
	res.Quits = ctrl.Quits()
	res.BuildsCompleted = tally.BuildsCompleted
	res.BuildsFailed = tally.BuildsFailed
	res.RebuildsCompleted = tally.RebuildsCompleted
	res.RebuildsFailed = tally.RebuildsFailed
	res.MonitorsCompleted = tally.MonitorsCompleted
	res.MonitorsFailed = tally.MonitorsFailed
	res.AllBuiltAt = backlog.AllBuiltAt()
	res.FailedDeliverables = backlog.Count(deliverable.StatusFailed)
	res.PeakInUse = pool.Peak()
	res.Headcount = ctrl.HeadcountSeries()
	for _, task := range s.Tasks() {
		if task.Status == sim.TaskAbandoned {
			res.AbandonedTasks++
		}
	}
	return res
}
