package deliverable

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/workforce-sim/sim"
	"github.com/inference-sim/workforce-sim/sim/stochastic"
	"github.com/inference-sim/workforce-sim/sim/trace"
)

// Window is an inclusive start/deadline pair in ticks.
type Window struct {
	Start    int64 `yaml:"start" toml:"start"`
	Deadline int64 `yaml:"deadline" toml:"deadline"`
}

// Config holds the phase durations and windows shared by every deliverable.
type Config struct {
	BuildWindow     Window
	Build           stochastic.Range
	Monitor         stochastic.Range
	Rebuild         stochastic.Range
	RebuildQuarters stochastic.Range // quarters from a Build/Rebuild to the next Rebuild
}

// DefaultConfig returns the original plan: builds may start anywhere in
// [0, horizon], take 24-48 ticks, monitors take 3-6 ticks, and a rebuild
// falls 6-12 quarters after each completed build.
func DefaultConfig(horizon int64) Config {
	return Config{
		BuildWindow:     Window{Start: 0, Deadline: horizon},
		Build:           stochastic.Range{Min: 24, Max: 48},
		Monitor:         stochastic.Range{Min: 3, Max: 6},
		Rebuild:         stochastic.Range{Min: 24, Max: 48},
		RebuildQuarters: stochastic.Range{Min: 6, Max: 12},
	}
}

// Validate checks ranges and the build window.
func (c Config) Validate() error {
	if c.BuildWindow.Start < 0 || c.BuildWindow.Deadline < c.BuildWindow.Start {
		return fmt.Errorf("build window [%d, %d] is invalid", c.BuildWindow.Start, c.BuildWindow.Deadline)
	}
	for _, kind := range []Kind{KindBuild, KindMonitor, KindRebuild} {
		r := c.duration(kind)
		if r.Min < 0 || r.Max < r.Min {
			return fmt.Errorf("%s duration [%d, %d] is invalid", kind, r.Min, r.Max)
		}
	}
	// Monitor k is planned k quarters ahead, so the rebuild cannot come first.
	if c.RebuildQuarters.Min < MonitorsPerCycle || c.RebuildQuarters.Max < c.RebuildQuarters.Min {
		return fmt.Errorf("rebuild quarters [%d, %d] must satisfy %d <= min <= max",
			c.RebuildQuarters.Min, c.RebuildQuarters.Max, MonitorsPerCycle)
	}
	return nil
}

func (c Config) duration(kind Kind) stochastic.Range {
	switch kind {
	case KindBuild:
		return c.Build
	case KindMonitor:
		return c.Monitor
	default:
		return c.Rebuild
	}
}

// Backlog owns every deliverable of one replication and the tally of their
// phase outcomes.
type Backlog struct {
	cfg   Config
	pool  *sim.Pool
	rng   stochastic.Uniform
	trace *trace.SimulationTrace

	items      []*Deliverable
	tally      Tally
	resolved   int
	allBuiltAt int64
}

// NewBacklog creates one pending deliverable per name. st may be nil.
func NewBacklog(names []string, cfg Config, pool *sim.Pool, rng stochastic.Uniform, st *trace.SimulationTrace) *Backlog {
	b := &Backlog{cfg: cfg, pool: pool, rng: rng, trace: st, allBuiltAt: -1}
	for _, name := range names {
		b.items = append(b.items, newDeliverable(name))
	}
	return b
}

// Start spawns the initial build of every deliverable, in backlog order.
func (b *Backlog) Start(s *sim.Simulator) {
	for _, d := range b.items {
		build := Phase{Kind: KindBuild, StartNotBefore: b.cfg.BuildWindow.Start, MustStartBy: b.cfg.BuildWindow.Deadline}
		s.Spawn(newLifecycle(b, d, []Phase{build}, 0))
	}
	logrus.Debugf("[tick %07d] backlog: %d builds started", s.Now(), len(b.items))
}

// initialResolved is called once per deliverable when its first build
// completes or fails.
func (b *Backlog) initialResolved(now int64) {
	b.resolved++
	if b.resolved == len(b.items) && b.tally.BuildsCompleted > 0 {
		b.allBuiltAt = now
		logrus.Debugf("[tick %07d] backlog: every surviving deliverable is built", now)
	}
}

// Deliverables returns the backlog in order.
func (b *Backlog) Deliverables() []*Deliverable { return b.items }

// Tally returns the phase outcome counts so far.
func (b *Backlog) Tally() Tally { return b.tally }

// AllBuiltAt is the tick at which the last initial build resolved with at
// least one success, or -1 if some build is still unresolved or none succeeded.
func (b *Backlog) AllBuiltAt() int64 { return b.allBuiltAt }

// Count returns how many deliverables are in status st.
func (b *Backlog) Count(st Status) int {
	n := 0
	for _, d := range b.items {
		if d.Status == st {
			n++
		}
	}
	return n
}
