package deliverable

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/workforce-sim/sim"
	"github.com/inference-sim/workforce-sim/sim/trace"
)

type stage int

const (
	stageStart   stage = iota // not yet resumed
	stageWait                 // sleeping until the phase window opens
	stageAcquire              // racing the pool request against the deadline
	stageHold                 // holding a slot for the phase duration
)

// lifecycle is the task that runs a plan of phases for one deliverable. The
// initial build and every maintenance cycle is its own task; the task that
// completes a Build or Rebuild spawns the next cycle and exits.
type lifecycle struct {
	b     *Backlog
	d     *Deliverable
	name  string
	cycle int // 0 for the initial build
	plan  []Phase
	next  int
	stage stage

	grant       *sim.Request
	requestedAt int64
	resolvedAt  int64
	held        int
}

func newLifecycle(b *Backlog, d *Deliverable, plan []Phase, cycle int) *lifecycle {
	name := d.Name + "/build"
	if cycle > 0 {
		name = fmt.Sprintf("%s/cycle-%d", d.Name, cycle)
	}
	return &lifecycle{b: b, d: d, name: name, cycle: cycle, plan: plan}
}

// Name implements sim.Task.
func (l *lifecycle) Name() string { return l.name }

// Resume implements sim.Task.
func (l *lifecycle) Resume(s *sim.Simulator, w sim.Wake) sim.Await {
	switch l.stage {
	case stageStart:
		return l.begin(s)
	case stageWait:
		return l.acquire(s)
	case stageAcquire:
		if w.Reason == sim.WakeTimedOut {
			return l.timedOut(s)
		}
		l.grant = w.Grant
		l.resolvedAt = s.Now()
		l.held = l.b.cfg.duration(l.current().Kind).Draw(l.b.rng)
		l.stage = stageHold
		return sim.Sleep(int64(l.held))
	case stageHold:
		return l.completed(s)
	}
	panic(fmt.Sprintf("%s: unknown stage %d", l.name, l.stage))
}

func (l *lifecycle) current() Phase { return l.plan[l.next] }

// begin enters the next planned phase.
func (l *lifecycle) begin(s *sim.Simulator) sim.Await {
	p := l.current()
	l.d.Phase = p
	if s.Now() < p.StartNotBefore {
		l.stage = stageWait
		return sim.SleepUntil(p.StartNotBefore)
	}
	return l.acquire(s)
}

// acquire races a slot request against the phase deadline. A phase reached
// after its must-start-by tick times out without requesting a slot.
func (l *lifecycle) acquire(s *sim.Simulator) sim.Await {
	p := l.current()
	l.requestedAt = s.Now()
	if s.Now() > p.MustStartBy {
		return l.timedOut(s)
	}
	l.stage = stageAcquire
	return sim.AcquireWithin(l.b.pool, p.Kind.Priority(), l.d.Name+"/"+p.Label(), p.MustStartBy-s.Now())
}

func (l *lifecycle) timedOut(s *sim.Simulator) sim.Await {
	p := l.current()
	l.resolvedAt = s.Now()
	l.held = 0
	l.b.tally.add(p.Kind, false)
	l.record(trace.OutcomeTimedOut)
	logrus.Debugf("[tick %07d] %s: %s missed its deadline", s.Now(), l.d.Name, p)

	if p.Kind.Terminal() {
		l.d.Status = StatusFailed
		l.d.FailedAt = s.Now()
		if p.Kind == KindBuild {
			l.b.initialResolved(s.Now())
		}
		return sim.Exit()
	}
	return l.advance(s)
}

func (l *lifecycle) completed(s *sim.Simulator) sim.Await {
	p := l.current()
	s.Release(l.b.pool, l.grant)
	l.grant = nil
	l.b.tally.add(p.Kind, true)
	l.record(trace.OutcomeCompleted)
	logrus.Debugf("[tick %07d] %s: %s completed after %d ticks", s.Now(), l.d.Name, p.Label(), l.held)

	if p.Kind == KindMonitor {
		return l.advance(s)
	}

	l.d.LastCompletedAt = s.Now()
	if p.Kind == KindBuild {
		l.d.BuiltAt = s.Now()
		l.d.Status = StatusActive
		l.b.initialResolved(s.Now())
	} else {
		l.d.Cycle++
	}
	quarters := l.b.cfg.RebuildQuarters.Draw(l.b.rng)
	plan := PlanCycle(s.Now(), quarters)
	s.Spawn(newLifecycle(l.b, l.d, plan, l.d.Cycle+1))
	return sim.Exit()
}

// advance moves to the next planned phase after a Monitor.
func (l *lifecycle) advance(s *sim.Simulator) sim.Await {
	l.next++
	if l.next >= len(l.plan) {
		panic(fmt.Sprintf("%s: plan exhausted without a rebuild", l.name))
	}
	return l.begin(s)
}

func (l *lifecycle) record(outcome trace.PhaseOutcome) {
	p := l.current()
	l.b.trace.RecordPhase(trace.PhaseRecord{
		Deliverable:    l.d.Name,
		Kind:           string(p.Kind),
		Index:          p.Index,
		Cycle:          l.cycle,
		StartNotBefore: p.StartNotBefore,
		MustStartBy:    p.MustStartBy,
		RequestedAt:    l.requestedAt,
		ResolvedAt:     l.resolvedAt,
		Outcome:        outcome,
		Duration:       l.held,
	})
}
