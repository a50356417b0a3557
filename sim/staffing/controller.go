// Package staffing implements the hire/quit controller that keeps the worker
// pool's usable capacity in line with the team's actual headcount.
//
// The pool is sized at the target headcount. A vacancy is modelled as a fire
// request at the most urgent priority: once granted it withholds one slot from
// deliverable work until a later hire releases it. Fire requests queue like any
// other request, so a quit never interrupts a phase in progress.
package staffing

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/workforce-sim/sim"
	"github.com/inference-sim/workforce-sim/sim/stochastic"
	"github.com/inference-sim/workforce-sim/sim/trace"
)

// Config describes the team.
type Config struct {
	Target int                // pool capacity and full headcount
	Start  int                // headcount at tick 0
	Hire   stochastic.Trigger // time to find a new hire
	Quit   stochastic.Trigger // time until a modeler quits
}

// Validate checks the headcount bounds and both triggers.
func (c Config) Validate() error {
	if c.Target < 0 {
		return fmt.Errorf("target headcount must be non-negative, got %d", c.Target)
	}
	if c.Start < 0 || c.Start > c.Target {
		return fmt.Errorf("start headcount must be in [0, %d], got %d", c.Target, c.Start)
	}
	if err := c.Hire.Validate(); err != nil {
		return err
	}
	return c.Quit.Validate()
}

// Controller is the staffing task. It runs once per tick from tick 0.
type Controller struct {
	cfg   Config
	pool  *sim.Pool
	rng   stochastic.Source
	trace *trace.SimulationTrace

	withheld []*sim.Request // granted fire requests, oldest first
	queued   []*sim.Request // fire requests still waiting for a slot, oldest first

	hires     int
	quits     int
	headcount []int
}

// NewController creates a controller over pool, which must have capacity cfg.Target.
// st may be nil.
func NewController(cfg Config, pool *sim.Pool, rng stochastic.Source, st *trace.SimulationTrace) *Controller {
	if pool.Capacity() != cfg.Target {
		panic(fmt.Sprintf("staffing: pool capacity %d does not match target headcount %d", pool.Capacity(), cfg.Target))
	}
	return &Controller{cfg: cfg, pool: pool, rng: rng, trace: st}
}

// Name implements sim.Task.
func (c *Controller) Name() string { return "staffing" }

// Resume implements sim.Task.
func (c *Controller) Resume(s *sim.Simulator, w sim.Wake) sim.Await {
	if w.Reason == sim.WakeStart {
		c.setup(s)
	}
	c.step(s)
	return sim.Sleep(1)
}

// Record is a sim.TickObserver that appends the tick's headcount.
func (c *Controller) Record(tick int64) {
	c.headcount = append(c.headcount, c.HeadCount())
}

// setup withholds the gap between the target and starting headcount.
func (c *Controller) setup(s *sim.Simulator) {
	for i := c.cfg.Start; i < c.cfg.Target; i++ {
		c.fire(s)
		c.record(s, trace.ActionSetupFire)
	}
	logrus.Debugf("[tick %07d] staffing: start headcount %d of %d", s.Now(), c.HeadCount(), c.cfg.Target)
}

// step runs the tick's hiring check, then its quitting check.
func (c *Controller) step(s *sim.Simulator) {
	c.settle()

	if c.PendingRehire() > 0 && c.cfg.Hire.Fires(c.rng) {
		c.hire(s)
		c.hires++
		c.record(s, trace.ActionHire)
		logrus.Debugf("[tick %07d] staffing: hired, headcount %d", s.Now(), c.HeadCount())
	}

	if c.HeadCount() > 0 && c.cfg.Quit.Fires(c.rng) {
		c.fire(s)
		c.quits++
		c.record(s, trace.ActionQuit)
		logrus.Debugf("[tick %07d] staffing: quit, headcount %d", s.Now(), c.HeadCount())
	}
}

// settle moves fire requests the pool granted since the last tick to withheld.
func (c *Controller) settle() {
	kept := c.queued[:0]
	for _, r := range c.queued {
		if r.State == sim.StateGranted {
			c.withheld = append(c.withheld, r)
		} else {
			kept = append(kept, r)
		}
	}
	c.queued = kept
}

func (c *Controller) fire(s *sim.Simulator) {
	req := sim.NewRequest("staffing/fire", sim.PriorityFire, 0)
	if s.Request(c.pool, req) {
		c.withheld = append(c.withheld, req)
	} else {
		c.queued = append(c.queued, req)
	}
}

// hire returns the oldest withheld slot to the pool, or cancels the newest
// vacancy that has not yet taken a slot.
func (c *Controller) hire(s *sim.Simulator) {
	if len(c.withheld) > 0 {
		req := c.withheld[0]
		c.withheld = c.withheld[1:]
		s.Release(c.pool, req)
		// The freed slot may go straight to a queued fire request.
		c.settle()
		return
	}
	last := len(c.queued) - 1
	if !s.Withdraw(c.pool, c.queued[last]) {
		panic(fmt.Sprintf("staffing: queued fire request %d was not waiting", c.queued[last].ID))
	}
	c.queued = c.queued[:last]
}

func (c *Controller) record(s *sim.Simulator, action trace.StaffingAction) {
	c.trace.RecordStaffing(trace.StaffingRecord{
		Clock:         s.Now(),
		Action:        action,
		PendingRehire: c.PendingRehire(),
		Headcount:     c.HeadCount(),
	})
}

// PendingRehire is the number of vacancies, withheld or still queued.
func (c *Controller) PendingRehire() int { return len(c.withheld) + len(c.queued) }

// HeadCount is the number of employed modelers.
func (c *Controller) HeadCount() int { return c.cfg.Target - c.PendingRehire() }

// Withheld is the number of slots currently held back from deliverable work.
func (c *Controller) Withheld() int { return len(c.withheld) }

// Hires returns the number of hires so far.
func (c *Controller) Hires() int { return c.hires }

// Quits returns the number of quits so far. Setup vacancies are not quits.
func (c *Controller) Quits() int { return c.quits }

// HeadcountSeries returns the per-tick headcount recorded by Record.
func (c *Controller) HeadcountSeries() []int { return c.headcount }
