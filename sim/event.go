package sim

import "github.com/sirupsen/logrus"

// EventClass orders events that share a timestamp.
// Lower classes execute first, so every wake scheduled for a tick (including
// grants handed out during that tick) runs before any deadline of that tick.
type EventClass int

const (
	// ClassWake resumes a task: start, timer expiry or slot grant.
	ClassWake EventClass = iota
	// ClassTimeout fires the deadline half of an AcquireWithin race.
	ClassTimeout
)

// Event defines the interface for all simulation events.
// Each event must have a Timestamp (in ticks), a class and sequence number
// for deterministic tie-breaking, and an Execute method that advances
// simulation state when invoked.
type Event interface {
	Timestamp() int64
	Class() EventClass
	Seq() uint64
	Execute(*Simulator)
}

// baseEvent provides the ordering fields common to all events.
type baseEvent struct {
	time  int64
	class EventClass
	seq   uint64
}

func (e *baseEvent) Timestamp() int64  { return e.time }
func (e *baseEvent) Class() EventClass { return e.class }
func (e *baseEvent) Seq() uint64       { return e.seq }

// WakeEvent resumes a suspended task with the reason it was woken.
type WakeEvent struct {
	baseEvent
	task *taskRecord
	wake Wake
}

// Execute hands control back to the task until its next suspension point.
func (e *WakeEvent) Execute(sim *Simulator) {
	logrus.Tracef("<< Wake: task %d (%s) at %d ticks, reason=%s", e.task.id, e.task.name, e.time, e.wake.Reason)
	sim.resume(e.task, e.wake)
}

// TimeoutEvent is the deadline half of an AcquireWithin race.
// It is cancelled, not removed, when the request wins.
type TimeoutEvent struct {
	baseEvent
	task      *taskRecord
	pool      *Pool
	request   *Request
	cancelled bool
}

// Execute withdraws the still-queued request and wakes the task with WakeTimedOut.
func (e *TimeoutEvent) Execute(sim *Simulator) {
	if e.cancelled {
		return
	}
	logrus.Debugf("<< Timeout: task %d (%s) gave up on %s at %d ticks", e.task.id, e.task.name, e.request.Label, e.time)
	sim.timeout(e)
}
