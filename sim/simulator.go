// sim/simulator.go
package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// TickObserver is called once per tick, after every event of that tick ran.
type TickObserver func(tick int64)

// Simulator is the core object that holds simulation time, the event queue and
// the registry of tasks. It is a single-threaded cooperative scheduler: tasks
// only yield at the suspension points expressed by Await values, and within a
// tick they run in the order their wake events were created.
type Simulator struct {
	Clock   int64
	Horizon int64
	// EventQueue holds wake and timeout events ordered by (time, class, seq).
	EventQueue *EventHeap

	tasks     []*taskRecord
	current   *taskRecord // task being resumed, nil between events
	observers []TickObserver
	nextTick  int64  // first tick not yet reported to observers
	nextSeq   uint64 // per-simulator event counter for deterministic ordering
	ran       bool
}

// NewSimulator creates a simulator that executes ticks [0, horizon).
func NewSimulator(horizon int64) *Simulator {
	if horizon < 0 {
		panic(fmt.Sprintf("NewSimulator: horizon must be non-negative, got %d", horizon))
	}
	return &Simulator{
		Clock:      0,
		Horizon:    horizon,
		EventQueue: NewEventHeap(),
	}
}

// Now returns the current tick.
func (sim *Simulator) Now() int64 { return sim.Clock }

// Observe registers fn to be called once per tick.
func (sim *Simulator) Observe(fn TickObserver) {
	sim.observers = append(sim.observers, fn)
}

// Spawn registers a task and schedules its first resume at the current tick.
// When called from inside a running task, that task is recorded as the parent.
func (sim *Simulator) Spawn(t Task) TaskID {
	rec := &taskRecord{
		id:         TaskID(len(sim.tasks) + 1),
		name:       t.Name(),
		task:       t,
		status:     TaskPending,
		spawnedAt:  sim.Clock,
		finishedAt: -1,
	}
	if sim.current != nil {
		rec.parent = sim.current.id
	}
	sim.tasks = append(sim.tasks, rec)
	logrus.Debugf("[tick %07d] Spawned task %d (%s)", sim.Clock, rec.id, rec.name)
	sim.scheduleWake(rec, sim.Clock, Wake{Reason: WakeStart})
	return rec.id
}

// Tasks returns a snapshot of every task ever spawned, in spawn order.
func (sim *Simulator) Tasks() []TaskInfo {
	out := make([]TaskInfo, len(sim.tasks))
	for i, rec := range sim.tasks {
		out[i] = rec.info()
	}
	return out
}

// Task returns the snapshot of a single task.
func (sim *Simulator) Task(id TaskID) (TaskInfo, bool) {
	if id == 0 || int(id) > len(sim.tasks) {
		return TaskInfo{}, false
	}
	return sim.tasks[id-1].info(), true
}

// Request submits a detached pool request that is not tied to a suspended
// task. The caller tracks it and later calls Release or Withdraw. Returns true
// when the slot was granted immediately.
func (sim *Simulator) Request(pool *Pool, req *Request) bool {
	return pool.Enqueue(req, sim.Clock)
}

// Release returns a granted slot to pool and wakes whichever waiter receives it.
func (sim *Simulator) Release(pool *Pool, req *Request) {
	next := pool.Release(req, sim.Clock)
	if next != nil {
		sim.granted(next)
	}
}

// Withdraw removes a waiting request from pool. Returns false if it was not waiting.
func (sim *Simulator) Withdraw(pool *Pool, req *Request) bool {
	return pool.Withdraw(req)
}

// Run executes events until the horizon. Events at or beyond the horizon are
// never executed; tasks still suspended at that point are abandoned and keep
// whatever slots they hold.
func (sim *Simulator) Run() {
	if sim.ran {
		panic("Simulator.Run called twice")
	}
	sim.ran = true

	for sim.EventQueue.Len() > 0 {
		next := sim.EventQueue.Peek()
		if next.Timestamp() >= sim.Horizon {
			break
		}
		if next.Timestamp() < sim.Clock {
			panic(fmt.Sprintf("Clock went backwards: %d < %d", next.Timestamp(), sim.Clock))
		}
		sim.advanceTo(next.Timestamp())
		ev := sim.EventQueue.PopNext()
		ev.Execute(sim)
	}
	sim.advanceTo(sim.Horizon)

	abandoned := 0
	for _, rec := range sim.tasks {
		if rec.status != TaskDone {
			rec.status = TaskAbandoned
			abandoned++
		}
	}
	logrus.Debugf("[tick %07d] Simulation ended, %d tasks abandoned", sim.Clock, abandoned)
}

// advanceTo reports every tick before t to the observers and moves the clock to t.
func (sim *Simulator) advanceTo(t int64) {
	for sim.nextTick < t {
		sim.Clock = sim.nextTick
		for _, fn := range sim.observers {
			fn(sim.nextTick)
		}
		sim.nextTick++
	}
	sim.Clock = t
}

func (sim *Simulator) newSeq() uint64 {
	sim.nextSeq++
	return sim.nextSeq
}

func (sim *Simulator) scheduleWake(rec *taskRecord, at int64, w Wake) {
	sim.EventQueue.Schedule(&WakeEvent{
		baseEvent: baseEvent{time: at, class: ClassWake, seq: sim.newSeq()},
		task:      rec,
		wake:      w,
	})
}

// resume runs a task to its next suspension point and interprets the Await.
func (sim *Simulator) resume(rec *taskRecord, w Wake) {
	if rec.status == TaskDone {
		panic(fmt.Sprintf("task %d (%s) resumed after exit", rec.id, rec.name))
	}
	sim.current = rec
	await := rec.task.Resume(sim, w)
	sim.current = nil

	switch await.kind {
	case awaitExit:
		rec.status = TaskDone
		rec.finishedAt = sim.Clock
		logrus.Debugf("[tick %07d] Task %d (%s) exited", sim.Clock, rec.id, rec.name)

	case awaitSleep:
		rec.status = TaskSuspended
		sim.scheduleWake(rec, sim.Clock+max(await.ticks, 0), Wake{Reason: WakeTimer})

	case awaitSleepUntil:
		rec.status = TaskSuspended
		sim.scheduleWake(rec, max(await.ticks, sim.Clock), Wake{Reason: WakeTimer})

	case awaitAcquire, awaitAcquireWithin:
		rec.status = TaskSuspended
		req := NewRequest(await.label, await.priority, rec.id)
		if await.pool.Enqueue(req, sim.Clock) {
			sim.scheduleWake(rec, sim.Clock, Wake{Reason: WakeGranted, Grant: req})
			return
		}
		if await.kind == awaitAcquireWithin {
			ev := &TimeoutEvent{
				baseEvent: baseEvent{time: sim.Clock + max(await.ticks, 0), class: ClassTimeout, seq: sim.newSeq()},
				task:      rec,
				pool:      await.pool,
				request:   req,
			}
			rec.timeout = ev
			sim.EventQueue.Schedule(ev)
		}

	default:
		panic(fmt.Sprintf("task %d (%s) returned unknown await kind %d", rec.id, rec.name, await.kind))
	}
}

// granted wakes the owner of a request the pool just granted and cancels the
// losing half of an AcquireWithin race.
func (sim *Simulator) granted(req *Request) {
	if req.Owner == 0 {
		return
	}
	rec := sim.tasks[req.Owner-1]
	if rec.timeout != nil && rec.timeout.request == req {
		rec.timeout.cancelled = true
		rec.timeout = nil
	}
	sim.scheduleWake(rec, sim.Clock, Wake{Reason: WakeGranted, Grant: req})
}

// timeout resolves an AcquireWithin race in favour of the deadline.
func (sim *Simulator) timeout(ev *TimeoutEvent) {
	rec := ev.task
	rec.timeout = nil
	if !ev.pool.Withdraw(ev.request) {
		panic(fmt.Sprintf("task %d (%s): timed-out request %d was not waiting (state %s)", rec.id, rec.name, ev.request.ID, ev.request.State))
	}
	sim.resume(rec, Wake{Reason: WakeTimedOut})
}
