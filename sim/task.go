package sim

import "fmt"

// TaskID identifies a task within one Simulator. Zero means "no task".
type TaskID uint64

// TaskStatus is the scheduler's view of a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"   // spawned, first resume not yet run
	TaskSuspended TaskStatus = "suspended" // parked on a timer or a pool request
	TaskDone      TaskStatus = "done"      // returned Exit()
	TaskAbandoned TaskStatus = "abandoned" // still suspended when the horizon was reached
)

// Task is a cooperative process driven by the Simulator.
//
// Resume runs the task from its previous suspension point to the next one and
// returns what it is waiting for. It is only ever called from the Simulator's
// event loop, one task at a time, so tasks may mutate shared simulation state
// (pools, counters) without locking.
type Task interface {
	Name() string
	Resume(s *Simulator, w Wake) Await
}

// WakeReason says why a task was resumed.
type WakeReason int

const (
	WakeStart    WakeReason = iota // first resume after Spawn
	WakeTimer                      // Sleep / SleepUntil elapsed
	WakeGranted                    // Acquire / AcquireWithin obtained a slot
	WakeTimedOut                   // AcquireWithin deadline passed first
)

func (r WakeReason) String() string {
	switch r {
	case WakeStart:
		return "start"
	case WakeTimer:
		return "timer"
	case WakeGranted:
		return "granted"
	case WakeTimedOut:
		return "timed-out"
	}
	return fmt.Sprintf("WakeReason(%d)", int(r))
}

// Wake is passed to Task.Resume. Grant is set only for WakeGranted.
type Wake struct {
	Reason WakeReason
	Grant  *Request
}

type awaitKind int

const (
	awaitExit awaitKind = iota
	awaitSleep
	awaitSleepUntil
	awaitAcquire
	awaitAcquireWithin
)

// Await is a suspension point returned from Task.Resume.
type Await struct {
	kind     awaitKind
	ticks    int64
	pool     *Pool
	priority int
	label    string
}

// Exit ends the task.
func Exit() Await { return Await{kind: awaitExit} }

// Sleep suspends the task for d ticks. Non-positive d resumes within the current tick.
func Sleep(d int64) Await { return Await{kind: awaitSleep, ticks: d} }

// SleepUntil suspends the task until tick t, or resumes within the current tick if t has passed.
func SleepUntil(t int64) Await { return Await{kind: awaitSleepUntil, ticks: t} }

// Acquire suspends the task until pool grants it a slot at the given priority.
func Acquire(pool *Pool, priority int, label string) Await {
	return Await{kind: awaitAcquire, pool: pool, priority: priority, label: label}
}

// AcquireWithin races a pool request against a timer of within ticks.
// The task is woken exactly once: WakeGranted if the slot arrives at or before
// the deadline tick, WakeTimedOut otherwise. The losing request is withdrawn
// from the pool queue so it can never be granted late.
func AcquireWithin(pool *Pool, priority int, label string, within int64) Await {
	return Await{kind: awaitAcquireWithin, pool: pool, priority: priority, label: label, ticks: within}
}

// TaskInfo is an inspectable snapshot of a task record.
type TaskInfo struct {
	ID         TaskID
	Name       string
	Parent     TaskID
	Status     TaskStatus
	SpawnedAt  int64
	FinishedAt int64 // -1 while not done
}

// taskRecord is the Simulator-owned state of a task.
type taskRecord struct {
	id         TaskID
	name       string
	parent     TaskID
	task       Task
	status     TaskStatus
	spawnedAt  int64
	finishedAt int64
	timeout    *TimeoutEvent // pending deadline of an AcquireWithin, if any
}

func (r *taskRecord) info() TaskInfo {
	return TaskInfo{
		ID:         r.id,
		Name:       r.name,
		Parent:     r.parent,
		Status:     r.status,
		SpawnedAt:  r.spawnedAt,
		FinishedAt: r.finishedAt,
	}
}
