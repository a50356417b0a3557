package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSimulator_AcquireWithin_RaceResolution covers the deadline race: the slot
// frees at tick W and the racer's deadline is set relative to W.
func TestSimulator_AcquireWithin_RaceResolution(t *testing.T) {
	const w = int64(10)
	tests := []struct {
		name       string
		within     int64
		wantReason WakeReason
		wantAt     int64
	}{
		{"deadline before release: timeout wins", w - 1, WakeTimedOut, w - 1},
		{"deadline after release: request wins", w + 1, WakeGranted, w},
		{"deadline on release tick: request wins", w, WakeGranted, w},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// GIVEN a one-slot pool held until tick W
			s := NewSimulator(100)
			pool := NewPool("modelers", 1)
			var out raceOutcome
			s.Spawn(holderTask(pool, 0, w))
			racerID := s.Spawn(racerTask(pool, 1, tc.within, &out))

			// WHEN the race resolves
			s.Run()

			// THEN the winner matches the tie rule and nothing is left queued
			assert.Equal(t, tc.wantReason, out.reason)
			assert.Equal(t, tc.wantAt, out.at)
			assert.Equal(t, 0, pool.InUse())
			assert.Equal(t, 0, pool.Waiting())
			info, ok := s.Task(racerID)
			require.True(t, ok)
			assert.Equal(t, TaskDone, info.Status)
		})
	}
}

func TestSimulator_AcquireWithin_LosingRequestIsNeverGrantedLate(t *testing.T) {
	// GIVEN a racer that times out while a lower-urgency waiter queues behind it
	s := NewSimulator(100)
	pool := NewPool("modelers", 1)
	var racer raceOutcome
	var lateGrant int64 = -1
	s.Spawn(holderTask(pool, 0, 10))
	s.Spawn(racerTask(pool, 1, 3, &racer))
	s.Spawn(&funcTask{name: "waiter", step: func(s *Simulator, w Wake) Await {
		if w.Reason == WakeStart {
			return Acquire(pool, 5, "waiter")
		}
		lateGrant = s.Now()
		s.Release(pool, w.Grant)
		return Exit()
	}})

	s.Run()

	// THEN the withdrawn racer did not consume the slot freed at tick 10
	assert.Equal(t, WakeTimedOut, racer.reason)
	assert.Equal(t, int64(10), lateGrant)
	assert.Equal(t, 0, pool.InUse())
}

func TestSimulator_ImmediateGrant_ResumesWithinTick(t *testing.T) {
	s := NewSimulator(10)
	pool := NewPool("modelers", 1)
	var out raceOutcome
	s.Spawn(racerTask(pool, 1, 0, &out))
	s.Run()

	assert.Equal(t, WakeGranted, out.reason)
	assert.Equal(t, int64(0), out.at)
}

func TestSimulator_SameTickOrdering_FollowsSpawnOrder(t *testing.T) {
	s := NewSimulator(5)
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		s.Spawn(&funcTask{name: name, step: func(s *Simulator, w Wake) Await {
			order = append(order, name)
			return Exit()
		}})
	}
	s.Run()
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestSimulator_Observers_OncePerTickAfterEvents(t *testing.T) {
	// GIVEN a task that bumps a counter at ticks 0 and 2
	s := NewSimulator(5)
	counter := 0
	s.Spawn(&funcTask{name: "bumper", step: func(s *Simulator, w Wake) Await {
		counter++
		if s.Now() < 2 {
			return SleepUntil(2)
		}
		return Exit()
	}})
	var ticks []int64
	var seen []int
	s.Observe(func(tick int64) {
		ticks = append(ticks, tick)
		seen = append(seen, counter)
	})

	// WHEN the simulation runs to its horizon
	s.Run()

	// THEN every tick including idle ones is observed once, after its events
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, ticks)
	assert.Equal(t, []int{1, 1, 2, 2, 2}, seen)
}

func TestSimulator_Horizon_AbandonsSuspendedTasks(t *testing.T) {
	// GIVEN a task sleeping exactly to the horizon
	s := NewSimulator(5)
	resumed := 0
	id := s.Spawn(&funcTask{name: "sleeper", step: func(s *Simulator, w Wake) Await {
		resumed++
		return Sleep(5)
	}})

	s.Run()

	// THEN the wake at the horizon never executes
	assert.Equal(t, 1, resumed)
	info, _ := s.Task(id)
	assert.Equal(t, TaskAbandoned, info.Status)
	assert.Equal(t, int64(-1), info.FinishedAt)
	assert.Equal(t, int64(5), s.Now())
}

func TestSimulator_Horizon_HeldSlotsAreNotReleased(t *testing.T) {
	s := NewSimulator(5)
	pool := NewPool("modelers", 1)
	s.Spawn(holderTask(pool, 0, 100))
	s.Run()
	assert.Equal(t, 1, pool.InUse())
}

func TestSimulator_Spawn_RecordsParent(t *testing.T) {
	// GIVEN a parent that spawns a child at tick 3
	s := NewSimulator(10)
	var childID TaskID
	parentID := s.Spawn(&funcTask{name: "parent", step: func(s *Simulator, w Wake) Await {
		if w.Reason == WakeStart {
			return Sleep(3)
		}
		childID = s.Spawn(&funcTask{name: "child", step: func(*Simulator, Wake) Await { return Exit() }})
		return Exit()
	}})

	s.Run()

	// THEN the registry lists both with the parent link and spawn tick
	tasks := s.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, TaskID(0), tasks[0].Parent)
	assert.Equal(t, parentID, tasks[1].Parent)
	assert.Equal(t, childID, tasks[1].ID)
	assert.Equal(t, int64(3), tasks[1].SpawnedAt)
	assert.Equal(t, int64(3), tasks[1].FinishedAt)
	assert.Equal(t, TaskDone, tasks[1].Status)

	_, ok := s.Task(99)
	assert.False(t, ok)
}

func TestSimulator_DetachedRequests(t *testing.T) {
	// GIVEN a detached request holding the only slot
	s := NewSimulator(20)
	pool := NewPool("modelers", 1)
	withheld := NewRequest("fire", PriorityFire, 0)
	require.True(t, s.Request(pool, withheld))

	var out raceOutcome
	s.Spawn(racerTask(pool, 1, 50, &out))
	s.Spawn(&funcTask{name: "rehire", step: func(s *Simulator, w Wake) Await {
		if w.Reason == WakeStart {
			return Sleep(6)
		}
		s.Release(pool, withheld)
		return Exit()
	}})

	s.Run()

	// THEN releasing it wakes the waiting task on the same tick
	assert.Equal(t, WakeGranted, out.reason)
	assert.Equal(t, int64(6), out.at)

	queued := NewRequest("fire", PriorityFire, 0)
	pool.Enqueue(NewRequest("x", 1, 0), 0)
	assert.False(t, s.Request(pool, queued))
	assert.True(t, s.Withdraw(pool, queued))
}

func TestSimulator_RunTwice_Panics(t *testing.T) {
	s := NewSimulator(1)
	s.Run()
	assert.Panics(t, func() { s.Run() })
}

func TestWakeReason_String(t *testing.T) {
	assert.Equal(t, "timed-out", WakeTimedOut.String())
	assert.Equal(t, "WakeReason(9)", WakeReason(9).String())
}
