package sim

// funcTask adapts a closure to the Task interface for kernel tests.
type funcTask struct {
	name string
	step func(s *Simulator, w Wake) Await
}

func (f *funcTask) Name() string                      { return f.name }
func (f *funcTask) Resume(s *Simulator, w Wake) Await { return f.step(s, w) }

// holderTask acquires one slot at its first resume, holds it for hold ticks and
// releases it.
func holderTask(pool *Pool, priority int, hold int64) *funcTask {
	var grant *Request
	return &funcTask{
		name: "holder",
		step: func(s *Simulator, w Wake) Await {
			switch w.Reason {
			case WakeStart:
				return Acquire(pool, priority, "holder")
			case WakeGranted:
				grant = w.Grant
				return Sleep(hold)
			default:
				s.Release(pool, grant)
				return Exit()
			}
		},
	}
}

// raceOutcome records how an AcquireWithin race resolved.
type raceOutcome struct {
	reason WakeReason
	at     int64
}

// racerTask races one AcquireWithin and releases the slot immediately if it wins.
func racerTask(pool *Pool, priority int, within int64, out *raceOutcome) *funcTask {
	return &funcTask{
		name: "racer",
		step: func(s *Simulator, w Wake) Await {
			if w.Reason == WakeStart {
				return AcquireWithin(pool, priority, "racer", within)
			}
			out.reason = w.Reason
			out.at = s.Now()
			if w.Reason == WakeGranted {
				s.Release(pool, w.Grant)
			}
			return Exit()
		},
	}
}
