package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalPhases  int
	Completed    map[string]int // phase kind → completed count
	TimedOut     map[string]int // phase kind → timed-out count
	MeanWait     float64        // mean ticks from request to grant, completed phases only
	MaxWait      int64
	Hires        int
	Quits        int
	SetupFires   int
	MinHeadcount int
	MaxHeadcount int
	Deliverables int // distinct deliverables with at least one phase
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		Completed: make(map[string]int),
		TimedOut:  make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalPhases = len(st.Phases)
	seen := make(map[string]bool)
	totalWait := int64(0)
	for _, p := range st.Phases {
		seen[p.Deliverable] = true
		switch p.Outcome {
		case OutcomeCompleted:
			summary.Completed[p.Kind]++
			totalWait += p.Waited()
			if p.Waited() > summary.MaxWait {
				summary.MaxWait = p.Waited()
			}
		case OutcomeTimedOut:
			summary.TimedOut[p.Kind]++
		}
	}
	summary.Deliverables = len(seen)
	if n := summary.completedTotal(); n > 0 {
		summary.MeanWait = float64(totalWait) / float64(n)
	}

	// Setup fires all happen before tick 0 is observed, so only the headcount
	// after the last of them counts toward the range.
	ranged := false
	observe := func(headcount int) {
		if !ranged || headcount < summary.MinHeadcount {
			summary.MinHeadcount = headcount
		}
		if !ranged || headcount > summary.MaxHeadcount {
			summary.MaxHeadcount = headcount
		}
		ranged = true
	}
	afterSetup := -1
	for _, s := range st.Staffing {
		switch s.Action {
		case ActionHire:
			summary.Hires++
		case ActionQuit:
			summary.Quits++
		case ActionSetupFire:
			summary.SetupFires++
			afterSetup = s.Headcount
			continue
		}
		observe(s.Headcount)
	}
	if afterSetup >= 0 {
		observe(afterSetup)
	}

	return summary
}

func (s *TraceSummary) completedTotal() int {
	n := 0
	for _, c := range s.Completed {
		n += c
	}
	return n
}
