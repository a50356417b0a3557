package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/workforce-sim/sim/montecarlo"
	"github.com/inference-sim/workforce-sim/sim/scenario"
	"github.com/inference-sim/workforce-sim/sim/trace"
)

var (
	replayIndex int    // Replication to replay
	traceLevel  string // Trace verbosity for replay
)

// replayCmd re-runs a single replication with decision tracing
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay one replication and print its decision trace",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		sc, err := loadScenario(cmd)
		if err != nil {
			logrus.Fatalf("Unable to load scenario: %v", err)
		}
		if err := replay(sc, replayIndex, traceLevel, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Replay failed: %v", err)
		}
	},
}

// replay runs replication idx of sc and writes its trace and result to out.
// The replication is identical to the one the harness runs at the same index.
func replay(sc scenario.Scenario, idx int, level string, out io.Writer) error {
	if idx < 0 || idx >= sc.Replications {
		return fmt.Errorf("replication %d out of range [0, %d)", idx, sc.Replications)
	}
	if !trace.IsValidTraceLevel(level) {
		return fmt.Errorf("unknown trace level %q", level)
	}

	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevel(level)})
	res := montecarlo.RunReplication(sc, idx, st)

	if st != nil {
		printTrace(out, st, res.Headcount)
	}
	fmt.Fprintln(out, res.String())
	return nil
}

// printTrace writes the trace records and summary. The headcount range comes
// from the per-tick series so ticks without staffing events are included.
func printTrace(w io.Writer, st *trace.SimulationTrace, headcount []int) {
	fmt.Fprintln(w, "=== Staffing ===")
	for _, s := range st.Staffing {
		fmt.Fprintf(w, "[tick %05d] %-10s headcount=%d pending=%d\n", s.Clock, s.Action, s.Headcount, s.PendingRehire)
	}

	if len(st.Phases) > 0 {
		fmt.Fprintln(w, "=== Phases ===")
	}
	for _, p := range st.Phases {
		label := p.Kind
		if p.Index > 0 {
			label = fmt.Sprintf("%s-%d", p.Kind, p.Index)
		}
		fmt.Fprintf(w, "[tick %05d] %-12s %-10s cycle=%d window=[%d,%d] waited=%d %s",
			p.ResolvedAt, p.Deliverable, label, p.Cycle, p.StartNotBefore, p.MustStartBy, p.Waited(), p.Outcome)
		if p.Outcome == trace.OutcomeCompleted {
			fmt.Fprintf(w, " held=%d", p.Duration)
		}
		fmt.Fprintln(w)
	}

	summary := trace.Summarize(st)
	fmt.Fprintln(w, "=== Trace Summary ===")
	fmt.Fprintf(w, "Hires / Quits / Setup : %d / %d / %d\n", summary.Hires, summary.Quits, summary.SetupFires)
	if lo, hi, ok := seriesRange(headcount); ok {
		fmt.Fprintf(w, "Headcount Range       : %d..%d\n", lo, hi)
	}
	if summary.TotalPhases > 0 {
		fmt.Fprintf(w, "Phases                : %d over %d deliverables\n", summary.TotalPhases, summary.Deliverables)
		kinds := make([]string, 0, len(summary.Completed)+len(summary.TimedOut))
		seen := make(map[string]bool)
		for k := range summary.Completed {
			if !seen[k] {
				seen[k] = true
				kinds = append(kinds, k)
			}
		}
		for k := range summary.TimedOut {
			if !seen[k] {
				seen[k] = true
				kinds = append(kinds, k)
			}
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(w, "  %-8s completed=%d timed-out=%d\n", k, summary.Completed[k], summary.TimedOut[k])
		}
		fmt.Fprintf(w, "Mean / Max Wait       : %.2f / %d ticks\n", summary.MeanWait, summary.MaxWait)
	}
}

func seriesRange(series []int) (lo, hi int, ok bool) {
	if len(series) == 0 {
		return 0, 0, false
	}
	lo, hi = series[0], series[0]
	for _, v := range series[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi, true
}
