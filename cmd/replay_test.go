package cmd

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/workforce-sim/sim/montecarlo"
	"github.com/inference-sim/workforce-sim/sim/scenario"
)

func replayScenario() scenario.Scenario {
	sc := scenario.Default()
	sc.Horizon = 300
	sc.Replications = 10
	sc.Backlog.Count = 4
	return sc
}

func TestReplay_PhasesTrace(t *testing.T) {
	// GIVEN a small scenario
	sc := replayScenario()

	// WHEN replication 2 is replayed with phase tracing
	var out bytes.Buffer
	require.NoError(t, replay(sc, 2, "phases", &out))

	// THEN staffing, phases and the summary are printed
	text := out.String()
	assert.Contains(t, text, "=== Staffing ===")
	assert.Contains(t, text, "setup-fire")
	assert.Contains(t, text, "=== Phases ===")
	assert.Contains(t, text, "model-01")
	assert.Contains(t, text, "=== Trace Summary ===")
}

func TestReplay_MatchesHarnessReplication(t *testing.T) {
	// GIVEN the harness result for replication 5
	sc := replayScenario()
	want := montecarlo.RunReplication(sc, 5, nil).String()

	// WHEN the same replication is replayed with tracing
	var out bytes.Buffer
	require.NoError(t, replay(sc, 5, "phases", &out))

	// THEN tracing does not perturb the outcome
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, want, lines[len(lines)-1])
}

func TestReplay_StaffingOnly(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, replay(replayScenario(), 0, "staffing", &out))

	assert.Contains(t, out.String(), "=== Staffing ===")
	assert.NotContains(t, out.String(), "=== Phases ===")
}

func TestReplay_NoTrace(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, replay(replayScenario(), 0, "none", &out))

	assert.NotContains(t, out.String(), "=== Staffing ===")
	assert.True(t, strings.HasPrefix(out.String(), "Replication 0:"))
}

func TestReplay_RejectsBadInput(t *testing.T) {
	sc := replayScenario()
	tests := []struct {
		name  string
		idx   int
		level string
		want  string
	}{
		{"negative index", -1, "phases", "out of range"},
		{"index past end", sc.Replications, "phases", "out of range"},
		{"unknown level", 0, "verbose", "unknown trace level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			err := replay(sc, tc.idx, tc.level, &out)
			assert.ErrorContains(t, err, tc.want)
			assert.Empty(t, out.String())
		})
	}
}

func TestReplay_HeadcountRangeFromSeries(t *testing.T) {
	// GIVEN a replication and its per-tick headcount series
	sc := replayScenario()
	res := montecarlo.RunReplication(sc, 1, nil)
	lo, hi, ok := seriesRange(res.Headcount)
	require.True(t, ok)

	// WHEN it is replayed
	var out bytes.Buffer
	require.NoError(t, replay(sc, 1, "staffing", &out))

	// THEN the printed range matches the observed ticks, never the tick-0 setup steps
	assert.Contains(t, out.String(), fmt.Sprintf("Headcount Range       : %d..%d\n", lo, hi))
	assert.GreaterOrEqual(t, lo, 0)
	assert.LessOrEqual(t, hi, sc.Staffing.TargetHeadcount)
}

func TestSeriesRange(t *testing.T) {
	lo, hi, ok := seriesRange([]int{4, 6, 3, 5})
	assert.True(t, ok)
	assert.Equal(t, 3, lo)
	assert.Equal(t, 6, hi)

	_, _, ok = seriesRange(nil)
	assert.False(t, ok)
}
