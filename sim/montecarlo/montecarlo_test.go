package montecarlo

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/workforce-sim/sim/internal/testutil"
	"github.com/inference-sim/workforce-sim/sim/scenario"
	"github.com/inference-sim/workforce-sim/sim/trace"
)

func smallScenario() scenario.Scenario {
	return testutil.SmallScenario("small", 260, 8, 5)
}

func TestRunReplication_Reproducible(t *testing.T) {
	// GIVEN the same scenario and replication index
	sc := smallScenario()

	// WHEN replication 3 is run twice in isolation
	first := RunReplication(sc, 3, nil)
	second := RunReplication(sc, 3, nil)

	// THEN the results are identical
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("replication 3 not reproducible (-first +second):\n%s", diff)
	}
	assert.NotEqual(t, RunReplication(sc, 4, nil).Seed, first.Seed)
}

func TestRunReplication_SeriesAndInvariants(t *testing.T) {
	sc := smallScenario()
	r := RunReplication(sc, 0, nil)

	testutil.AssertSeriesBounded(t, r.Available, r.Headcount, sc.Horizon, sc.Staffing.TargetHeadcount)
	assert.LessOrEqual(t, r.PeakInUse, sc.Staffing.TargetHeadcount)
	// At most one hire and one quit happen on tick 0.
	assert.InDelta(t, sc.Staffing.StartHeadcount, r.Headcount[0], 1)
	assert.LessOrEqual(t, r.BuildsCompleted+r.BuildsFailed, sc.Backlog.Count)
}

func TestRunReplication_Trace(t *testing.T) {
	sc := smallScenario()
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelPhases})
	r := RunReplication(sc, 1, st)

	summary := trace.Summarize(st)
	assert.Equal(t, r.BuildsCompleted, summary.Completed["build"])
	assert.Equal(t, r.MonitorsFailed, summary.TimedOut["monitor"])
	assert.Equal(t, r.Hires, summary.Hires)
	assert.Equal(t, r.Quits, summary.Quits)
	assert.Equal(t, sc.Staffing.TargetHeadcount-sc.Staffing.StartHeadcount, summary.SetupFires)
}

func TestRun_SameSeed_IdenticalResults(t *testing.T) {
	// GIVEN two runs of the same scenario with different worker counts
	sc := smallScenario()
	serial, err := Run(context.Background(), sc, Options{Workers: 1})
	require.NoError(t, err)
	parallel, err := Run(context.Background(), sc, Options{Workers: 4})
	require.NoError(t, err)

	// THEN the replication arrays and aggregates are identical
	if diff := cmp.Diff(serial.Results, parallel.Results); diff != "" {
		t.Errorf("results differ across worker counts (-serial +parallel):\n%s", diff)
	}
	if diff := cmp.Diff(serial.Distributions, parallel.Distributions); diff != "" {
		t.Errorf("distributions differ (-serial +parallel):\n%s", diff)
	}
	for i, r := range serial.Results {
		assert.Equal(t, i, r.Index)
	}
}

func TestRun_DifferentSeed_DifferentResults(t *testing.T) {
	sc := smallScenario()
	a, err := Run(context.Background(), sc, Options{})
	require.NoError(t, err)
	sc.Seed++
	b, err := Run(context.Background(), sc, Options{})
	require.NoError(t, err)
	assert.NotEqual(t, a.Results[0].Seed, b.Results[0].Seed)
	assert.False(t, cmp.Equal(a.Results, b.Results))
}

func TestRun_InvalidScenario(t *testing.T) {
	sc := smallScenario()
	sc.Replications = 0
	_, err := Run(context.Background(), sc, Options{})
	assert.ErrorContains(t, err, "invalid scenario")
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, smallScenario(), Options{Workers: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

type recordingSink struct {
	indices  []int
	finished *Experiment
	failAt   int
}

func (s *recordingSink) Record(r *ReplicationResult) error {
	if s.failAt >= 0 && r.Index == s.failAt {
		return errors.New("disk full")
	}
	s.indices = append(s.indices, r.Index)
	return nil
}

func (s *recordingSink) Finish(e *Experiment) error {
	s.finished = e
	return nil
}

func TestRun_Sinks_ReceiveResultsInIndexOrder(t *testing.T) {
	sink := &recordingSink{failAt: -1}
	exp, err := Run(context.Background(), smallScenario(), Options{Workers: 3, Sinks: []Sink{sink}})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, sink.indices)
	assert.Same(t, exp, sink.finished)
}

func TestRun_SinkError_IsReturnedWithExperiment(t *testing.T) {
	sink := &recordingSink{failAt: 2}
	exp, err := Run(context.Background(), smallScenario(), Options{Sinks: []Sink{sink}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording replication 2")
	assert.NotNil(t, exp)
	assert.Equal(t, []int{0, 1}, sink.indices)
}

func TestNewDistribution(t *testing.T) {
	d := NewDistribution([]float64{4, 1, 3, 2})
	assert.Equal(t, 4, d.Count)
	assert.InDelta(t, 2.5, d.Mean, 1e-12)
	assert.InDelta(t, 1.2909944, d.StdDev, 1e-6)
	assert.Equal(t, 1.0, d.Min)
	assert.Equal(t, 4.0, d.Max)
	assert.GreaterOrEqual(t, d.P50, 2.0)
	assert.LessOrEqual(t, d.P50, 3.0)
	assert.LessOrEqual(t, d.P5, d.P50)
	assert.LessOrEqual(t, d.P50, d.P95)

	single := NewDistribution([]float64{7})
	assert.Equal(t, Distribution{Count: 1, Mean: 7, Min: 7, P5: 7, P50: 7, P95: 7, Max: 7}, single)
	assert.Equal(t, Distribution{}, NewDistribution(nil))
}

func TestNewHistogram(t *testing.T) {
	values := []float64{9, 0, 1, 2, 3, 4, 5, 6, 7, 8}
	h := NewHistogram(values, 10)
	require.Len(t, h.Edges, 11)
	require.Len(t, h.Counts, 10)
	total := 0.0
	for _, c := range h.Counts {
		assert.Equal(t, 1.0, c)
		total += c
	}
	assert.Equal(t, 10.0, total)

	flat := NewHistogram([]float64{3, 3, 3}, 10)
	assert.Equal(t, []float64{3}, flat.Counts)
	assert.Empty(t, NewHistogram(nil, 10).Counts)
}

func TestAggregate_MeanSeriesAndNeverAllBuilt(t *testing.T) {
	results := []*ReplicationResult{
		{Index: 0, AllBuiltAt: 40, Available: []int{2, 4}, Headcount: []int{4, 5}},
		{Index: 1, AllBuiltAt: -1, Available: []int{0, 2}, Headcount: []int{4, 7}},
	}
	exp := Aggregate(smallScenario(), results)

	assert.Equal(t, []float64{1, 3}, exp.MeanAvailable)
	assert.Equal(t, []float64{4, 6}, exp.MeanHeadcount)
	assert.Equal(t, 1, exp.NeverAllBuilt)
	assert.Equal(t, 1, exp.Distributions[MetricAllBuiltAt].Count)
	assert.Equal(t, 2, exp.Distributions[MetricHires].Count)
	assert.Len(t, MetricNames(), len(exp.Distributions))
}

func TestExperiment_PrintAndSaveSeries(t *testing.T) {
	sc := smallScenario()
	sc.Replications = 2
	exp, err := Run(context.Background(), sc, Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	exp.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "=== Monte Carlo Summary ===")
	for _, name := range MetricNames() {
		assert.Contains(t, out, name)
	}

	path := filepath.Join(t.TempDir(), "series.csv")
	require.NoError(t, exp.SaveSeries(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, int(sc.Horizon)+1)
	assert.Equal(t, "tick,available,headcount", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0,"))
}

func TestAggregate_MeansMatchResults(t *testing.T) {
	// GIVEN a completed experiment
	exp, err := Run(context.Background(), smallScenario(), Options{Workers: 2})
	require.NoError(t, err)

	// WHEN per-replication values are averaged by hand
	var hires, peak float64
	for _, r := range exp.Results {
		hires += float64(r.Hires)
		peak += float64(r.PeakInUse)
	}
	n := float64(len(exp.Results))

	// THEN the aggregate means agree
	testutil.AssertFloat64Equal(t, "hires mean", hires/n, exp.Distributions[MetricHires].Mean, 1e-9)
	testutil.AssertFloat64Equal(t, "peak mean", peak/n, exp.Distributions[MetricPeakInUse].Mean, 1e-9)
}
