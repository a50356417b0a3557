package montecarlo

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/inference-sim/workforce-sim/sim/scenario"
)

// Metric names, in report order.
const (
	MetricHires              = "hires"
	MetricQuits              = "quits"
	MetricBuildsCompleted    = "builds_completed"
	MetricBuildsFailed       = "builds_failed"
	MetricRebuildsCompleted  = "rebuilds_completed"
	MetricRebuildsFailed     = "rebuilds_failed"
	MetricMonitorsCompleted  = "monitors_completed"
	MetricMonitorsFailed     = "monitors_failed"
	MetricAllBuiltAt         = "all_built_at"
	MetricFailedDeliverables = "failed_deliverables"
	MetricPeakInUse          = "peak_in_use"
)

// metricOrder lists every metric with its extractor. all_built_at skips
// replications where it is -1.
var metricOrder = []struct {
	name string
	get  func(*ReplicationResult) (float64, bool)
}{
	{MetricHires, func(r *ReplicationResult) (float64, bool) { return float64(r.Hires), true }},
	{MetricQuits, func(r *ReplicationResult) (float64, bool) { return float64(r.Quits), true }},
	{MetricBuildsCompleted, func(r *ReplicationResult) (float64, bool) { return float64(r.BuildsCompleted), true }},
	{MetricBuildsFailed, func(r *ReplicationResult) (float64, bool) { return float64(r.BuildsFailed), true }},
	{MetricRebuildsCompleted, func(r *ReplicationResult) (float64, bool) { return float64(r.RebuildsCompleted), true }},
	{MetricRebuildsFailed, func(r *ReplicationResult) (float64, bool) { return float64(r.RebuildsFailed), true }},
	{MetricMonitorsCompleted, func(r *ReplicationResult) (float64, bool) { return float64(r.MonitorsCompleted), true }},
	{MetricMonitorsFailed, func(r *ReplicationResult) (float64, bool) { return float64(r.MonitorsFailed), true }},
	{MetricAllBuiltAt, func(r *ReplicationResult) (float64, bool) { return float64(r.AllBuiltAt), r.AllBuiltAt >= 0 }},
	{MetricFailedDeliverables, func(r *ReplicationResult) (float64, bool) { return float64(r.FailedDeliverables), true }},
	{MetricPeakInUse, func(r *ReplicationResult) (float64, bool) { return float64(r.PeakInUse), true }},
}

// MetricNames returns the metric names in report order.
func MetricNames() []string {
	names := make([]string, len(metricOrder))
	for i, m := range metricOrder {
		names[i] = m.name
	}
	return names
}

// Distribution summarises one metric across replications.
type Distribution struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	P5     float64
	P50    float64
	P95    float64
	Max    float64
}

// NewDistribution computes summary statistics of values. Empty input yields
// the zero Distribution; a single value has zero standard deviation.
func NewDistribution(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	d := Distribution{
		Count: len(sorted),
		Mean:  stat.Mean(sorted, nil),
		Min:   sorted[0],
		P5:    stat.Quantile(0.05, stat.Empirical, sorted, nil),
		P50:   stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95:   stat.Quantile(0.95, stat.Empirical, sorted, nil),
		Max:   sorted[len(sorted)-1],
	}
	if len(sorted) > 1 {
		d.StdDev = stat.StdDev(sorted, nil)
	}
	return d
}

// Histogram is a fixed-width histogram. Edges has len(Counts)+1 entries and
// bin i covers [Edges[i], Edges[i+1]).
type Histogram struct {
	Edges  []float64
	Counts []float64
}

// NewHistogram bins values into the given number of equal-width bins spanning
// [min, max]. The last edge is nudged above max so the maximum is counted.
func NewHistogram(values []float64, bins int) Histogram {
	if len(values) == 0 || bins <= 0 {
		return Histogram{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	hi = math.Nextafter(hi, math.Inf(1))
	if sorted[0] == sorted[len(sorted)-1] {
		return Histogram{Edges: []float64{lo, hi}, Counts: []float64{float64(len(sorted))}}
	}
	edges := floats.Span(make([]float64, bins+1), lo, hi)
	edges[bins] = hi
	return Histogram{
		Edges:  edges,
		Counts: stat.Histogram(nil, edges, sorted, nil),
	}
}

// HistogramBins is the bin count used for every metric histogram.
const HistogramBins = 10

// Experiment is the aggregate of all replications.
type Experiment struct {
	Scenario scenario.Scenario
	Results  []*ReplicationResult // indexed by replication

	Distributions map[string]Distribution
	Histograms    map[string]Histogram
	// NeverAllBuilt counts replications whose initial builds never all resolved.
	NeverAllBuilt int

	// Per-tick means across replications.
	MeanAvailable []float64
	MeanHeadcount []float64
}

// Aggregate builds the cross-replication view of results.
func Aggregate(sc scenario.Scenario, results []*ReplicationResult) *Experiment {
	exp := &Experiment{
		Scenario:      sc,
		Results:       results,
		Distributions: make(map[string]Distribution, len(metricOrder)),
		Histograms:    make(map[string]Histogram, len(metricOrder)),
	}
	for _, m := range metricOrder {
		values := make([]float64, 0, len(results))
		for _, r := range results {
			if v, ok := m.get(r); ok {
				values = append(values, v)
			}
		}
		exp.Distributions[m.name] = NewDistribution(values)
		exp.Histograms[m.name] = NewHistogram(values, HistogramBins)
	}
	for _, r := range results {
		if r.AllBuiltAt < 0 {
			exp.NeverAllBuilt++
		}
	}
	exp.MeanAvailable = meanSeries(results, func(r *ReplicationResult) []int { return r.Available })
	exp.MeanHeadcount = meanSeries(results, func(r *ReplicationResult) []int { return r.Headcount })
	return exp
}

// meanSeries averages per-tick series element-wise. Series are expected to
// share the horizon length; shorter ones only contribute to their prefix.
func meanSeries(results []*ReplicationResult, series func(*ReplicationResult) []int) []float64 {
	longest := 0
	for _, r := range results {
		longest = max(longest, len(series(r)))
	}
	sums := make([]float64, longest)
	counts := make([]float64, longest)
	for _, r := range results {
		for t, v := range series(r) {
			sums[t] += float64(v)
			counts[t]++
		}
	}
	for t := range sums {
		if counts[t] > 0 {
			sums[t] /= counts[t]
		}
	}
	return sums
}
