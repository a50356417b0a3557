// Package metrics exports Monte Carlo results as Prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/stat"

	"github.com/inference-sim/workforce-sim/sim/montecarlo"
)

const (
	// common prefix for all metric names
	prefix = "workforce_sim_"

	kindLabel    = "kind"
	outcomeLabel = "outcome"
)

var phaseLabels = []string{kindLabel, outcomeLabel}

// Sink accumulates replication results into a private registry and, on
// Finish, writes it in the text exposition format.
type Sink struct {
	registry *prometheus.Registry
	path     string

	replications       prometheus.Counter
	phases             *prometheus.CounterVec
	hires              prometheus.Histogram
	quits              prometheus.Histogram
	allBuiltAt         prometheus.Histogram
	neverAllBuilt      prometheus.Counter
	failedDeliverables prometheus.Histogram
	abandonedTasks     prometheus.Counter
	peakInUse          prometheus.Histogram
	meanAvailable      prometheus.Gauge
	meanHeadcount      prometheus.Gauge
}

// NewSink creates a sink for an experiment with the given horizon and team
// size. path may be empty, in which case Finish writes nothing.
func NewSink(path string, horizon int64, target int) *Sink {
	tickWidth := max(float64(horizon)/20, 1)
	headWidth := max(float64(target)/10, 1)

	s := &Sink{
		registry: prometheus.NewRegistry(),
		path:     path,
		replications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "replications_total",
			Help: "Number of replications recorded",
		}),
		phases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "phases_total",
			Help: "Resolved phases by kind and outcome, summed over replications",
		}, phaseLabels),
		hires: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    prefix + "replication_hires",
			Help:    "Hires per replication",
			Buckets: prometheus.LinearBuckets(0, 5, 20),
		}),
		quits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    prefix + "replication_quits",
			Help:    "Quits per replication",
			Buckets: prometheus.LinearBuckets(0, 5, 20),
		}),
		allBuiltAt: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    prefix + "all_built_at_ticks",
			Help:    "Tick at which every initial build had completed",
			Buckets: prometheus.LinearBuckets(tickWidth, tickWidth, 20),
		}),
		neverAllBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "never_all_built_total",
			Help: "Replications in which the initial builds never all completed",
		}),
		failedDeliverables: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    prefix + "replication_failed_deliverables",
			Help:    "Failed deliverables per replication",
			Buckets: prometheus.LinearBuckets(0, 1, 20),
		}),
		abandonedTasks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "abandoned_tasks_total",
			Help: "Tasks still suspended at the horizon, summed over replications",
		}),
		peakInUse: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    prefix + "replication_peak_in_use",
			Help:    "Highest number of occupied pool slots per replication",
			Buckets: prometheus.LinearBuckets(headWidth, headWidth, 10),
		}),
		meanAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "mean_available_slots",
			Help: "Free pool slots averaged over ticks and replications",
		}),
		meanHeadcount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "mean_headcount",
			Help: "Employed modelers averaged over ticks and replications",
		}),
	}
	s.registry.MustRegister(
		s.replications,
		s.phases,
		s.hires,
		s.quits,
		s.allBuiltAt,
		s.neverAllBuilt,
		s.failedDeliverables,
		s.abandonedTasks,
		s.peakInUse,
		s.meanAvailable,
		s.meanHeadcount,
	)
	return s
}

// Registry exposes the sink's registry, e.g. for serving or testing.
func (s *Sink) Registry() *prometheus.Registry { return s.registry }

// Record implements montecarlo.Sink.
func (s *Sink) Record(r *montecarlo.ReplicationResult) error {
	s.replications.Inc()
	s.phases.WithLabelValues("build", "completed").Add(float64(r.BuildsCompleted))
	s.phases.WithLabelValues("build", "timed-out").Add(float64(r.BuildsFailed))
	s.phases.WithLabelValues("monitor", "completed").Add(float64(r.MonitorsCompleted))
	s.phases.WithLabelValues("monitor", "timed-out").Add(float64(r.MonitorsFailed))
	s.phases.WithLabelValues("rebuild", "completed").Add(float64(r.RebuildsCompleted))
	s.phases.WithLabelValues("rebuild", "timed-out").Add(float64(r.RebuildsFailed))

	s.hires.Observe(float64(r.Hires))
	s.quits.Observe(float64(r.Quits))
	if r.AllBuiltAt >= 0 {
		s.allBuiltAt.Observe(float64(r.AllBuiltAt))
	} else {
		s.neverAllBuilt.Inc()
	}
	s.failedDeliverables.Observe(float64(r.FailedDeliverables))
	s.abandonedTasks.Add(float64(r.AbandonedTasks))
	s.peakInUse.Observe(float64(r.PeakInUse))
	return nil
}

// Finish implements montecarlo.Finisher.
func (s *Sink) Finish(e *montecarlo.Experiment) error {
	if len(e.MeanAvailable) > 0 {
		s.meanAvailable.Set(stat.Mean(e.MeanAvailable, nil))
	}
	if len(e.MeanHeadcount) > 0 {
		s.meanHeadcount.Set(stat.Mean(e.MeanHeadcount, nil))
	}
	if s.path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(s.path, s.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", s.path, err)
	}
	return nil
}
