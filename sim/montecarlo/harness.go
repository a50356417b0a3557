package montecarlo

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/inference-sim/workforce-sim/sim/scenario"
)

// Sink receives every replication result, in index order, after all
// replications have completed.
type Sink interface {
	Record(r *ReplicationResult) error
}

// Finisher is implemented by sinks that also want the aggregated experiment.
type Finisher interface {
	Finish(e *Experiment) error
}

// Options control how an experiment is executed. None of them change results.
type Options struct {
	Workers       int // concurrent replications; <= 0 means GOMAXPROCS
	ProgressEvery int // log progress every N completed replications; <= 0 disables
	Sinks         []Sink
}

// Run executes sc.Replications replications and aggregates them. Results are
// stored by index, so the experiment is identical for any worker count.
// Cancelling ctx stops launching replications and returns the context error.
func Run(ctx context.Context, sc scenario.Scenario, opts Options) (*Experiment, error) {
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logrus.Infof("Running %d replications of %q (horizon %d, seed %d) on %d workers",
		sc.Replications, sc.Name, sc.Horizon, sc.Seed, workers)

	results := make([]*ReplicationResult, sc.Replications)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < sc.Replications; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = RunReplication(sc, i, nil)
			n := done.Add(1)
			if opts.ProgressEvery > 0 && n%int64(opts.ProgressEvery) == 0 {
				logrus.Infof("%d/%d replications complete", n, sc.Replications)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("running replications: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("running replications: %w", err)
	}

	exp := Aggregate(sc, results)
	if err := deliver(exp, opts.Sinks); err != nil {
		return exp, err
	}
	return exp, nil
}

// deliver hands every result to every sink, then finishes the sinks that
// want the aggregate. All sink errors are collected.
func deliver(exp *Experiment, sinks []Sink) error {
	var result *multierror.Error
	for _, sink := range sinks {
		for _, r := range exp.Results {
			if err := sink.Record(r); err != nil {
				result = multierror.Append(result, fmt.Errorf("recording replication %d: %w", r.Index, err))
				break
			}
		}
		if f, ok := sink.(Finisher); ok {
			if err := f.Finish(exp); err != nil {
				result = multierror.Append(result, fmt.Errorf("finishing sink: %w", err))
			}
		}
	}
	return result.ErrorOrNil()
}
