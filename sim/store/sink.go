package store

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/workforce-sim/sim/montecarlo"
)

// Sink adapts a Store to montecarlo.Sink for one experiment.
type Sink struct {
	ctx          context.Context
	store        *Store
	experimentID string
	withTicks    bool
	saved        int
}

// NewSink records results under experimentID. withTicks also stores the
// per-tick series of every replication.
func NewSink(ctx context.Context, s *Store, experimentID string, withTicks bool) *Sink {
	return &Sink{ctx: ctx, store: s, experimentID: experimentID, withTicks: withTicks}
}

// Record implements montecarlo.Sink.
func (k *Sink) Record(r *montecarlo.ReplicationResult) error {
	if err := k.store.SaveReplication(k.ctx, k.experimentID, r, k.withTicks); err != nil {
		return err
	}
	k.saved++
	return nil
}

// Finish implements montecarlo.Finisher.
func (k *Sink) Finish(e *montecarlo.Experiment) error {
	if err := k.store.SaveDistributions(k.ctx, k.experimentID, e.Distributions); err != nil {
		return err
	}
	logrus.Infof("Stored %d replications under experiment %s", k.saved, k.experimentID)
	return nil
}
