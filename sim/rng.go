package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible replication.
// Two replications with the same SimulationKey and identical scenario
// MUST produce bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// ReplicationKey derives the key of replication idx from an experiment's master seed.
// The derivation depends only on (masterSeed, idx), so any replication can be
// re-run in isolation and the order in which replications execute is irrelevant.
func ReplicationKey(masterSeed int64, idx int) SimulationKey {
	return SimulationKey(masterSeed ^ fnv1a64(SubsystemReplication(idx)))
}

// === Subsystem Constants ===

const (
	// SubsystemStaffing is the RNG subsystem for hire/quit triggers.
	SubsystemStaffing = "staffing"

	// SubsystemLifecycle is the RNG subsystem for phase durations and rebuild horizons.
	SubsystemLifecycle = "lifecycle"
)

// SubsystemReplication returns the subsystem name for replication N.
func SubsystemReplication(idx int) string {
	return fmt.Sprintf("replication_%d", idx)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula: masterSeed XOR fnv1a64(subsystemName).
// Drawing from one subsystem never perturbs another, so adding a hire trigger
// draw does not shift every phase duration that follows it.
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
