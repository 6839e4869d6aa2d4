package workload

import (
	"hash/fnv"
	"math/rand"
)

// PartitionedRNG provides deterministic, isolated RNG streams per
// subsystem, so adding a user to a scenario never perturbs the lengths
// another user's jobs were generated with.
//
// Derivation: master seed XOR fnv1a64(subsystem name).
//
// Thread-safety: NOT thread-safe. The simulation is single-threaded.
type PartitionedRNG struct {
	seed       int64
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a partitioned RNG from a master seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{
		seed:       seed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// For returns the RNG stream for a subsystem, creating it on first use.
func (p *PartitionedRNG) For(subsystem string) *rand.Rand {
	if r, ok := p.subsystems[subsystem]; ok {
		return r
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(subsystem))
	r := rand.New(rand.NewSource(p.seed ^ int64(h.Sum64())))
	p.subsystems[subsystem] = r
	return r
}
