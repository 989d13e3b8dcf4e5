package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
)

// SimulationKey is the master seed of a trial. Equal keys and equal
// configuration give identical runs.
type SimulationKey int64

// NewSimulationKey wraps a seed.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// Stream names. Nodes use SubsystemNode.
const (
	// SubsystemTopology drives node placement.
	SubsystemTopology = "topology"
	// SubsystemTraffic drives packet arrivals and is seeded with the master key itself.
	SubsystemTraffic = "traffic"
)

// SubsystemNode names the stream node id uses for its random waits or
// slotted persistence draws.
func SubsystemNode(id NodeID) string {
	return fmt.Sprintf("node_%d", id)
}

// PartitionedRNG hands out one independent *rand.Rand per named stream.
// Streams never share state, so adding a node leaves every other node's draws
// unchanged. A stream's seed is the master key XOR the FNV-1a hash of its
// name, except SubsystemTraffic which takes the key as is.
//
// Not safe for concurrent use; each trial owns its own.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG returns a partition with no streams drawn yet.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, streams: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the stream called name, creating it on first use.
// Repeated calls return the same instance.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	rng, ok := p.streams[name]
	if !ok {
		rng = rand.New(rand.NewSource(p.seedFor(name)))
		p.streams[name] = rng
	}
	return rng
}

// ForNode is ForSubsystem(SubsystemNode(id)).
func (p *PartitionedRNG) ForNode(id NodeID) *rand.Rand {
	return p.ForSubsystem(SubsystemNode(id))
}

// Streams lists the streams created so far, sorted.
func (p *PartitionedRNG) Streams() []string {
	names := make([]string, 0, len(p.streams))
	for name := range p.streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Key returns the master seed.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func (p *PartitionedRNG) seedFor(name string) int64 {
	if name == SubsystemTraffic {
		return int64(p.key)
	}
	return int64(p.key) ^ fnv1a64(name)
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
