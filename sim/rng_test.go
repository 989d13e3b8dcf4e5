package sim

import (
	"math"
	"math/rand"
	"testing"
)

func TestPartitionedRNG_DeterministicDerivation(t *testing.T) {
	// Same key+name produces same sequence
	rng1 := NewPartitionedRNG(NewSimulationKey(42))
	rng2 := NewPartitionedRNG(NewSimulationKey(42))

	for i := 0; i < 3; i++ {
		v1 := rng1.ForSubsystem(SubsystemNode(3)).Float64()
		v2 := rng2.ForSubsystem(SubsystemNode(3)).Float64()
		if v1 != v2 {
			t.Errorf("Value %d: got %v and %v, want identical", i, v1, v2)
		}
	}
}

func TestPartitionedRNG_NodeStreamsIsolated(t *testing.T) {
	// Draining node_0 must not shift node_1's sequence
	rngA := NewPartitionedRNG(NewSimulationKey(42))
	for i := 0; i < 10; i++ {
		rngA.ForSubsystem(SubsystemNode(0)).Float64()
	}
	aFirst := rngA.ForSubsystem(SubsystemNode(1)).Float64()

	fresh := NewPartitionedRNG(NewSimulationKey(42))
	want := fresh.ForSubsystem(SubsystemNode(1)).Float64()

	if aFirst != want {
		t.Errorf("node_1 first value = %v, want %v (isolation broken)", aFirst, want)
	}
}

func TestPartitionedRNG_TrafficUsesMasterSeed(t *testing.T) {
	seed := int64(42)
	traffic := NewPartitionedRNG(NewSimulationKey(seed)).ForSubsystem(SubsystemTraffic)
	direct := rand.New(rand.NewSource(seed))

	for i := 0; i < 10; i++ {
		if got, want := traffic.Float64(), direct.Float64(); got != want {
			t.Errorf("Value %d: traffic RNG = %v, direct RNG = %v", i, got, want)
		}
	}
}

func TestPartitionedRNG_CachesInstance(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(42))
	if rng.ForSubsystem(SubsystemTopology) != rng.ForSubsystem(SubsystemTopology) {
		t.Error("ForSubsystem returned different instances for same name")
	}
	if rng.Key() != SimulationKey(42) {
		t.Errorf("Key() = %v, want 42", rng.Key())
	}
}

func TestPartitionedRNG_ExtremeSeeds(t *testing.T) {
	for _, seed := range []int64{0, -1, math.MinInt64, math.MaxInt64} {
		val := NewPartitionedRNG(NewSimulationKey(seed)).ForSubsystem(SubsystemNode(0)).Float64()
		if val < 0 || val >= 1 {
			t.Errorf("seed %d: Float64() returned %v, want [0, 1)", seed, val)
		}
	}
}

func TestFnv1a64_NoCollisionAcrossSubsystems(t *testing.T) {
	names := []string{
		SubsystemTopology,
		SubsystemTraffic,
		SubsystemNode(0),
		SubsystemNode(1),
		SubsystemNode(100),
		"",
	}

	hashes := make(map[int64]string)
	for _, name := range names {
		h := fnv1a64(name)
		if existing, ok := hashes[h]; ok {
			t.Errorf("Hash collision: %q and %q both hash to %d", name, existing, h)
		}
		hashes[h] = name
	}
}

func TestSubsystemNode(t *testing.T) {
	tests := []struct {
		id   NodeID
		want string
	}{
		{0, "node_0"},
		{17, "node_17"},
	}

	for _, tt := range tests {
		if got := SubsystemNode(tt.id); got != tt.want {
			t.Errorf("SubsystemNode(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestPartitionedRNG_ForNodeMatchesNamedStream(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(5))
	if rng.ForNode(4) != rng.ForSubsystem("node_4") {
		t.Error("ForNode(4) and ForSubsystem(\"node_4\") returned different streams")
	}
}

func TestPartitionedRNG_StreamsListsCreatedNames(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(5))
	rng.ForNode(2)
	rng.ForSubsystem(SubsystemTraffic)
	rng.ForNode(2)

	got := rng.Streams()
	want := []string{"node_2", "traffic"}
	if len(got) != len(want) {
		t.Fatalf("Streams() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Streams()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPartitionedRNG_DifferentKeysDiverge(t *testing.T) {
	a := NewPartitionedRNG(NewSimulationKey(1)).ForNode(0).Int63()
	b := NewPartitionedRNG(NewSimulationKey(2)).ForNode(0).Int63()
	if a == b {
		t.Errorf("keys 1 and 2 produced the same first draw %d for node_0", a)
	}
}
