package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/macsim/sim/mac"
	"github.com/inference-sim/macsim/sim/topology"
	"github.com/inference-sim/macsim/sim/trial"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

func sampleResult(id, protocol string) *trial.Result {
	return &trial.Result{
		RunID:        id,
		Protocol:     protocol,
		Seed:         9,
		Nodes:        2,
		Horizon:      100,
		Offered:      10,
		Dropped:      1,
		Transmitted:  9,
		Delivered:    6,
		Collisions:   2,
		Throughput:   0.06,
		MeanDelay:    3.5,
		DelayStdDev:  1.25,
		MeanLinkCost: -0.3,
		Events:       120,
		Truncated:    true,
		PerNode: []trial.NodeResult{
			{ID: 0, Location: topology.Coordinate{X: 0, Y: 0}, Partners: 1, Stats: mac.Stats{Transmitted: 5, Delivered: 3, Collisions: 1}},
			{ID: 1, Location: topology.Coordinate{X: 0.5, Y: 0}, Partners: 1, Stats: mac.Stats{Transmitted: 4, Delivered: 3, Collisions: 1, Dropped: 1}},
		},
	}
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	// GIVEN a fresh store
	s := openTemp(t)
	ctx := context.Background()
	want := sampleResult("run-a", trial.ProtocolALOHA)

	// WHEN a result is saved and read back
	require.NoError(t, s.SaveResult(ctx, want))
	got, err := s.Results(ctx, "")

	// THEN the summary fields survive
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, want.RunID, got[0].RunID)
	assert.Equal(t, want.Protocol, got[0].Protocol)
	assert.Equal(t, want.Seed, got[0].Seed)
	assert.Equal(t, want.Delivered, got[0].Delivered)
	assert.Equal(t, want.Collisions, got[0].Collisions)
	assert.InDelta(t, want.Throughput, got[0].Throughput, 1e-12)
	assert.InDelta(t, want.MeanLinkCost, got[0].MeanLinkCost, 1e-12)
	assert.Equal(t, want.Events, got[0].Events)
	assert.True(t, got[0].Truncated)

	// AND so do the per-node rows
	nodes, err := s.NodeResults(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, want.PerNode, nodes)
}

func TestStore_Results_FiltersByProtocol(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.SaveResult(ctx, sampleResult("a1", trial.ProtocolALOHA)))
	require.NoError(t, s.SaveResult(ctx, sampleResult("s1", trial.ProtocolSlotted)))
	require.NoError(t, s.SaveResult(ctx, sampleResult("a2", trial.ProtocolALOHA)))

	aloha, err := s.Results(ctx, trial.ProtocolALOHA)
	require.NoError(t, err)
	require.Len(t, aloha, 2)
	assert.Equal(t, "a1", aloha[0].RunID)
	assert.Equal(t, "a2", aloha[1].RunID)

	all, err := s.Results(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_DuplicateRunID_RolledBack(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.SaveResult(ctx, sampleResult("dup", trial.ProtocolALOHA)))

	assert.Error(t, s.SaveResult(ctx, sampleResult("dup", trial.ProtocolSlotted)))

	all, err := s.Results(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, trial.ProtocolALOHA, all[0].Protocol)
}

func TestStore_Reopen_KeepsDataAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveResult(ctx, sampleResult("keep", trial.ProtocolSlotted)))
	require.NoError(t, s.Close())

	// reopening re-runs migrations, which must be a no-op
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Results(ctx, trial.ProtocolSlotted)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStore_SavesRealTrial(t *testing.T) {
	cfg := trial.DefaultConfig()
	cfg.Horizon = 100
	res, err := trial.Run(context.Background(), cfg)
	require.NoError(t, err)

	s := openTemp(t)
	require.NoError(t, s.SaveResult(context.Background(), res))

	nodes, err := s.NodeResults(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Len(t, nodes, res.Nodes)
}
