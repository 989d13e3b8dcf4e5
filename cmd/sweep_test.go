package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/macsim/sim/trial"
)

func TestSweepConfigs_OnePerValue(t *testing.T) {
	base := trial.DefaultConfig()

	cfgs := sweepConfigs(base, []float64{0.1, 0.5}, []float64{3})

	require.Len(t, cfgs, 3)
	assert.Equal(t, trial.ProtocolSlotted, cfgs[0].Protocol)
	assert.Equal(t, 0.1, cfgs[0].P)
	assert.Equal(t, 0.5, cfgs[1].P)
	assert.Equal(t, trial.ProtocolALOHA, cfgs[2].Protocol)
	assert.Equal(t, 3.0, cfgs[2].Wait.Params["mean"])
	// base is untouched
	assert.Equal(t, 10.0, base.Wait.Params["mean"])
}

func TestRunSweep_ParallelMatchesSequential(t *testing.T) {
	// GIVEN four short trials
	base := trial.DefaultConfig()
	base.Horizon = 100
	cfgs := sweepConfigs(base, []float64{0.2, 0.8}, []float64{2, 20})

	// WHEN run with four workers and with one
	parallel, err := runSweep(context.Background(), cfgs, 4)
	require.NoError(t, err)
	sequential, err := runSweep(context.Background(), cfgs, 1)
	require.NoError(t, err)

	// THEN results line up with inputs and agree run for run
	require.Len(t, parallel, len(cfgs))
	for i := range cfgs {
		assert.Equal(t, cfgs[i].Protocol, parallel[i].Protocol)
		assert.Equal(t, sequential[i].Transmitted, parallel[i].Transmitted, "trial %d", i)
		assert.Equal(t, sequential[i].Delivered, parallel[i].Delivered, "trial %d", i)
		assert.Equal(t, sequential[i].PerNode, parallel[i].PerNode, "trial %d", i)
	}
}

func TestRunSweep_CollectsEveryFailure(t *testing.T) {
	good := trial.DefaultConfig()
	good.Horizon = 10
	bad := good
	bad.BitRate = -1

	results, err := runSweep(context.Background(), []trial.Config{bad, good, bad}, 2)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "trial 0")
	assert.Contains(t, err.Error(), "trial 2")
	assert.NotNil(t, results[1])
}
