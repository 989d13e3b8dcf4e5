package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/macsim/sim/mac"
	"github.com/inference-sim/macsim/sim/trace"
	"github.com/inference-sim/macsim/sim/trial"
)

func sample() *trial.Result {
	return &trial.Result{
		RunID:       "r-1",
		Protocol:    trial.ProtocolSlotted,
		Seed:        3,
		Nodes:       3,
		Transmitted: 12,
		Delivered:   4,
		Collisions:  5,
		Throughput:  0.125,
		MeanDelay:   2.5,
		PerNode: []trial.NodeResult{
			{ID: 0, Stats: mac.Stats{Delivered: 1, Collisions: 2}},
			{ID: 1, Stats: mac.Stats{Delivered: 3, Collisions: 1}},
			{ID: 2, Stats: mac.Stats{Collisions: 2}},
		},
		Trace: &trace.Summary{
			TotalRecords: 3,
			ByKind:       map[trace.Kind]int{trace.KindTransmit: 2, trace.KindDeliver: 1},
			LastTime:     9,
		},
	}
}

func TestPrint_IncludesHeadlineNumbers(t *testing.T) {
	// GIVEN a result with a trace summary
	var buf bytes.Buffer

	// WHEN printed
	Print(&buf, sample())

	// THEN the headline counters and trace kinds appear
	out := buf.String()
	assert.Contains(t, out, "=== MAC Trial Results ===")
	assert.Contains(t, out, "Protocol             : slotted")
	assert.Contains(t, out, "Collisions           : 5")
	assert.Contains(t, out, "Throughput           : 0.1250")
	assert.Contains(t, out, "Mean Delay")
	assert.Contains(t, out, "transmit")
	assert.NotContains(t, out, "WARNING")
}

func TestPrint_TruncatedWarns(t *testing.T) {
	r := sample()
	r.Truncated = true
	r.Trace = nil
	var buf bytes.Buffer

	Print(&buf, r)

	assert.Contains(t, buf.String(), "WARNING")
	assert.NotContains(t, buf.String(), "Trace Records")
}

func TestPrintTable_OneRowPerResult(t *testing.T) {
	var buf bytes.Buffer
	b := sample()
	b.Seed = 4

	require.NoError(t, PrintTable(&buf, []*trial.Result{sample(), b}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "throughput")
}

func TestNodeChart_OneBarPerNode(t *testing.T) {
	p, err := NodeChart(sample())

	require.NoError(t, err)
	assert.Equal(t, "slotted, seed 3", p.Title.Text)
}

func TestSavePlot_WritesImage(t *testing.T) {
	for _, ext := range []string{"png", "svg"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nodes."+ext)

			require.NoError(t, SavePlot(path, sample()))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Greater(t, info.Size(), int64(0))
		})
	}
}

func TestSavePlot_Rejects(t *testing.T) {
	dir := t.TempDir()
	empty := sample()
	empty.PerNode = nil

	assert.Error(t, SavePlot(filepath.Join(dir, "x.png"), empty))
	assert.Error(t, SavePlot(filepath.Join(dir, "noext"), sample()))
	assert.Error(t, SavePlot(filepath.Join(dir, "x.bogus"), sample()))
}
