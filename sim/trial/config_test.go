package trial

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

func TestDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestParseConfig_OverridesOnlyNamedFields(t *testing.T) {
	// GIVEN a YAML document naming a few fields
	data := []byte(`
protocol: slotted
p: 0.25
topology:
  kind: poisson
  density: 2
  width: 5
  height: 5
  radius: 1
`)

	// WHEN parsed
	cfg, err := ParseConfig(data)

	// THEN named fields change and the rest keep their defaults
	require.NoError(t, err)
	assert.Equal(t, ProtocolSlotted, cfg.Protocol)
	assert.Equal(t, 0.25, cfg.P)
	assert.Equal(t, TopologyPoisson, cfg.Topology.Kind)
	assert.Equal(t, 2.0, cfg.Topology.Density)
	assert.Equal(t, DefaultConfig().Seed, cfg.Seed)
	assert.Equal(t, DefaultConfig().BitRate, cfg.BitRate)
	require.NoError(t, cfg.Validate())
}

func TestParseConfig_UnknownField_Rejected(t *testing.T) {
	_, err := ParseConfig([]byte("protocl: aloha\n"))
	assert.Error(t, err)
}

func TestParseConfig_WaitDistribution(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
wait:
  type: uniform
  params: {min: 1, max: 4}
`))
	require.NoError(t, err)
	assert.Equal(t, "uniform", cfg.Wait.Type)
	assert.Equal(t, 4.0, cfg.Wait.Params["max"])
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seed: 7\nhorizon: 50\n"), 0o644))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 50.0, cfg.Horizon)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	// GIVEN a config with three independent mistakes
	cfg := DefaultConfig()
	cfg.Protocol = "csma"
	cfg.BitRate = 0
	cfg.TraceLevel = "verbose"

	// WHEN validated
	err := cfg.Validate()

	// THEN all three are reported together
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr), "got %T", err)
	assert.Len(t, merr.Errors, 3)
	assert.Contains(t, err.Error(), "csma")
	assert.Contains(t, err.Error(), "bit_rate")
	assert.Contains(t, err.Error(), "verbose")
}

func TestValidate_ProtocolSpecificFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"slotted p above one", func(c *Config) { c.Protocol = ProtocolSlotted; c.P = 1.5 }},
		{"slotted zero slot", func(c *Config) { c.Protocol = ProtocolSlotted; c.SlotLength = 0 }},
		{"aloha bad wait", func(c *Config) { c.Wait.Type = "gaussian" }},
		{"negative queue", func(c *Config) { c.QueueCapacity = -1 }},
		{"grid without spacing", func(c *Config) { c.Topology.Spacing = 0 }},
		{"unknown topology", func(c *Config) { c.Topology.Kind = "ring" }},
		{"zero packet", func(c *Config) { c.PacketBits = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_SlottedIgnoresWait(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Protocol = ProtocolSlotted
	cfg.Wait.Type = ""
	assert.NoError(t, cfg.Validate())
}
