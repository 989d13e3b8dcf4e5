package trial

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/macsim/sim/distribution"
	"github.com/inference-sim/macsim/sim/trace"
)

// Protocol names accepted in Config.Protocol.
const (
	ProtocolALOHA   = "aloha"
	ProtocolSlotted = "slotted"
)

// Topology kinds accepted in TopologyConfig.Kind.
const (
	TopologyGrid    = "grid"
	TopologyPoisson = "poisson"
)

// Config describes one trial. Every field has a default in DefaultConfig; a
// YAML file only needs to name what it changes.
type Config struct {
	Protocol string  `yaml:"protocol" mapstructure:"protocol"`
	Seed     int64   `yaml:"seed" mapstructure:"seed"`
	Horizon  float64 `yaml:"horizon" mapstructure:"horizon"`
	// MaxEvents bounds event dispatches in the event-driven variant; 0 disables the bound.
	MaxEvents int64 `yaml:"max_events" mapstructure:"max_events"`

	SlotLength float64 `yaml:"slot_length" mapstructure:"slot_length"`
	P          float64 `yaml:"p" mapstructure:"p"`

	QueueCapacity int     `yaml:"queue_capacity" mapstructure:"queue_capacity"` // 0 = unbounded
	BitRate       float64 `yaml:"bit_rate" mapstructure:"bit_rate"`
	PacketBits    int     `yaml:"packet_bits" mapstructure:"packet_bits"`
	// ArrivalRate is the mean number of new packets per node per time unit.
	ArrivalRate float64 `yaml:"arrival_rate" mapstructure:"arrival_rate"`
	Echo        bool    `yaml:"echo" mapstructure:"echo"`

	Wait     distribution.Spec `yaml:"wait" mapstructure:"wait"`
	Topology TopologyConfig    `yaml:"topology" mapstructure:"topology"`

	TraceLevel string `yaml:"trace_level" mapstructure:"trace_level"`
}

// TopologyConfig selects how nodes are placed and which pairs can hear each other.
type TopologyConfig struct {
	Kind    string  `yaml:"kind" mapstructure:"kind"`
	Spacing float64 `yaml:"spacing,omitempty" mapstructure:"spacing"`
	Density float64 `yaml:"density,omitempty" mapstructure:"density"`
	Width   float64 `yaml:"width" mapstructure:"width"`
	Height  float64 `yaml:"height" mapstructure:"height"`
	Radius  float64 `yaml:"radius" mapstructure:"radius"`
}

// DefaultConfig returns a small event-driven trial on a 4x4 grid.
func DefaultConfig() Config {
	return Config{
		Protocol:      ProtocolALOHA,
		Seed:          42,
		Horizon:       1000,
		MaxEvents:     10_000_000,
		SlotLength:    1,
		P:             0.1,
		QueueCapacity: 16,
		BitRate:       1000,
		PacketBits:    1000,
		ArrivalRate:   0.02,
		Wait:          distribution.Spec{Type: "exponential", Params: map[string]float64{"mean": 10}},
		Topology: TopologyConfig{
			Kind:    TopologyGrid,
			Spacing: 1,
			Width:   3,
			Height:  3,
			Radius:  1.5,
		},
		TraceLevel: string(trace.LevelNone),
	}
}

// LoadConfig reads a YAML trial file over DefaultConfig.
// Unknown keys are rejected so typos surface as errors.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading trial config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML bytes over DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing trial config: %w", err)
	}
	return cfg, nil
}

func positive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be a finite value > 0, got %v", name, v)
	}
	return nil
}

// Validate reports every problem with the config at once.
func (c Config) Validate() error {
	var result *multierror.Error
	add := func(err error) {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	switch c.Protocol {
	case ProtocolALOHA:
		if err := c.Wait.Validate(); err != nil {
			add(fmt.Errorf("wait: %w", err))
		}
		if c.MaxEvents < 0 {
			add(fmt.Errorf("max_events must be >= 0, got %d", c.MaxEvents))
		}
	case ProtocolSlotted:
		add(positive("slot_length", c.SlotLength))
		if c.P < 0 || c.P > 1 || math.IsNaN(c.P) {
			add(fmt.Errorf("p must be in [0, 1], got %v", c.P))
		}
	default:
		add(fmt.Errorf("unknown protocol %q; valid: %s, %s", c.Protocol, ProtocolALOHA, ProtocolSlotted))
	}

	add(positive("horizon", c.Horizon))
	add(positive("bit_rate", c.BitRate))
	if c.QueueCapacity < 0 {
		add(fmt.Errorf("queue_capacity must be >= 0, got %d", c.QueueCapacity))
	}
	if c.PacketBits <= 0 {
		add(fmt.Errorf("packet_bits must be > 0, got %d", c.PacketBits))
	}
	if c.ArrivalRate < 0 || math.IsNaN(c.ArrivalRate) || math.IsInf(c.ArrivalRate, 0) {
		add(fmt.Errorf("arrival_rate must be finite and >= 0, got %v", c.ArrivalRate))
	}
	if !trace.IsValidLevel(c.TraceLevel) {
		add(fmt.Errorf("unknown trace_level %q; valid: %s, %s", c.TraceLevel, trace.LevelNone, trace.LevelEvents))
	}

	t := c.Topology
	switch t.Kind {
	case TopologyGrid:
		add(positive("topology.spacing", t.Spacing))
	case TopologyPoisson:
		add(positive("topology.density", t.Density))
	default:
		add(fmt.Errorf("unknown topology.kind %q; valid: %s, %s", t.Kind, TopologyGrid, TopologyPoisson))
	}
	if t.Width < 0 || t.Height < 0 {
		add(fmt.Errorf("topology width and height must be >= 0, got %vx%v", t.Width, t.Height))
	}
	if t.Radius < 0 || math.IsNaN(t.Radius) {
		add(fmt.Errorf("topology.radius must be >= 0, got %v", t.Radius))
	}

	return result.ErrorOrNil()
}
