package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/inference-sim/macsim/sim/distribution"
	"github.com/inference-sim/macsim/sim/trial"
)

// envPrefix namespaces environment overrides, e.g. MACSIM_SEED or MACSIM_TOPOLOGY_RADIUS.
const envPrefix = "MACSIM"

// waitMeanKey is a shorthand that replaces the wait distribution with an exponential of that mean.
const waitMeanKey = "wait_mean"

// flagKeys maps trial flags to their config keys.
var flagKeys = map[string]string{
	"protocol":       "protocol",
	"seed":           "seed",
	"horizon":        "horizon",
	"max-events":     "max_events",
	"slot-length":    "slot_length",
	"p":              "p",
	"queue-capacity": "queue_capacity",
	"bit-rate":       "bit_rate",
	"packet-bits":    "packet_bits",
	"arrival-rate":   "arrival_rate",
	"echo":           "echo",
	"trace-level":    "trace_level",
	"radius":         "topology.radius",
	"wait-mean":      waitMeanKey,
}

// addTrialFlags registers the trial override flags on fs. Help defaults come
// from trial.DefaultConfig; a flag only takes effect when it is set.
func addTrialFlags(fs *pflag.FlagSet) {
	d := trial.DefaultConfig()
	fs.String("protocol", d.Protocol, "MAC protocol (aloha, slotted)")
	fs.Int64("seed", d.Seed, "Seed for every random stream in the trial")
	fs.Float64("horizon", d.Horizon, "Simulated time to run for")
	fs.Int64("max-events", d.MaxEvents, "Event budget for event-driven runs (0 = unbounded)")
	fs.Float64("slot-length", d.SlotLength, "Slot duration for slotted runs")
	fs.Float64("p", d.P, "Per-slot transmission probability for slotted runs")
	fs.Int("queue-capacity", d.QueueCapacity, "Per-node queue capacity (0 = unbounded)")
	fs.Float64("bit-rate", d.BitRate, "Channel bit rate")
	fs.Int("packet-bits", d.PacketBits, "Packet size in bits")
	fs.Float64("arrival-rate", d.ArrivalRate, "New packets per node per time unit")
	fs.Bool("echo", d.Echo, "Answer every delivered packet with a response")
	fs.String("trace-level", d.TraceLevel, "Trace verbosity (none, events)")
	fs.Float64("radius", d.Topology.Radius, "Transmission range")
	fs.Float64("wait-mean", 0, "Use an exponential wait with this mean")
}

// newViper binds the trial flags in fs and MACSIM_* environment variables.
func newViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// resolveConfig layers, lowest first: defaults, the YAML file at path (if
// any), MACSIM_* environment, and flags the user actually set.
func resolveConfig(v *viper.Viper, path string) (trial.Config, error) {
	cfg := trial.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = trial.LoadConfig(path); err != nil {
			return trial.Config{}, err
		}
	}

	// The file-or-default value outranks an unset flag's default.
	for _, key := range flagKeys {
		if key == waitMeanKey {
			continue
		}
		v.SetDefault(key, lookup(cfg, key))
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return trial.Config{}, fmt.Errorf("applying overrides: %w", err)
	}
	if v.IsSet(waitMeanKey) {
		cfg.Wait = distribution.Spec{Type: "exponential", Params: map[string]float64{"mean": v.GetFloat64(waitMeanKey)}}
	}
	return cfg, cfg.Validate()
}

func lookup(cfg trial.Config, key string) any {
	switch key {
	case "protocol":
		return cfg.Protocol
	case "seed":
		return cfg.Seed
	case "horizon":
		return cfg.Horizon
	case "max_events":
		return cfg.MaxEvents
	case "slot_length":
		return cfg.SlotLength
	case "p":
		return cfg.P
	case "queue_capacity":
		return cfg.QueueCapacity
	case "bit_rate":
		return cfg.BitRate
	case "packet_bits":
		return cfg.PacketBits
	case "arrival_rate":
		return cfg.ArrivalRate
	case "echo":
		return cfg.Echo
	case "trace_level":
		return cfg.TraceLevel
	case "topology.radius":
		return cfg.Topology.Radius
	}
	panic(fmt.Sprintf("lookup: unknown config key %q", key))
}
