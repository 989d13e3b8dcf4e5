// Package distribution provides the random-duration generators injected into
// MAC nodes (backoff waits) and traffic sources (inter-arrival times).
// Each sampler owns its *rand.Rand so draws are reproducible per stream.
package distribution

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Distribution generates non-negative durations.
type Distribution interface {
	// Sample returns a value >= 0.
	Sample() float64
}

// Constant always returns the same value.
type Constant struct {
	Value float64
}

func (c Constant) Sample() float64 {
	return c.Value
}

// UniformSampler draws uniformly from [min, max).
type UniformSampler struct {
	rng      *rand.Rand
	min, max float64
}

// NewUniform returns a uniform sampler over [min, max).
func NewUniform(rng *rand.Rand, min, max float64) *UniformSampler {
	if rng == nil {
		panic("NewUniform: rng must not be nil")
	}
	return &UniformSampler{rng: rng, min: min, max: max}
}

func (s *UniformSampler) Sample() float64 {
	if s.min == s.max {
		return s.min
	}
	return s.min + s.rng.Float64()*(s.max-s.min)
}

// ExponentialSampler draws exponentially distributed values with the given mean.
// Used for memoryless backoff and Poisson inter-arrival times.
type ExponentialSampler struct {
	rng  *rand.Rand
	mean float64
}

// NewExponential returns an exponential sampler with the given mean.
func NewExponential(rng *rand.Rand, mean float64) *ExponentialSampler {
	if rng == nil {
		panic("NewExponential: rng must not be nil")
	}
	return &ExponentialSampler{rng: rng, mean: mean}
}

func (s *ExponentialSampler) Sample() float64 {
	return s.rng.ExpFloat64() * s.mean
}

// Mean returns the configured mean.
func (s *ExponentialSampler) Mean() float64 {
	return s.mean
}

// EmpiricalSampler samples from a discrete empirical distribution
// using inverse CDF via binary search.
type EmpiricalSampler struct {
	rng    *rand.Rand
	values []float64 // sorted support
	cdf    []float64 // cumulative probabilities (same length as values)
}

// NewEmpirical creates a sampler from a PDF map (value → weight).
// Weights are normalized; non-positive weights are skipped.
func NewEmpirical(rng *rand.Rand, pdf map[float64]float64) *EmpiricalSampler {
	if rng == nil {
		panic("NewEmpirical: rng must not be nil")
	}
	keys := make([]float64, 0, len(pdf))
	total := 0.0
	for k, w := range pdf {
		if w <= 0 || k < 0 || math.IsNaN(k) {
			continue
		}
		keys = append(keys, k)
		total += w
	}
	sort.Float64s(keys)

	cdf := make([]float64, 0, len(keys))
	cumulative := 0.0
	for _, k := range keys {
		cumulative += pdf[k] / total
		cdf = append(cdf, cumulative)
	}
	// Ensure last CDF entry is exactly 1.0
	if len(cdf) > 0 {
		cdf[len(cdf)-1] = 1.0
	}
	return &EmpiricalSampler{rng: rng, values: keys, cdf: cdf}
}

func (s *EmpiricalSampler) Sample() float64 {
	switch len(s.values) {
	case 0:
		return 0
	case 1:
		return s.values[0]
	}
	idx := sort.SearchFloat64s(s.cdf, s.rng.Float64())
	if idx >= len(s.values) {
		idx = len(s.values) - 1
	}
	return s.values[idx]
}

// Spec parameterizes a distribution in trial configuration files.
type Spec struct {
	Type   string             `yaml:"type" mapstructure:"type"`
	Params map[string]float64 `yaml:"params,omitempty" mapstructure:"params"`
}

func (s Spec) String() string {
	return fmt.Sprintf("%s%v", s.Type, s.Params)
}

// validTypes maps accepted distribution type names to their required params.
var validTypes = map[string][]string{
	"constant":    {"value"},
	"uniform":     {"min", "max"},
	"exponential": {"mean"},
	"empirical":   nil,
}

// Validate reports a malformed spec without building it.
func (s Spec) Validate() error {
	required, ok := validTypes[s.Type]
	if !ok {
		return fmt.Errorf("unknown distribution type %q", s.Type)
	}
	for _, name := range required {
		v, ok := s.Params[name]
		if !ok {
			return fmt.Errorf("%s distribution requires param %q", s.Type, name)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s distribution param %q must be finite and >= 0, got %v", s.Type, name, v)
		}
	}
	switch s.Type {
	case "uniform":
		if s.Params["min"] > s.Params["max"] {
			return fmt.Errorf("uniform distribution min %v exceeds max %v", s.Params["min"], s.Params["max"])
		}
	case "exponential":
		if s.Params["mean"] == 0 {
			return fmt.Errorf("exponential distribution mean must be > 0")
		}
	case "empirical":
		if len(s.Params) == 0 {
			return fmt.Errorf("empirical distribution requires at least one value")
		}
	}
	return nil
}

// FromSpec builds the distribution described by spec, drawing from rng.
// Empirical params are keyed by the decimal value, e.g. {"0.5": 2, "1.5": 1}.
func FromSpec(spec Spec, rng *rand.Rand) (Distribution, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	switch spec.Type {
	case "constant":
		return Constant{Value: spec.Params["value"]}, nil
	case "uniform":
		return NewUniform(rng, spec.Params["min"], spec.Params["max"]), nil
	case "exponential":
		return NewExponential(rng, spec.Params["mean"]), nil
	default:
		pdf := make(map[float64]float64, len(spec.Params))
		for k, w := range spec.Params {
			var v float64
			if _, err := fmt.Sscanf(k, "%g", &v); err != nil {
				return nil, fmt.Errorf("empirical distribution value %q: %w", k, err)
			}
			pdf[v] = w
		}
		return NewEmpirical(rng, pdf), nil
	}
}
