// Package config loads runtime tuning knobs for an embedding host,
// mirroring the teacher's internal/config package: a YAML-tagged struct
// with a Default constructor and a single Load entry point.
package config

import (
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config holds the knobs an embedding host may want to tune without
// recompiling: stack depth, GC cadence, and logging verbosity.
type Config struct {
	// MaxStack bounds the evaluator's explicit state-stack depth before
	// it raises a stack-overflow EvalError instead of growing forever.
	MaxStack int `yaml:"max_stack"`

	// GCPopulationThreshold is the minimum live-object count before
	// ShouldCollect ever returns true.
	GCPopulationThreshold int `yaml:"gc_population_threshold"`

	// GCGrowthFactor is loaded from configuration but not read by the
	// collector: heap.ShouldCollect uses a fixed multiple of 2 relative to
	// the count right after the last collection.
	GCGrowthFactor float64 `yaml:"gc_growth_factor"`

	// LogLevel is a zapcore.Level name ("debug", "info", "warn", "error").
	LogLevel string `yaml:"log_level"`
}

// Default returns the out-of-the-box tuning: a 500-frame stack bound
// (the reference implementation's own default), and a GC heuristic that
// only starts paying attention once a program has allocated a few
// thousand objects.
func Default() *Config {
	return &Config{
		MaxStack:              500,
		GCPopulationThreshold: 4096,
		GCGrowthFactor:        2.0,
		LogLevel:              "info",
	}
}

// Load reads a YAML config file, filling in defaults for anything the
// file omits.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SessionID mints a fresh session identifier for a Program, used in log
// fields and in EvalError traces to correlate a single evaluation run's
// output, the same role uuid plays for session identity in the teacher.
func SessionID() string {
	return uuid.NewString()
}
