// Package config loads a cardbench run schedule from YAML with CARDBENCH_*
// environment overrides.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/weiihann/cardbench/characterize"
	"github.com/weiihann/cardbench/estimator"
	"github.com/weiihann/cardbench/harness"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "cardbench"

// Sketches lists the estimator configurations to run. The lists are
// parallel: entry i of each describes sketch i.
type Sketches struct {
	Families []string `yaml:"families" json:"families"`
	LgKs     []int    `yaml:"lg_ks" json:"lg_ks"`
}

// Expand pairs the parallel lists into estimator configs.
func (s Sketches) Expand() ([]estimator.Config, error) {
	if len(s.Families) != len(s.LgKs) {
		return nil, fmt.Errorf(
			"sketch parameter lists differ in length: %d families, %d lg_ks",
			len(s.Families), len(s.LgKs),
		)
	}

	out := make([]estimator.Config, len(s.Families))
	for i := range s.Families {
		out[i] = estimator.Config{Family: s.Families[i], LgK: s.LgKs[i]}
	}

	return out, nil
}

// Bench configures the benchmark driver.
type Bench struct {
	Distribution string   `yaml:"distribution" json:"distribution"`
	Workload     string   `yaml:"workload" json:"workload"`
	Benchmarks   []string `yaml:"benchmarks" json:"benchmarks"`
	Increment    int      `yaml:"increment" json:"increment"`
	Rounds       int      `yaml:"rounds" json:"rounds"`
	Compact      bool     `yaml:"compact" json:"compact"`
}

// Ambient holds the settings shared by every command.
type Ambient struct {
	Seed     int64  `yaml:"seed" json:"seed" envconfig:"SEED"`
	LogLevel string `yaml:"log_level" json:"log_level" envconfig:"LOG_LEVEL"`
	GCPasses int    `yaml:"gc_passes" json:"gc_passes" envconfig:"GC_PASSES"`
}

// DefaultAmbient returns the ambient settings before any override.
func DefaultAmbient() Ambient {
	return Ambient{
		Seed:     1,
		LogLevel: "info",
		GCPasses: harness.DefaultGCPasses,
	}
}

// AmbientFromEnv applies CARDBENCH_SEED, CARDBENCH_LOG_LEVEL and
// CARDBENCH_GC_PASSES over base.
func AmbientFromEnv(base Ambient) (Ambient, error) {
	if err := envconfig.Process(EnvPrefix, &base); err != nil {
		return base, fmt.Errorf("environment overrides: %w", err)
	}

	return base, nil
}

// Logger builds the stderr text logger at the configured level.
func (a Ambient) Logger(w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(a.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return logger, nil
}

// Validate checks the ambient settings.
func (a Ambient) Validate() error {
	if _, err := logrus.ParseLevel(a.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	if a.GCPasses < 0 {
		return fmt.Errorf("gc_passes must be >= 0, got %d", a.GCPasses)
	}

	return nil
}

// Config is a full run schedule.
type Config struct {
	Ambient  `yaml:",inline"`
	Sketches Sketches             `yaml:"sketches" json:"sketches"`
	Bench    Bench                `yaml:"bench" json:"bench"`
	RSE      characterize.Options `yaml:"rse" json:"rse"`
}

// Default returns the schedule used when a field is left out.
func Default() Config {
	return Config{
		Ambient: DefaultAmbient(),
		Sketches: Sketches{
			Families: []string{"hll8"},
			LgKs:     []int{12},
		},
		Bench: Bench{
			Distribution: "smoke",
			Benchmarks:   []string{"union"},
			Increment:    10,
			Rounds:       5,
		},
		RSE: characterize.Options{
			MaxLgUniques:    16,
			StartLgTrials:   12,
			EndLgTrials:     6,
			PointsPerOctave: 4,
		},
	}
}

// Load decodes a YAML schedule over the defaults, applies environment
// overrides and validates the result.
func Load(r io.Reader) (Config, error) {
	cfg := Default()

	data, err := io.ReadAll(r)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadFile opens path and calls Load.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Validate checks everything that can be checked before a run starts.
func (c Config) Validate() error {
	if err := c.Ambient.Validate(); err != nil {
		return err
	}

	sketches, err := c.Sketches.Expand()
	if err != nil {
		return err
	}

	for _, s := range sketches {
		if _, err := estimator.NewFamily(s); err != nil {
			return fmt.Errorf("sketch %s: %w", s, err)
		}
	}

	if c.Bench.Increment < 1 {
		return fmt.Errorf("bench.increment must be >= 1, got %d", c.Bench.Increment)
	}

	if c.Bench.Rounds < 1 {
		return fmt.Errorf("bench.rounds must be >= 1, got %d", c.Bench.Rounds)
	}

	for _, name := range c.Bench.Benchmarks {
		if !knownBenchmark(name) {
			return fmt.Errorf("%w: %q", harness.ErrUnknownBenchmark, name)
		}
	}

	if _, err := characterize.NewAxis(c.RSE); err != nil {
		return fmt.Errorf("rse: %w", err)
	}

	return nil
}

func knownBenchmark(name string) bool {
	for _, n := range harness.BenchmarkNames() {
		if n == name {
			return true
		}
	}

	return false
}
