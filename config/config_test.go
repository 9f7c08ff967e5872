package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/cardbench/estimator"
	"github.com/weiihann/cardbench/harness"
)

const schedule = `
seed: 42
log_level: debug
gc_passes: 3
sketches:
  families: [hll4, exact, bitmap]
  lg_ks: [10, 12, 8]
bench:
  distribution: union
  benchmarks: [union, serialize]
  increment: 4
  rounds: 2
  compact: true
rse:
  max_lg_uniques: 8
  start_lg_trials: 6
  end_lg_trials: 2
  points_per_octave: 2
`

func TestLoad(t *testing.T) {
	cfg, err := Load(strings.NewReader(schedule))
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.GCPasses)
	assert.Equal(t, "union", cfg.Bench.Distribution)
	assert.Equal(t, []string{"union", "serialize"}, cfg.Bench.Benchmarks)
	assert.True(t, cfg.Bench.Compact)
	assert.Equal(t, 8, cfg.RSE.MaxLgUniques)
	assert.Equal(t, 2, cfg.RSE.PointsPerOctave)

	sketches, err := cfg.Sketches.Expand()
	require.NoError(t, err)
	assert.Equal(t, []estimator.Config{
		{Family: "hll4", LgK: 10},
		{Family: "exact", LgK: 12},
		{Family: "bitmap", LgK: 8},
	}, sketches)
}

func TestLoadEmptyUsesDefaults(t *testing.T) {
	cfg, err := Load(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, harness.DefaultGCPasses, cfg.GCPasses)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("CARDBENCH_SEED", "7")
	t.Setenv("CARDBENCH_LOG_LEVEL", "warn")
	t.Setenv("CARDBENCH_GC_PASSES", "0")

	cfg, err := Load(strings.NewReader(schedule))
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 0, cfg.GCPasses)
}

func TestEnvironmentOverrideInvalid(t *testing.T) {
	t.Setenv("CARDBENCH_GC_PASSES", "many")

	_, err := Load(strings.NewReader(""))
	assert.ErrorContains(t, err, "environment overrides")
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unknown field", "sede: 1\n", "decode config"},
		{
			"mismatched lists",
			"sketches:\n  families: [hll4, hll6]\n  lg_ks: [10]\n",
			"differ in length",
		},
		{"unknown family", "sketches:\n  families: [nope]\n  lg_ks: [10]\n", "sketch nope/lgK=10"},
		{"bad lgK", "sketches:\n  families: [hll8]\n  lg_ks: [40]\n", "lgK"},
		{"bad level", "log_level: loud\n", "log_level"},
		{"negative gc", "gc_passes: -1\n", "gc_passes"},
		{"zero rounds", "bench:\n  rounds: 0\n", "bench.rounds"},
		{"zero increment", "bench:\n  increment: 0\n", "bench.increment"},
		{"unknown benchmark", "bench:\n  benchmarks: [merge]\n", "unknown benchmark"},
		{"too few trials", "rse:\n  end_lg_trials: 0\n", "rse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.yaml")
	require.NoError(t, os.WriteFile(path, []byte(schedule), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Seed)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "open config")
}

func TestAmbientFromEnv(t *testing.T) {
	t.Setenv("CARDBENCH_LOG_LEVEL", "error")

	a, err := AmbientFromEnv(DefaultAmbient())
	require.NoError(t, err)

	assert.Equal(t, "error", a.LogLevel)
	assert.Equal(t, int64(1), a.Seed)
	assert.Equal(t, harness.DefaultGCPasses, a.GCPasses)
}

func TestAmbientLogger(t *testing.T) {
	var buf strings.Builder

	logger, err := Ambient{LogLevel: "warn"}.Logger(&buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.WithField("family", "hll8").Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "family=hll8")

	_, err = Ambient{LogLevel: "loud"}.Logger(&buf)
	assert.Error(t, err)
}
