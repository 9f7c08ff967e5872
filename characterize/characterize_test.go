package characterize

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/cardbench/estimator"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return l
}

func newEngine(t *testing.T, name string, lgK int) (*Engine, *Counter) {
	t.Helper()

	f, err := estimator.NewFamily(estimator.Config{Family: name, LgK: lgK})
	require.NoError(t, err)

	c := NewCounter(0)

	return NewEngine(f, c, quietLogger()), c
}

func TestNewAxis(t *testing.T) {
	axis, err := NewAxis(Options{MaxLgUniques: 4, StartLgTrials: 4, EndLgTrials: 2, PointsPerOctave: 1})
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 2, 4, 8, 16}, axis.X)
	assert.Equal(t, []int{16, 11, 8, 6, 4}, axis.Trials)
}

func TestNewAxisErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"zero ppo", Options{MaxLgUniques: 4, StartLgTrials: 4, EndLgTrials: 2}},
		{"single trial", Options{MaxLgUniques: 4, StartLgTrials: 4, EndLgTrials: 0, PointsPerOctave: 1}},
		{"negative lg", Options{MaxLgUniques: -1, StartLgTrials: 4, EndLgTrials: 2, PointsPerOctave: 1}},
		{"huge trials", Options{MaxLgUniques: 4, StartLgTrials: 31, EndLgTrials: 2, PointsPerOctave: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAxis(tt.opts)
			assert.Error(t, err)
		})
	}

	_, err := NewAxis(Options{MaxLgUniques: 4, StartLgTrials: 1, EndLgTrials: 0, PointsPerOctave: 1})
	assert.ErrorIs(t, err, ErrTooFewTrials)
}

func TestLogSpaced(t *testing.T) {
	assert.Nil(t, LogSpaced(1, 2, 0))
	assert.Equal(t, []float64{3}, LogSpaced(3, 9, 1))

	got := LogSpaced(1, 1000, 4)
	require.Len(t, got, 4)

	for i, want := range []float64{1, 10, 100, 1000} {
		assert.InEpsilon(t, want, got[i], 1e-12)
	}
}

func TestStatsDerive(t *testing.T) {
	var s Stats
	for _, err := range []float64{1, -1, 2, 0} {
		s.Add(10+err, 10)
	}

	mean, bias, rse := s.Derive(10, 4)

	assert.InDelta(t, 10.5, mean, 1e-12)
	assert.InDelta(t, 0.05, bias, 1e-12)
	assert.InDelta(t, math.Sqrt((6-0.5*2/4.0)/3)/10, rse, 1e-12)
}

func TestCounter(t *testing.T) {
	c := NewCounter(5)
	assert.Equal(t, uint64(5), c.Next())
	assert.Equal(t, uint64(6), c.Next())
	assert.Equal(t, uint64(7), c.Value())
}

func TestCharacterizeExact(t *testing.T) {
	engine, counter := newEngine(t, "exact", 0)

	points, summary, err := engine.Characterize(context.Background(), Options{
		MaxLgUniques:    4,
		StartLgTrials:   4,
		EndLgTrials:     2,
		PointsPerOctave: 1,
	})
	require.NoError(t, err)
	require.Len(t, points, 5)

	var updates uint64
	for i, p := range points {
		if i > 0 {
			assert.Greater(t, p.X, points[i-1].X)
			assert.LessOrEqual(t, p.Trials, points[i-1].Trials)
		}

		assert.Equal(t, float64(p.X), p.Mean)
		assert.Zero(t, p.Bias)
		assert.Zero(t, p.RSE)
		assert.Positive(t, p.MemoryUsage)

		updates += p.X * uint64(p.Trials)
	}

	assert.Equal(t, []uint64{1, 2, 4, 8, 16}, xs(points))
	assert.Equal(t, updates, summary.TotalUpdates)
	assert.Equal(t, updates, counter.Value(), "every update draws a fresh value")
	assert.Equal(t, 5, summary.Points)
}

func TestCharacterizeSkipsDuplicateX(t *testing.T) {
	engine, _ := newEngine(t, "exact", 0)

	points, _, err := engine.Characterize(context.Background(), Options{
		MaxLgUniques:    2,
		StartLgTrials:   3,
		EndLgTrials:     2,
		PointsPerOctave: 4,
	})
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 2, 3, 4}, xs(points))
}

func TestCharacterizeStopsAtCeiling(t *testing.T) {
	engine, _ := newEngine(t, "bitmap", 4)

	points, _, err := engine.Characterize(context.Background(), Options{
		MaxLgUniques:    10,
		StartLgTrials:   3,
		EndLgTrials:     2,
		PointsPerOctave: 1,
	})
	require.NoError(t, err)

	// ceiling is k = 16.
	assert.Equal(t, []uint64{1, 2, 4, 8, 16}, xs(points))
}

func TestCharacterizeStrictCeiling(t *testing.T) {
	engine, counter := newEngine(t, "bitmap", 4)

	_, _, err := engine.Characterize(context.Background(), Options{
		MaxLgUniques:    10,
		StartLgTrials:   3,
		EndLgTrials:     2,
		PointsPerOctave: 1,
		Strict:          true,
	})
	assert.ErrorContains(t, err, "ceiling")
	assert.Zero(t, counter.Value(), "strict check happens before any trial")
}

func TestCharacterizeCanceled(t *testing.T) {
	engine, _ := newEngine(t, "exact", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := engine.Characterize(ctx, Options{
		MaxLgUniques:    4,
		StartLgTrials:   4,
		EndLgTrials:     2,
		PointsPerOctave: 1,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCharacterizeHllBiasWithinRSE(t *testing.T) {
	engine, _ := newEngine(t, "hll8", 10)

	points, _, err := engine.Characterize(context.Background(), Options{
		MaxLgUniques:    12,
		StartLgTrials:   6,
		EndLgTrials:     5,
		PointsPerOctave: 2,
	})
	require.NoError(t, err)
	require.NotEmpty(t, points)

	for _, p := range points {
		assert.LessOrEqual(t, math.Abs(p.Bias), 3*p.RSE+0.02, "x=%d bias=%g rse=%g", p.X, p.Bias, p.RSE)
		assert.Less(t, p.RSE, 0.1, "x=%d", p.X)
	}
}

func TestSpeedProfile(t *testing.T) {
	engine, counter := newEngine(t, "exact", 0)

	points, summary, err := engine.SpeedProfile(context.Background(), Options{
		MaxLgUniques:    6,
		StartLgTrials:   3,
		EndLgTrials:     1,
		PointsPerOctave: 1,
	})
	require.NoError(t, err)
	require.Len(t, points, 7)

	var updates uint64
	for _, p := range points {
		assert.GreaterOrEqual(t, p.UpdateTime.Nanoseconds(), int64(0))
		updates += p.X * uint64(p.Trials)
	}

	assert.Equal(t, updates, summary.TotalUpdates)
	assert.Equal(t, updates, counter.Value())
}

func xs(points []SweepPoint) []uint64 {
	out := make([]uint64, len(points))
	for i, p := range points {
		out[i] = p.X
	}

	return out
}
