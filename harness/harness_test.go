package harness

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/cardbench/estimator"
	"github.com/weiihann/cardbench/workload"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return l
}

func smoke(t *testing.T) workload.Distribution {
	t.Helper()

	d, err := workload.Builtin("smoke")
	require.NoError(t, err)

	return d
}

func generator(t *testing.T, name string) (estimator.Family, *workload.Generator) {
	t.Helper()

	f, err := estimator.NewFamily(estimator.Config{Family: name, LgK: 10})
	require.NoError(t, err)

	return f, workload.NewGenerator(f, workload.NewSource(7), false, quietLogger())
}

// countingBench records how the driver calls it.
type countingBench struct {
	setups int
	runs   int
	resets int
	failAt int
}

func (b *countingBench) Name() string { return "counting" }

func (b *countingBench) Setup(workload.Distribution) error {
	b.setups++

	return nil
}

func (b *countingBench) Processed() int { return 3 }

func (b *countingBench) Reset() { b.resets++ }

func (b *countingBench) Run() error {
	b.runs++
	if b.failAt > 0 && b.runs == b.failAt {
		return errors.New("boom")
	}

	return nil
}

func TestDriverLifecycle(t *testing.T) {
	b := &countingBench{}
	d := NewDriver(b, nil, quietLogger())
	assert.Equal(t, Idle, d.State())

	_, err := d.RunRound(1)
	assert.ErrorIs(t, err, ErrState)

	require.NoError(t, d.Setup(smoke(t)))
	assert.Equal(t, SetUp, d.State())

	err = d.Setup(smoke(t))
	assert.ErrorIs(t, err, ErrState)

	require.NoError(t, d.WarmUp(2))
	assert.Equal(t, WarmedUp, d.State())
	assert.ErrorIs(t, d.WarmUp(2), ErrState)

	_, err = d.RunRound(2)
	require.NoError(t, err)
	assert.Equal(t, SteadyState, d.State())

	d.Reset()
	assert.Equal(t, Idle, d.State())
	assert.Equal(t, 1, b.resets)

	require.NoError(t, d.Setup(smoke(t)))
	assert.Equal(t, 2, b.setups)
}

func TestRunRoundWarmsUpFirst(t *testing.T) {
	b := &countingBench{}
	quiesced := 0
	d := NewDriver(b, func() { quiesced++ }, quietLogger())

	require.NoError(t, d.Setup(smoke(t)))

	rr, err := d.RunRound(4)
	require.NoError(t, err)

	assert.Equal(t, 1, rr.Round)
	assert.Equal(t, 4, rr.Increment)
	assert.Equal(t, 3, rr.Processed)
	assert.Equal(t, 8, b.runs)
	assert.Equal(t, 2, quiesced)
}

func TestRunRoundInvalidIncrement(t *testing.T) {
	d := NewDriver(&countingBench{}, nil, quietLogger())
	require.NoError(t, d.Setup(smoke(t)))

	_, err := d.RunRound(0)
	assert.Error(t, err)
}

func TestRunRoundPropagatesBenchmarkError(t *testing.T) {
	d := NewDriver(&countingBench{failAt: 3}, nil, quietLogger())
	require.NoError(t, d.Setup(smoke(t)))

	_, err := d.RunRound(2)
	assert.ErrorContains(t, err, "boom")
}

func TestRoundsAreIndependent(t *testing.T) {
	f, gen := generator(t, "exact")
	b := NewUnionBenchmark(f, gen)
	d := NewDriver(b, nil, quietLogger())

	dist := smoke(t)
	require.NoError(t, d.Setup(dist))

	before := make([]float64, 0, b.set.Len())
	for _, e := range b.set.Estimators {
		before = append(before, e.Estimate())
	}

	first, err := d.RunRound(5)
	require.NoError(t, err)
	firstEstimate := b.Estimate()

	second, err := d.RunRound(5)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Round)
	assert.Equal(t, 2, second.Round)
	assert.Equal(t, dist.TotalEntities(), first.Processed)
	assert.Equal(t, dist.TotalEntities(), second.Processed)
	assert.Equal(t, firstEstimate, b.Estimate())

	after := make([]float64, 0, b.set.Len())
	for _, e := range b.set.Estimators {
		after = append(after, e.Estimate())
	}

	assert.Equal(t, before, after)
}

func TestUnionOfExactMatchesDistinctValues(t *testing.T) {
	f, gen := generator(t, "exact")
	b := NewUnionBenchmark(f, gen)

	require.NoError(t, b.Setup(workload.Distribution{
		Name:   "disjoint",
		Points: []workload.SpecPoint{{Unique: 4, Population: 3}},
	}))
	require.NoError(t, b.Run())

	// Every estimator draws fresh values from the stream, so the union
	// of 3 exact sets of 4 is 12 with overwhelming probability.
	assert.Equal(t, 12.0, b.Estimate())
}

func TestSerializeBenchmark(t *testing.T) {
	_, gen := generator(t, "hll8")
	b := NewSerializeBenchmark(gen)

	assert.Error(t, b.Run())

	require.NoError(t, b.Setup(smoke(t)))
	require.NoError(t, b.Run())

	assert.Positive(t, b.Bytes())
	assert.Equal(t, 25, b.Processed())
	assert.Equal(t, 25, b.Summary().Entities)

	b.Reset()
	assert.Zero(t, b.Processed())
}

func TestUpdateBenchmark(t *testing.T) {
	_, gen := generator(t, "hll-axiom")
	b := NewUpdateBenchmark(gen)

	require.NoError(t, b.Setup(smoke(t)))
	require.NoError(t, b.Run())
	assert.Equal(t, 25, b.Processed())

	bad := workload.Distribution{Points: []workload.SpecPoint{{Unique: -1, Population: 1}}}
	assert.Error(t, b.Setup(bad))
}

func TestNewBenchmark(t *testing.T) {
	f, gen := generator(t, "bitmap")

	for _, name := range BenchmarkNames() {
		b, err := NewBenchmark(name, f, gen)
		require.NoError(t, err)
		assert.Equal(t, name, b.Name())
	}

	_, err := NewBenchmark("nope", f, gen)
	assert.ErrorIs(t, err, ErrUnknownBenchmark)
}

func TestDriverRun(t *testing.T) {
	f, gen := generator(t, "hll6")
	quiesced := 0
	d := NewDriver(NewUnionBenchmark(f, gen), func() { quiesced++ }, quietLogger())

	report, err := d.Run(context.Background(), smoke(t), Schedule{Increment: 3, Rounds: 4})
	require.NoError(t, err)

	assert.Equal(t, "union", report.Benchmark)
	assert.Equal(t, "smoke", report.Distribution)
	assert.Equal(t, 25, report.Entities)
	assert.Equal(t, 60, report.Updates)
	require.Len(t, report.Rounds, 4)
	assert.Equal(t, 5, quiesced)
	assert.LessOrEqual(t, report.P50, report.P99)
	assert.Equal(t, Idle, d.State())

	for i, rr := range report.Rounds {
		assert.Equal(t, i+1, rr.Round)
	}

	data, err := json.Marshal(report.Rounds[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"per_run_ns"`)
}

func TestDriverRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &countingBench{}
	d := NewDriver(b, nil, quietLogger())

	_, err := d.Run(ctx, smoke(t), Schedule{Increment: 1, Rounds: 3})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Idle, d.State())
	assert.Equal(t, 1, b.runs)
}

func TestDriverRunInvalidRounds(t *testing.T) {
	d := NewDriver(&countingBench{}, nil, quietLogger())

	_, err := d.Run(context.Background(), smoke(t), Schedule{Increment: 1, Rounds: 0})
	assert.Error(t, err)
}

func TestGCQuiesce(t *testing.T) {
	assert.NotPanics(t, GCQuiesce(2))
	assert.NotPanics(t, NoQuiesce)
}

func TestRoundResult(t *testing.T) {
	rr := newRoundResult("x", 1, 4, 10, 2_000_000_000)
	assert.Equal(t, int64(500_000_000), int64(rr.PerRun))
	assert.InDelta(t, 20.0, rr.Throughput, 1e-9)

	report := Report{Rounds: []RoundResult{{Throughput: 2}, {Throughput: 4}}}
	assert.InDelta(t, 3.0, report.MeanThroughput(), 1e-9)
	assert.Zero(t, Report{}.MeanThroughput())
}
