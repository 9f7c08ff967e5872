package harness

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/sirupsen/logrus"

	"github.com/weiihann/cardbench/workload"
)

// State is the driver lifecycle position.
type State int

const (
	Idle State = iota
	SetUp
	WarmedUp
	SteadyState
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SetUp:
		return "setup"
	case WarmedUp:
		return "warmup"
	case SteadyState:
		return "steady"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrState is returned when a driver call does not fit the lifecycle.
var ErrState = errors.New("invalid driver state")

// DefaultGCPasses is how many collections GCQuiesce requests between rounds.
const DefaultGCPasses = 10

// GCQuiesce returns a hook that runs a blocking garbage collection passes
// times, so a collection pause is unlikely to land inside the next timed
// round.
func GCQuiesce(passes int) func() {
	return func() {
		for i := 0; i < passes; i++ {
			runtime.GC()
		}
	}
}

// NoQuiesce is a no-op hook.
func NoQuiesce() {}

// Driver moves one Benchmark through Idle -> SetUp -> WarmedUp ->
// SteadyState and times its rounds. The timed region is single-goroutine.
type Driver struct {
	bench   Benchmark
	quiesce func()
	logger  *logrus.Entry
	state   State
	round   int
}

// NewDriver creates a Driver. A nil quiesce hook means NoQuiesce.
func NewDriver(bench Benchmark, quiesce func(), logger *logrus.Logger) *Driver {
	if quiesce == nil {
		quiesce = NoQuiesce
	}

	return &Driver{
		bench:   bench,
		quiesce: quiesce,
		logger:  logger.WithField("benchmark", bench.Name()),
	}
}

// State returns the current lifecycle state.
func (d *Driver) State() State { return d.state }

// Setup builds the benchmark's workload. It is valid only from Idle, so a
// second Setup needs a Reset first.
func (d *Driver) Setup(dist workload.Distribution) error {
	if d.state != Idle {
		return fmt.Errorf("%w: setup in state %s", ErrState, d.state)
	}

	if err := d.bench.Setup(dist); err != nil {
		return fmt.Errorf("setup %s: %w", d.bench.Name(), err)
	}

	d.state = SetUp
	d.round = 0

	return nil
}

// WarmUp runs one untimed round of increment repetitions.
func (d *Driver) WarmUp(increment int) error {
	if d.state != SetUp {
		return fmt.Errorf("%w: warm-up in state %s", ErrState, d.state)
	}

	if _, err := d.timeRound(increment); err != nil {
		return fmt.Errorf("warm-up: %w", err)
	}

	d.state = WarmedUp

	return nil
}

// RunRound times increment repetitions of the benchmark. A driver that has
// not warmed up yet warms up first.
func (d *Driver) RunRound(increment int) (RoundResult, error) {
	switch d.state {
	case Idle:
		return RoundResult{}, fmt.Errorf("%w: round before setup", ErrState)
	case SetUp:
		if err := d.WarmUp(increment); err != nil {
			return RoundResult{}, err
		}
	}

	elapsed, err := d.timeRound(increment)
	if err != nil {
		return RoundResult{}, fmt.Errorf("round %d: %w", d.round+1, err)
	}

	d.state = SteadyState
	d.round++

	rr := newRoundResult(d.bench.Name(), d.round, increment, d.bench.Processed(), elapsed)

	d.logger.WithFields(logrus.Fields{
		"round":      rr.Round,
		"elapsed":    rr.Elapsed,
		"per_run":    rr.PerRun,
		"throughput": fmt.Sprintf("%.0f", rr.Throughput),
	}).Debug("round finished")

	return rr, nil
}

func (d *Driver) timeRound(increment int) (time.Duration, error) {
	if increment < 1 {
		return 0, fmt.Errorf("increment must be >= 1, got %d", increment)
	}

	d.quiesce()

	start := time.Now()

	for i := 0; i < increment; i++ {
		if err := d.bench.Run(); err != nil {
			return 0, err
		}
	}

	return time.Since(start), nil
}

// Reset releases the workload and returns the driver to Idle.
func (d *Driver) Reset() {
	d.bench.Reset()
	d.state = Idle
	d.round = 0
}

// Schedule describes a full benchmark run.
type Schedule struct {
	Increment int
	Rounds    int
}

// Run performs setup, warm-up and sched.Rounds measured rounds, then resets.
// ctx is checked between rounds only.
func (d *Driver) Run(ctx context.Context, dist workload.Distribution, sched Schedule) (Report, error) {
	if sched.Rounds < 1 {
		return Report{}, fmt.Errorf("rounds must be >= 1, got %d", sched.Rounds)
	}

	wallStart := time.Now()

	if err := d.Setup(dist); err != nil {
		return Report{}, err
	}
	defer d.Reset()

	if err := d.WarmUp(sched.Increment); err != nil {
		return Report{}, err
	}

	latency, err := ddsketch.NewDefaultDDSketch(0.01)
	if err != nil {
		return Report{}, fmt.Errorf("latency sketch: %w", err)
	}

	report := Report{
		Benchmark:    d.bench.Name(),
		Distribution: dist.Name,
		Entities:     dist.TotalEntities(),
		Updates:      dist.TotalUpdates(),
		Rounds:       make([]RoundResult, 0, sched.Rounds),
	}

	for i := 0; i < sched.Rounds; i++ {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}

		rr, err := d.RunRound(sched.Increment)
		if err != nil {
			return Report{}, err
		}

		if err := latency.Add(float64(rr.PerRun)); err != nil {
			return Report{}, fmt.Errorf("record latency: %w", err)
		}

		report.Rounds = append(report.Rounds, rr)
	}

	report.P50 = quantile(latency, 0.5)
	report.P90 = quantile(latency, 0.9)
	report.P99 = quantile(latency, 0.99)
	report.Wall = time.Since(wallStart)

	d.logger.WithFields(logrus.Fields{
		"distribution": dist.Name,
		"rounds":       len(report.Rounds),
		"p50_per_run":  report.P50,
		"p99_per_run":  report.P99,
		"wall_time":    report.Wall,
	}).Info("benchmark finished")

	return report, nil
}

func quantile(sk *ddsketch.DDSketch, q float64) time.Duration {
	v, err := sk.GetValueAtQuantile(q)
	if err != nil {
		return 0
	}

	return time.Duration(v)
}
