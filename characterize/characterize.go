// Package characterize measures how an estimator family's error and update
// cost evolve with true cardinality. A sweep walks a log-spaced grid of
// cardinalities; at each point it runs independent trials on fresh
// estimators fed with values that are unique across the whole sweep.
package characterize

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/weiihann/cardbench/estimator"
)

// SweepPoint is the aggregated error at one true cardinality.
type SweepPoint struct {
	X           uint64        `json:"x"`
	Trials      int           `json:"trials"`
	Mean        float64       `json:"mean"`
	Bias        float64       `json:"bias"`
	RSE         float64       `json:"rse"`
	MemoryUsage int           `json:"memory_usage"`
	UpdateTime  time.Duration `json:"update_time_ns"`
}

// Summary totals a sweep.
type Summary struct {
	Points       int           `json:"points"`
	TotalUpdates uint64        `json:"total_updates"`
	PerUpdate    time.Duration `json:"per_update_ns"`
	Wall         time.Duration `json:"wall_ns"`
}

// Engine runs sweeps for one family. The counter is shared by every sweep the
// engine runs.
type Engine struct {
	family  estimator.Family
	counter *Counter
	logger  *logrus.Entry
}

// NewEngine creates an Engine drawing input values from counter.
func NewEngine(family estimator.Family, counter *Counter, logger *logrus.Logger) *Engine {
	return &Engine{
		family:  family,
		counter: counter,
		logger:  logger.WithField("family", family.Name()),
	}
}

// Characterize runs the RSE sweep described by o.
func (e *Engine) Characterize(ctx context.Context, o Options) ([]SweepPoint, Summary, error) {
	var (
		points  []SweepPoint
		updates uint64
		feed    time.Duration
	)

	e.logger.WithFields(logrus.Fields{
		"max_lg_uniques":    o.MaxLgUniques,
		"start_lg_trials":   o.StartLgTrials,
		"end_lg_trials":     o.EndLgTrials,
		"points_per_octave": o.PointsPerOctave,
	}).Info("starting rse sweep")

	wallStart := time.Now()

	err := e.walk(ctx, o, func(x uint64, trials int) error {
		p, elapsed, err := e.rsePoint(x, trials)
		if err != nil {
			return err
		}

		points = append(points, p)
		updates += x * uint64(trials)
		feed += elapsed

		e.logger.WithFields(logrus.Fields{
			"x":      p.X,
			"trials": p.Trials,
			"bias":   p.Bias,
			"rse":    p.RSE,
		}).Debug("sweep point")

		return nil
	})
	if err != nil {
		return nil, Summary{}, err
	}

	summary := Summary{
		Points:       len(points),
		TotalUpdates: updates,
		Wall:         time.Since(wallStart),
	}
	if updates > 0 {
		summary.PerUpdate = feed / time.Duration(updates)
	}

	e.logger.WithFields(logrus.Fields{
		"points":        summary.Points,
		"total_updates": summary.TotalUpdates,
		"wall_time":     summary.Wall,
	}).Info("rse sweep finished")

	return points, summary, nil
}

func (e *Engine) rsePoint(x uint64, trials int) (SweepPoint, time.Duration, error) {
	var (
		stats   Stats
		last    estimator.Estimator
		elapsed time.Duration
	)

	fx := float64(x)

	for t := 0; t < trials; t++ {
		est, err := e.family.New()
		if err != nil {
			return SweepPoint{}, 0, fmt.Errorf("x=%d trial %d: %w", x, t, err)
		}

		start := time.Now()

		for j := uint64(0); j < x; j++ {
			if err := est.Update(e.counter.Next()); err != nil {
				return SweepPoint{}, 0, fmt.Errorf("x=%d trial %d: update: %w", x, t, err)
			}
		}

		v := est.Estimate()
		elapsed += time.Since(start)

		stats.Add(v, fx)
		last = est
	}

	mean, bias, rse := stats.Derive(x, trials)

	return SweepPoint{
		X:           x,
		Trials:      trials,
		Mean:        mean,
		Bias:        bias,
		RSE:         rse,
		MemoryUsage: last.MemoryFootprint(),
		UpdateTime:  elapsed / time.Duration(x*uint64(trials)),
	}, elapsed, nil
}

// walk visits the surviving grid points in order: consecutive duplicate X
// values are skipped and, for bounded families, the walk stops past the
// family's ceiling. ctx is checked between points only.
func (e *Engine) walk(ctx context.Context, o Options, visit func(x uint64, trials int) error) error {
	axis, err := NewAxis(o)
	if err != nil {
		return err
	}

	ceiling, bounded := e.ceiling()
	if bounded && o.Strict && axis.X[len(axis.X)-1] > ceiling {
		return fmt.Errorf(
			"%s: sweep to x=%d exceeds the family ceiling %d",
			e.family.Name(), axis.X[len(axis.X)-1], ceiling,
		)
	}

	var prev uint64

	for i, x := range axis.X {
		if i > 0 && x == prev {
			continue
		}
		prev = x

		if bounded && x > ceiling {
			e.logger.WithFields(logrus.Fields{
				"x":       x,
				"ceiling": ceiling,
			}).Warn("sweep stopped at family ceiling")

			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if err := visit(x, axis.Trials[i]); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) ceiling() (uint64, bool) {
	b, ok := e.family.(estimator.Bounded)
	if !ok {
		return 0, false
	}

	return b.MaxCardinality(), true
}
