package characterize

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// SpeedPoint is the mean update cost at one cardinality.
type SpeedPoint struct {
	X          uint64        `json:"x"`
	Trials     int           `json:"trials"`
	UpdateTime time.Duration `json:"update_time_ns"`
	NewTime    time.Duration `json:"new_time_ns"`
}

// SpeedProfile walks the same grid as Characterize but reports the mean time
// per update, and the mean time to construct an estimator, instead of error
// statistics.
func (e *Engine) SpeedProfile(ctx context.Context, o Options) ([]SpeedPoint, Summary, error) {
	var (
		points  []SpeedPoint
		updates uint64
		feed    time.Duration
	)

	wallStart := time.Now()

	err := e.walk(ctx, o, func(x uint64, trials int) error {
		var newTime, updTime time.Duration

		for t := 0; t < trials; t++ {
			start := time.Now()

			est, err := e.family.New()
			if err != nil {
				return fmt.Errorf("x=%d trial %d: %w", x, t, err)
			}

			built := time.Now()

			for j := uint64(0); j < x; j++ {
				if err := est.Update(e.counter.Next()); err != nil {
					return fmt.Errorf("x=%d trial %d: update: %w", x, t, err)
				}
			}

			newTime += built.Sub(start)
			updTime += time.Since(built)
		}

		n := x * uint64(trials)
		points = append(points, SpeedPoint{
			X:          x,
			Trials:     trials,
			UpdateTime: updTime / time.Duration(n),
			NewTime:    newTime / time.Duration(trials),
		})

		updates += n
		feed += updTime

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
		"per_update":    summary.PerUpdate,
	}).Info("speed profile finished")

	return points, summary, nil
}
