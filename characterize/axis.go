package characterize

import (
	"errors"
	"fmt"
	"math"
)

// ErrTooFewTrials is returned when a sweep would compute a variance from
// fewer than two trials.
var ErrTooFewTrials = errors.New("every sweep point needs at least 2 trials")

// Options configures a sweep.
type Options struct {
	MaxLgUniques    int  `yaml:"max_lg_uniques" json:"max_lg_uniques"`
	StartLgTrials   int  `yaml:"start_lg_trials" json:"start_lg_trials"`
	EndLgTrials     int  `yaml:"end_lg_trials" json:"end_lg_trials"`
	PointsPerOctave int  `yaml:"points_per_octave" json:"points_per_octave"`
	Strict          bool `yaml:"strict" json:"strict"`
}

// Axis holds the X and trial-count grids walked in lockstep.
type Axis struct {
	X      []uint64
	Trials []int
}

// NewAxis builds PointsPerOctave*MaxLgUniques+1 log-spaced X values from 1 to
// 2^MaxLgUniques and a parallel trial axis from 2^StartLgTrials to
// 2^EndLgTrials.
func NewAxis(o Options) (Axis, error) {
	if o.PointsPerOctave < 1 {
		return Axis{}, fmt.Errorf("points per octave must be >= 1, got %d", o.PointsPerOctave)
	}

	if o.MaxLgUniques < 0 || o.MaxLgUniques > 40 {
		return Axis{}, fmt.Errorf("max lg uniques %d out of range [0,40]", o.MaxLgUniques)
	}

	if o.StartLgTrials < 0 || o.EndLgTrials < 0 || o.StartLgTrials > 30 || o.EndLgTrials > 30 {
		return Axis{}, fmt.Errorf(
			"lg trials out of range [0,30]: start=%d end=%d",
			o.StartLgTrials, o.EndLgTrials,
		)
	}

	n := o.PointsPerOctave*o.MaxLgUniques + 1

	xs := LogSpaced(1, math.Exp2(float64(o.MaxLgUniques)), n)
	ts := LogSpaced(math.Exp2(float64(o.StartLgTrials)), math.Exp2(float64(o.EndLgTrials)), n)

	axis := Axis{X: make([]uint64, n), Trials: make([]int, n)}

	for i := 0; i < n; i++ {
		axis.X[i] = uint64(math.Round(xs[i]))
		axis.Trials[i] = int(math.Round(ts[i]))

		if axis.Trials[i] < 2 {
			return Axis{}, fmt.Errorf("%w: point %d has %d", ErrTooFewTrials, i, axis.Trials[i])
		}
	}

	return axis, nil
}

// LogSpaced returns n values evenly spaced on a log scale from lo to hi
// inclusive. lo and hi must be positive.
func LogSpaced(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}

	out := make([]float64, n)
	if n == 1 {
		out[0] = lo

		return out
	}

	lgLo, lgHi := math.Log2(lo), math.Log2(hi)
	step := (lgHi - lgLo) / float64(n-1)

	for i := range out {
		out[i] = math.Exp2(lgLo + step*float64(i))
	}

	out[n-1] = hi

	return out
}
