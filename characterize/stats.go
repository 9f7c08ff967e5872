package characterize

import "math"

// Counter hands out values that are never repeated for the lifetime of a
// sweep, so trials never share an input even though they never share state.
type Counter struct {
	next uint64
}

// NewCounter returns a Counter starting at start.
func NewCounter(start uint64) *Counter {
	return &Counter{next: start}
}

// Next returns the next unused value.
func (c *Counter) Next() uint64 {
	v := c.next
	c.next++

	return v
}

// Value returns the next value Next would return.
func (c *Counter) Value() uint64 { return c.next }

// Stats accumulates estimator error at one sweep point.
type Stats struct {
	Sum      float64
	SumErr   float64
	SumErrSq float64
}

// Add folds one trial's estimate for true cardinality x.
func (s *Stats) Add(estimate, x float64) {
	err := estimate - x
	s.Sum += estimate
	s.SumErr += err
	s.SumErrSq += err * err
}

// Derive returns mean, bias and RSE for trials observations at x. trials
// must be at least 2.
//
// varErr keeps the historical expression (sumErrSq - meanErr*sumErr/trials)
// / (trials-1); published curves were produced with exactly this sequence of
// floating-point operations.
func (s Stats) Derive(x uint64, trials int) (mean, bias, rse float64) {
	n := float64(trials)
	fx := float64(x)

	mean = s.Sum / n
	meanErr := s.SumErr / n
	varErr := (s.SumErrSq - meanErr*s.SumErr/n) / (n - 1)

	rse = math.Sqrt(varErr) / fx
	bias = mean/fx - 1

	return mean, bias, rse
}
