// Package collision computes the probability that n uniformly random
// insertions into a k-bit map land on n distinct bits, and from it the
// cardinality at which an idealized bitmap sketch starts to lose count at
// each standard-normal quantile. The resulting curve is compared against
// the characterize package's empirical error curve.
package collision

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// MinKappa and MaxKappa bound the standard deviations CrossesAt accepts.
const (
	MinKappa = -3
	MaxKappa = 3
)

// ErrKappaRange is returned for kappa outside [MinKappa, MaxKappa].
var ErrKappaRange = errors.New("kappa out of range")

// thresholds[kappa-MinKappa] is the standard normal CDF at kappa.
var thresholds = func() [MaxKappa - MinKappa + 1]float64 {
	var t [MaxKappa - MinKappa + 1]float64
	for kappa := MinKappa; kappa <= MaxKappa; kappa++ {
		t[kappa-MinKappa] = distuv.UnitNormal.CDF(float64(kappa))
	}

	return t
}()

// Threshold returns the normal CDF value CrossesAt compares against.
func Threshold(kappa int) (float64, error) {
	if kappa < MinKappa || kappa > MaxKappa {
		return 0, fmt.Errorf("%w: %d not in [%d,%d]", ErrKappaRange, kappa, MinKappa, MaxKappa)
	}

	return thresholds[kappa-MinKappa], nil
}

// ProbNoCollision returns P(C = n) = k! / (k^n (k-n)!), the probability that
// n insertions into k slots all hit distinct slots. It is evaluated in log
// space.
func ProbNoCollision(k, n uint64) float64 {
	switch {
	case n > k:
		return 0
	case n <= 1:
		return 1
	}

	return math.Exp(LogFactorial(k) - float64(n)*math.Log(float64(k)) - LogFactorial(k-n))
}

// Crossing is the first n at which the collision probability reaches the
// quantile for Kappa.
type Crossing struct {
	Kappa  int     `json:"kappa"`
	K      uint64  `json:"k"`
	N      uint64  `json:"n"`
	Prob   float64 `json:"prob"`
	RelErr float64 `json:"rel_err"`
}

// CrossesAt walks n = 1, 2, ... over a bitmap of kFactor*k bits until
// 1 - P(C = n) reaches the normal CDF at kappa. RelErr is -1/n: at the
// crossing the bitmap has, to first order, lost one count out of n.
func CrossesAt(kappa int, k, kFactor uint64) (Crossing, error) {
	target, err := Threshold(kappa)
	if err != nil {
		return Crossing{}, err
	}

	if k == 0 || kFactor == 0 {
		return Crossing{}, fmt.Errorf("bitmap size must be positive (k=%d, kFactor=%d)", k, kFactor)
	}

	if k > math.MaxUint64/kFactor {
		return Crossing{}, fmt.Errorf("bitmap size k=%d * kFactor=%d overflows", k, kFactor)
	}

	size := k * kFactor
	if size >= maxTrusted {
		return Crossing{}, fmt.Errorf("bitmap size %d beyond the log-factorial range", size)
	}

	// ProbNoCollision(size, size+1) is 0, so the loop always returns.
	for n := uint64(1); ; n++ {
		prob := 1 - ProbNoCollision(size, n)
		if prob >= target {
			return Crossing{
				Kappa:  kappa,
				K:      size,
				N:      n,
				Prob:   prob,
				RelErr: -1 / float64(n),
			}, nil
		}
	}
}

// Curve returns CrossesAt for every kappa and every k = 2^lgK with lgK in
// [lgKLo, lgKHi], ordered by k then kappa.
func Curve(lgKLo, lgKHi int, kFactor uint64) ([]Crossing, error) {
	if lgKLo < 0 || lgKHi < lgKLo || lgKHi > 40 {
		return nil, fmt.Errorf("invalid lgK range [%d,%d]", lgKLo, lgKHi)
	}

	out := make([]Crossing, 0, (lgKHi-lgKLo+1)*(MaxKappa-MinKappa+1))

	for lgK := lgKLo; lgK <= lgKHi; lgK++ {
		for kappa := MinKappa; kappa <= MaxKappa; kappa++ {
			c, err := CrossesAt(kappa, uint64(1)<<uint(lgK), kFactor)
			if err != nil {
				return nil, err
			}

			out = append(out, c)
		}
	}

	return out, nil
}
