package estimator

import (
	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/pkg/errors"
)

// exactSet counts distinct values exactly with a 64-bit roaring bitmap. It is
// the zero-error baseline for the characterization engine.
type exactSet struct {
	rb *roaring64.Bitmap
}

func newExactFamily(lgK int) (Family, error) {
	return &family{
		name: "exact",
		lgK:  lgK,
		make: func() (Estimator, error) {
			return &exactSet{rb: roaring64.New()}, nil
		},
	}, nil
}

func (e *exactSet) Update(v uint64) error {
	e.rb.Add(v)

	return nil
}

func (e *exactSet) Estimate() float64 {
	return float64(e.rb.GetCardinality())
}

func (e *exactSet) Merge(other Estimator) error {
	o, ok := other.(*exactSet)
	if !ok {
		return errors.Wrapf(ErrIncompatible, "exact merge with %T", other)
	}

	e.rb.Or(o.rb)

	return nil
}

func (e *exactSet) MarshalBinary() ([]byte, error) {
	data, err := e.rb.ToBytes()
	if err != nil {
		return nil, errors.Wrap(err, "marshal roaring bitmap")
	}

	return data, nil
}

func (e *exactSet) MemoryFootprint() int {
	return int(e.rb.GetSizeInBytes())
}

// Compact returns a run-optimized copy.
func (e *exactSet) Compact() (Estimator, error) {
	rb := e.rb.Clone()
	rb.RunOptimize()

	return &exactSet{rb: rb}, nil
}

func (e *exactSet) RetainedEntries() int {
	return int(e.rb.GetCardinality())
}

func (e *exactSet) EstimationMode() bool { return false }
