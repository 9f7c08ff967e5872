package estimator

import (
	"math"

	"github.com/apache/datasketches-go/hll"
	"github.com/pkg/errors"
)

const (
	hll4 = "hll4"
	hll6 = "hll6"
	hll8 = "hll8"
)

var tgtTypes = map[string]hll.TgtHllType{
	hll4: hll.TgtHllTypeHll4,
	hll6: hll.TgtHllTypeHll6,
	hll8: hll.TgtHllTypeHll8,
}

// hllMode is the library's current-mode value for a full register array,
// after the LIST and SET warm-up modes.
const hllMode = 2

// dsSketch adapts the Apache DataSketches HLL sketch. The first Merge turns
// the sketch into an hll.Union that absorbs every later source; reads
// materialize the union's result in the configured target type.
type dsSketch struct {
	sketch  hll.HllSketch
	union   hll.Union
	lgK     int
	tgt     hll.TgtHllType
	compact bool
}

func newDataSketchesFamily(name string) constructor {
	return func(lgK int) (Family, error) {
		if err := checkLgK(name, lgK, 4, 21); err != nil {
			return nil, err
		}

		tgt := tgtTypes[name]

		return &family{
			name: name,
			lgK:  lgK,
			make: func() (Estimator, error) {
				sk, err := hll.NewHllSketch(lgK, tgt)
				if err != nil {
					return nil, errors.Wrapf(err, "new %s sketch", name)
				}

				return &dsSketch{sketch: sk, lgK: lgK, tgt: tgt}, nil
			},
		}, nil
	}
}

func (d *dsSketch) Update(v uint64) error {
	if d.compact {
		return errors.New("update on compacted hll sketch")
	}

	if d.union != nil {
		return d.union.UpdateInt64(int64(v))
	}

	return d.sketch.UpdateInt64(int64(v))
}

// result returns the current state as a sketch of the target type.
func (d *dsSketch) result() (hll.HllSketch, error) {
	if d.union == nil {
		return d.sketch, nil
	}

	sk, err := d.union.GetResult(d.tgt)
	if err != nil {
		return nil, errors.Wrap(err, "union result")
	}

	return sk, nil
}

func (d *dsSketch) Estimate() float64 {
	sk, err := d.result()
	if err != nil {
		return 0
	}

	est, err := sk.GetEstimate()
	if err != nil {
		return 0
	}

	return est
}

func (d *dsSketch) Merge(other Estimator) error {
	o, ok := other.(*dsSketch)
	if !ok || o.tgt != d.tgt {
		return errors.Wrapf(ErrIncompatible, "hll merge with %T", other)
	}

	if d.union == nil {
		union, err := hll.NewUnion(d.lgK)
		if err != nil {
			return errors.Wrap(err, "new hll union")
		}

		if err := union.UpdateSketch(d.sketch); err != nil {
			return errors.Wrap(err, "union update target")
		}

		d.union = union
		d.sketch = nil
		d.compact = false
	}

	src, err := o.result()
	if err != nil {
		return err
	}

	return errors.Wrap(d.union.UpdateSketch(src), "union update source")
}

func (d *dsSketch) MarshalBinary() ([]byte, error) {
	sk, err := d.result()
	if err != nil {
		return nil, err
	}

	return sk.ToCompactSlice()
}

func (d *dsSketch) MemoryFootprint() int {
	sk, err := d.result()
	if err != nil {
		return 0
	}

	return sk.GetUpdatableSerializationBytes()
}

// RetainedEntries is the register count once the sketch holds a full array,
// and the coupon count, which the estimate reproduces, during warm-up.
func (d *dsSketch) RetainedEntries() int {
	sk, err := d.result()
	if err != nil || sk.IsEmpty() {
		return 0
	}

	if sk.GetCurMode() == hllMode {
		return 1 << sk.GetLgConfigK()
	}

	est, err := sk.GetEstimate()
	if err != nil {
		return 0
	}

	return int(math.Round(est))
}

// EstimationMode reports whether the sketch has left the exact coupon modes.
func (d *dsSketch) EstimationMode() bool {
	sk, err := d.result()
	if err != nil {
		return false
	}

	return sk.GetCurMode() == hllMode
}

// Compact rebuilds the sketch from its compact serialization. The result
// rejects further updates.
func (d *dsSketch) Compact() (Estimator, error) {
	b, err := d.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "compact slice")
	}

	sk, err := hll.NewHllSketchFromSlice(b, true)
	if err != nil {
		return nil, errors.Wrap(err, "heapify compact slice")
	}

	return &dsSketch{sketch: sk, lgK: d.lgK, tgt: d.tgt, compact: true}, nil
}
