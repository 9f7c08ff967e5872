package estimator

import (
	"math"

	"github.com/pkg/errors"
	"github.com/willf/bitset"
)

// bitmapSketch is a linear-counting bitmap of k bits: every value sets bit
// hash(v) mod k and the estimate is -k*ln(zeros/k). It is the idealized
// bitmap the collision package models analytically.
type bitmapSketch struct {
	bits    *bitset.BitSet
	updates uint64
}

type bitmapFamily struct {
	family
	k uint
}

func newBitmapFamily(lgK int) (Family, error) {
	if err := checkLgK("bitmap", lgK, 4, 26); err != nil {
		return nil, err
	}

	k := uint(1) << uint(lgK)
	f := &bitmapFamily{k: k}
	f.family = family{
		name: "bitmap",
		lgK:  lgK,
		make: func() (Estimator, error) {
			return &bitmapSketch{bits: bitset.New(k)}, nil
		},
	}

	return f, nil
}

// MaxCardinality is k, a load factor of one. Beyond it the chance of a fully
// set map, and an infinite estimate, stops being negligible for small k.
func (f *bitmapFamily) MaxCardinality() uint64 {
	return uint64(f.k)
}

func (b *bitmapSketch) Update(v uint64) error {
	b.bits.Set(uint(hash64(v) % uint64(b.bits.Len())))
	b.updates++

	return nil
}

func (b *bitmapSketch) Estimate() float64 {
	k := float64(b.bits.Len())
	zeros := k - float64(b.bits.Count())

	if zeros == 0 {
		return math.Inf(1)
	}

	return -k * math.Log(zeros/k)
}

func (b *bitmapSketch) Merge(other Estimator) error {
	o, ok := other.(*bitmapSketch)
	if !ok || o.bits.Len() != b.bits.Len() {
		return errors.Wrapf(ErrIncompatible, "bitmap merge with %T", other)
	}

	b.bits.InPlaceUnion(o.bits)
	b.updates += o.updates

	return nil
}

func (b *bitmapSketch) MarshalBinary() ([]byte, error) {
	data, err := b.bits.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "marshal bitmap")
	}

	return data, nil
}

func (b *bitmapSketch) MemoryFootprint() int {
	return int((b.bits.Len() + 63) / 64 * 8)
}

func (b *bitmapSketch) RetainedEntries() int {
	return int(b.bits.Count())
}

// EstimationMode reports whether at least one collision has happened, after
// which the set-bit count no longer equals the number of distinct updates.
func (b *bitmapSketch) EstimationMode() bool {
	return uint64(b.bits.Count()) != b.updates
}
