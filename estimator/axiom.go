package estimator

import (
	"encoding/binary"

	"github.com/axiomhq/hyperloglog"
	"github.com/pkg/errors"
)

// axiomSketch adapts github.com/axiomhq/hyperloglog (HLL-TC with a sparse
// representation for small cardinalities).
type axiomSketch struct {
	sk  *hyperloglog.Sketch
	buf [8]byte
}

func newAxiomFamily(lgK int) (Family, error) {
	if err := checkLgK("hll-axiom", lgK, 4, 18); err != nil {
		return nil, err
	}

	return &family{
		name: "hll-axiom",
		lgK:  lgK,
		make: func() (Estimator, error) {
			sk, err := hyperloglog.NewSketch(uint8(lgK), true)
			if err != nil {
				return nil, errors.Wrap(err, "new axiom sketch")
			}

			return &axiomSketch{sk: sk}, nil
		},
	}, nil
}

func (a *axiomSketch) Update(v uint64) error {
	binary.LittleEndian.PutUint64(a.buf[:], v)
	a.sk.Insert(a.buf[:])

	return nil
}

func (a *axiomSketch) Estimate() float64 {
	return float64(a.sk.Estimate())
}

func (a *axiomSketch) Merge(other Estimator) error {
	o, ok := other.(*axiomSketch)
	if !ok {
		return errors.Wrapf(ErrIncompatible, "hll-axiom merge with %T", other)
	}

	return errors.Wrap(a.sk.Merge(o.sk), "axiom merge")
}

func (a *axiomSketch) MarshalBinary() ([]byte, error) {
	return a.sk.MarshalBinary()
}

// MemoryFootprint reports the serialized size; the library does not expose
// its register layout.
func (a *axiomSketch) MemoryFootprint() int {
	b, err := a.sk.MarshalBinary()
	if err != nil {
		return 0
	}

	return len(b)
}

// inspect reads the representation from the library's serialized header:
// byte 3 flags the sparse form, followed in sparse form by the temporary set
// size, its 4-byte keys and the sparse list count, and in dense form by the
// register count.
func (a *axiomSketch) inspect() (retained int, dense bool) {
	b, err := a.sk.MarshalBinary()
	if err != nil || len(b) < 8 {
		return 0, false
	}

	if b[3] == 0 {
		return int(binary.BigEndian.Uint32(b[4:8])), true
	}

	tmp := int(binary.BigEndian.Uint32(b[4:8]))

	off := 8 + 4*tmp
	if len(b) < off+4 {
		return tmp, false
	}

	return tmp + int(binary.BigEndian.Uint32(b[off:off+4])), false
}

// RetainedEntries is the register count in dense form and the number of
// buffered and sparse-listed hashes in sparse form.
func (a *axiomSketch) RetainedEntries() int {
	retained, _ := a.inspect()

	return retained
}

// EstimationMode reports whether the sketch has switched to dense registers.
func (a *axiomSketch) EstimationMode() bool {
	_, dense := a.inspect()

	return dense
}
