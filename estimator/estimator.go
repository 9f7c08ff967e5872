// Package estimator defines the capability set cardbench consumes from
// third-party cardinality sketches and registers one adapter per library.
package estimator

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownFamily is returned by NewFamily for unregistered names.
	ErrUnknownFamily = errors.New("unknown estimator family")

	// ErrIncompatible is returned by Merge when the two estimators come
	// from different families or configurations.
	ErrIncompatible = errors.New("incompatible estimators")
)

// Estimator is a single sketch instance. It is owned by exactly one trial or
// benchmark loop and is never shared between goroutines.
type Estimator interface {
	// Update feeds one value. Callers guarantee distinct values when they
	// want distinct-count semantics.
	Update(v uint64) error

	// Estimate returns the current cardinality estimate.
	Estimate() float64

	// Merge folds other into the receiver. other is left untouched.
	Merge(other Estimator) error

	// MarshalBinary returns the library's serialized form.
	MarshalBinary() ([]byte, error)

	// MemoryFootprint returns the in-memory size of the sketch state in
	// bytes.
	MemoryFootprint() int
}

// Compactor is implemented by estimators that can convert themselves into a
// smaller, possibly immutable representation.
type Compactor interface {
	Compact() (Estimator, error)
}

// Inspector exposes the state used for workload diagnostics.
type Inspector interface {
	RetainedEntries() int
	EstimationMode() bool
}

// Family creates estimators of one configuration.
type Family interface {
	Name() string
	New() (Estimator, error)
}

// Bounded is implemented by families whose estimates are meaningless past a
// fixed cardinality.
type Bounded interface {
	MaxCardinality() uint64
}

// Config selects a family and its size parameter.
type Config struct {
	Family string `yaml:"family" json:"family"`
	LgK    int    `yaml:"lg_k" json:"lg_k"`
}

func (c Config) String() string {
	return fmt.Sprintf("%s/lgK=%d", c.Family, c.LgK)
}

type constructor func(lgK int) (Family, error)

var registry = map[string]constructor{
	"hll-axiom": newAxiomFamily,
	"hll4":      newDataSketchesFamily(hll4),
	"hll6":      newDataSketchesFamily(hll6),
	"hll8":      newDataSketchesFamily(hll8),
	"bitmap":    newBitmapFamily,
	"exact":     newExactFamily,
}

// KnownFamilies returns the registered family names in sorted order.
func KnownFamilies() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// NewFamily resolves cfg to a Family.
func NewFamily(cfg Config) (Family, error) {
	ctor, ok := registry[cfg.Family]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownFamily, cfg.Family)
	}

	return ctor(cfg.LgK)
}

// SerializedSize returns the length of e's serialized form.
func SerializedSize(e Estimator) (int, error) {
	b, err := e.MarshalBinary()
	if err != nil {
		return 0, err
	}

	return len(b), nil
}

func checkLgK(family string, lgK, lo, hi int) error {
	if lgK < lo || lgK > hi {
		return fmt.Errorf("%s: lgK %d out of range [%d,%d]", family, lgK, lo, hi)
	}

	return nil
}

// family is the common Family implementation; adapters differ only in the
// constructor they close over.
type family struct {
	name string
	lgK  int
	make func() (Estimator, error)
}

func (f *family) Name() string { return fmt.Sprintf("%s/lgK=%d", f.name, f.lgK) }

func (f *family) New() (Estimator, error) { return f.make() }
