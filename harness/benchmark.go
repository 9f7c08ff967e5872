package harness

import (
	"errors"
	"fmt"
	"sort"

	"github.com/weiihann/cardbench/estimator"
	"github.com/weiihann/cardbench/workload"
)

// Benchmark is one repeatable operation over a generated workload. Run must
// leave the workload unchanged so rounds are independent.
type Benchmark interface {
	Name() string
	Setup(d workload.Distribution) error
	Run() error
	// Processed is the number of estimators touched by one Run.
	Processed() int
	Reset()
}

// ErrUnknownBenchmark is returned by NewBenchmark for an unregistered name.
var ErrUnknownBenchmark = errors.New("unknown benchmark")

var benchmarks = map[string]func(estimator.Family, *workload.Generator) Benchmark{
	"union":     func(f estimator.Family, g *workload.Generator) Benchmark { return NewUnionBenchmark(f, g) },
	"serialize": func(_ estimator.Family, g *workload.Generator) Benchmark { return NewSerializeBenchmark(g) },
	"update":    func(_ estimator.Family, g *workload.Generator) Benchmark { return NewUpdateBenchmark(g) },
}

// BenchmarkNames lists the registered benchmarks in sorted order.
func BenchmarkNames() []string {
	names := make([]string, 0, len(benchmarks))
	for name := range benchmarks {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// NewBenchmark returns the benchmark registered under name.
func NewBenchmark(name string, family estimator.Family, gen *workload.Generator) (Benchmark, error) {
	mk, ok := benchmarks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBenchmark, name)
	}

	return mk(family, gen), nil
}

// workloadBench holds the generated set shared by the merge and
// serialization benchmarks.
type workloadBench struct {
	gen     *workload.Generator
	set     *workload.Set
	summary workload.Summary
}

// Setup generates and shuffles the workload.
func (w *workloadBench) Setup(d workload.Distribution) error {
	set, summary, err := w.gen.Generate(d)
	if err != nil {
		return err
	}

	w.set = set
	w.summary = summary

	return nil
}

// Processed is the workload size.
func (w *workloadBench) Processed() int {
	if w.set == nil {
		return 0
	}

	return w.set.Len()
}

// Reset releases the workload.
func (w *workloadBench) Reset() {
	w.set = nil
	w.summary = workload.Summary{}
}

// Summary returns diagnostics of the current workload.
func (w *workloadBench) Summary() workload.Summary { return w.summary }

// UnionBenchmark merges every estimator of the workload into a fresh target.
type UnionBenchmark struct {
	workloadBench
	family   estimator.Family
	estimate float64
}

// NewUnionBenchmark creates a union benchmark whose targets come from family.
func NewUnionBenchmark(family estimator.Family, gen *workload.Generator) *UnionBenchmark {
	return &UnionBenchmark{workloadBench: workloadBench{gen: gen}, family: family}
}

// Name returns "union".
func (b *UnionBenchmark) Name() string { return "union" }

// Run merges the whole workload into a fresh estimator.
func (b *UnionBenchmark) Run() error {
	if b.set == nil {
		return errors.New("union: no workload")
	}

	target, err := b.family.New()
	if err != nil {
		return err
	}

	for _, e := range b.set.Estimators {
		if err := target.Merge(e); err != nil {
			return err
		}
	}

	b.estimate = target.Estimate()

	return nil
}

// Estimate is the union estimate from the last Run.
func (b *UnionBenchmark) Estimate() float64 { return b.estimate }

// SerializeBenchmark marshals every estimator of the workload.
type SerializeBenchmark struct {
	workloadBench
	bytes int
}

// NewSerializeBenchmark creates a serialization benchmark over gen's workload.
func NewSerializeBenchmark(gen *workload.Generator) *SerializeBenchmark {
	return &SerializeBenchmark{workloadBench: workloadBench{gen: gen}}
}

// Name returns "serialize".
func (b *SerializeBenchmark) Name() string { return "serialize" }

// Run marshals every estimator of the workload.
func (b *SerializeBenchmark) Run() error {
	if b.set == nil {
		return errors.New("serialize: no workload")
	}

	b.bytes = 0

	for _, e := range b.set.Estimators {
		data, err := e.MarshalBinary()
		if err != nil {
			return err
		}

		b.bytes += len(data)
	}

	return nil
}

// Bytes is the serialized size of the workload from the last Run.
func (b *SerializeBenchmark) Bytes() int { return b.bytes }

// UpdateBenchmark rebuilds the whole distribution on each Run, timing the
// update path.
type UpdateBenchmark struct {
	gen  *workload.Generator
	dist *workload.Distribution
	n    int
}

// NewUpdateBenchmark creates an update benchmark that rebuilds with gen.
func NewUpdateBenchmark(gen *workload.Generator) *UpdateBenchmark {
	return &UpdateBenchmark{gen: gen}
}

// Name returns "update".
func (b *UpdateBenchmark) Name() string { return "update" }

// Setup validates and stores the distribution to rebuild.
func (b *UpdateBenchmark) Setup(d workload.Distribution) error {
	if err := d.Validate(); err != nil {
		return err
	}

	b.dist = &d
	b.n = d.TotalEntities()

	return nil
}

// Run builds and feeds a fresh estimator for every population member.
func (b *UpdateBenchmark) Run() error {
	if b.dist == nil {
		return errors.New("update: no distribution")
	}

	_, err := b.gen.Build(*b.dist)

	return err
}

// Processed is the number of estimators one Run builds.
func (b *UpdateBenchmark) Processed() int { return b.n }

// Reset forgets the distribution.
func (b *UpdateBenchmark) Reset() {
	b.dist = nil
	b.n = 0
}
