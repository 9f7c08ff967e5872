// Package workload builds the estimator populations that benchmarks run
// against. A Distribution describes how many estimators receive how many
// distinct values; the Generator materializes it with a seeded random stream.
package workload

import (
	"fmt"
	"math/rand"

	"github.com/golang/snappy"
	"github.com/sirupsen/logrus"

	"github.com/weiihann/cardbench/estimator"
)

// Source is the random stream consumed by the Generator. *rand.Rand
// satisfies it.
type Source interface {
	Uint64() uint64
	Shuffle(n int, swap func(i, j int))
}

// NewSource returns a deterministic Source for seed.
func NewSource(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Set is a generated population of estimators.
type Set struct {
	Estimators []estimator.Estimator
	Updates    int
}

// Len returns the number of estimators.
func (s *Set) Len() int { return len(s.Estimators) }

// Summary holds diagnostics about a generated Set.
type Summary struct {
	Entities               int     `json:"entities"`
	Updates                int     `json:"updates"`
	Inspected              int     `json:"inspected"`
	MeanRetained           float64 `json:"mean_retained"`
	EstimationModeFraction float64 `json:"estimation_mode_fraction"`
	MeanSerializedBytes    float64 `json:"mean_serialized_bytes"`
	MeanCompressedBytes    float64 `json:"mean_compressed_bytes"`
}

// InspectorStat formats an Inspector-derived average, or "n/a" when no
// estimator in the set could be inspected.
func (s Summary) InspectorStat(format string, v float64) string {
	if s.Inspected == 0 {
		return "n/a"
	}

	return fmt.Sprintf(format, v)
}

// Generator materializes Distributions into estimator populations.
type Generator struct {
	family  estimator.Family
	src     Source
	compact bool
	logger  *logrus.Entry
}

// NewGenerator creates a Generator. Compaction is applied only to
// estimators implementing estimator.Compactor.
func NewGenerator(
	family estimator.Family,
	src Source,
	compact bool,
	logger *logrus.Logger,
) *Generator {
	return &Generator{
		family:  family,
		src:     src,
		compact: compact,
		logger:  logger.WithField("family", family.Name()),
	}
}

// Build creates one estimator per population member in distribution order
// without shuffling.
func (g *Generator) Build(d Distribution) (*Set, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	set := &Set{Estimators: make([]estimator.Estimator, 0, d.TotalEntities())}

	for _, p := range d.Points {
		for i := 0; i < p.Population; i++ {
			e, err := g.build(p.Unique)
			if err != nil {
				return nil, fmt.Errorf("build unique=%d: %w", p.Unique, err)
			}

			set.Estimators = append(set.Estimators, e)
			set.Updates += p.Unique
		}
	}

	return set, nil
}

func (g *Generator) build(unique int) (estimator.Estimator, error) {
	e, err := g.family.New()
	if err != nil {
		return nil, err
	}

	// The stream is 64-bit uniform; collisions are ignored.
	for j := 0; j < unique; j++ {
		if err := e.Update(g.src.Uint64()); err != nil {
			return nil, err
		}
	}

	if !g.compact {
		return e, nil
	}

	c, ok := e.(estimator.Compactor)
	if !ok {
		return e, nil
	}

	return c.Compact()
}

// Generate builds the population, shuffles it with the same source so access
// order is independent of generation order, and logs diagnostics.
func (g *Generator) Generate(d Distribution) (*Set, Summary, error) {
	set, err := g.Build(d)
	if err != nil {
		return nil, Summary{}, err
	}

	Shuffle(set.Estimators, g.src)

	summary := Summarize(set)

	g.logger.WithFields(logrus.Fields{
		"distribution":    d.Name,
		"entities":        summary.Entities,
		"updates":         summary.Updates,
		"mean_retained":   summary.InspectorStat("%.2f", summary.MeanRetained),
		"estimation_mode": summary.InspectorStat("%.3f", summary.EstimationModeFraction),
		"mean_serialized": fmt.Sprintf("%.1f", summary.MeanSerializedBytes),
		"mean_compressed": fmt.Sprintf("%.1f", summary.MeanCompressedBytes),
		"compact":         g.compact,
	}).Info("workload generated")

	return set, summary, nil
}

// Shuffle permutes s in place with src.
func Shuffle[T any](s []T, src Source) {
	src.Shuffle(len(s), func(i, j int) {
		s[i], s[j] = s[j], s[i]
	})
}

// Summarize computes diagnostics for set. Estimators without
// estimator.Inspector are left out of the retained and estimation-mode
// averages.
func Summarize(set *Set) Summary {
	summary := Summary{Entities: set.Len(), Updates: set.Updates}
	if set.Len() == 0 {
		return summary
	}

	var (
		inspected, inEstimation, retained int
		serialized, compressed            int
	)

	for _, e := range set.Estimators {
		if in, ok := e.(estimator.Inspector); ok {
			inspected++
			retained += in.RetainedEntries()
			if in.EstimationMode() {
				inEstimation++
			}
		}

		b, err := e.MarshalBinary()
		if err != nil {
			continue
		}

		serialized += len(b)
		compressed += len(snappy.Encode(nil, b))
	}

	n := float64(set.Len())
	summary.MeanSerializedBytes = float64(serialized) / n
	summary.MeanCompressedBytes = float64(compressed) / n

	summary.Inspected = inspected

	if inspected > 0 {
		summary.MeanRetained = float64(retained) / float64(inspected)
		summary.EstimationModeFraction = float64(inEstimation) / float64(inspected)
	}

	return summary
}
