package workload

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sort"
)

// SynthConfig controls Synthesize.
type SynthConfig struct {
	Entities     int
	MinUnique    int
	MaxUnique    int
	Distribution string
	Seed         int64
}

// Laws lists the unique-count laws Synthesize accepts.
var Laws = []string{"power-law", "exponential", "uniform"}

// Synthesize draws a unique-count per entity from the configured law and
// buckets equal counts into SpecPoints ordered by Unique.
func Synthesize(cfg SynthConfig) (Distribution, error) {
	if cfg.Entities < 0 || cfg.MinUnique < 0 || cfg.MaxUnique < cfg.MinUnique {
		return Distribution{}, fmt.Errorf(
			"synthesize: invalid bounds entities=%d min=%d max=%d",
			cfg.Entities, cfg.MinUnique, cfg.MaxUnique,
		)
	}

	if !slices.Contains(Laws, cfg.Distribution) {
		return Distribution{}, fmt.Errorf("synthesize: unknown law %q (want one of %v)", cfg.Distribution, Laws)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	counts := make(map[int]int)

	for _, u := range uniqueCounts(rng, cfg) {
		counts[u]++
	}

	points := make([]SpecPoint, 0, len(counts))
	for u, p := range counts {
		points = append(points, SpecPoint{Unique: u, Population: p})
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Unique < points[j].Unique
	})

	return Distribution{
		Name:   fmt.Sprintf("%s-%d", cfg.Distribution, cfg.Entities),
		Points: points,
	}, nil
}

func uniqueCounts(rng *rand.Rand, cfg SynthConfig) []int {
	dist := make([]int, cfg.Entities)
	lo, hi := cfg.MinUnique, cfg.MaxUnique

	switch cfg.Distribution {
	case "power-law":
		alpha := 1.5
		floor := math.Max(1, float64(lo))
		for i := range dist {
			u := rng.Float64()
			n := floor / math.Pow(1-u, 1/alpha)
			if n > float64(hi) {
				n = float64(hi)
			}
			dist[i] = max(lo, int(n))
		}

	case "exponential":
		lambda := math.Log(2) / math.Max(1, float64(hi)/4)
		for i := range dist {
			u := rng.Float64()
			n := -math.Log(1-u) / lambda
			clamped := math.Max(float64(lo), math.Min(n, float64(hi)))
			dist[i] = int(clamped)
		}

	case "uniform":
		span := hi - lo + 1
		for i := range dist {
			dist[i] = lo + rng.Intn(span)
		}
	}

	return dist
}
