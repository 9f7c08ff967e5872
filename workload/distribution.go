package workload

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// SpecPoint says that Population estimators each receive Unique distinct
// values.
type SpecPoint struct {
	Unique     int `yaml:"unique" json:"unique"`
	Population int `yaml:"population" json:"population"`
}

// Distribution is an ordered table of SpecPoints. Order only affects which
// part of the random stream each estimator consumes.
type Distribution struct {
	Name   string      `yaml:"name" json:"name"`
	Points []SpecPoint `yaml:"points" json:"points"`
}

// TotalEntities returns the number of estimators the distribution describes.
func (d Distribution) TotalEntities() int {
	total := 0
	for _, p := range d.Points {
		total += p.Population
	}

	return total
}

// TotalUpdates returns the number of values fed across all estimators.
func (d Distribution) TotalUpdates() int {
	total := 0
	for _, p := range d.Points {
		total += p.Unique * p.Population
	}

	return total
}

// Validate rejects negative counts.
func (d Distribution) Validate() error {
	for i, p := range d.Points {
		if p.Unique < 0 || p.Population < 0 {
			return fmt.Errorf(
				"distribution %q point %d: negative count (unique=%d, population=%d)",
				d.Name, i, p.Unique, p.Population,
			)
		}
	}

	return nil
}

// LoadDistribution decodes a YAML workload description:
//
//	name: union
//	points:
//	  - {unique: 1, population: 1000}
//	  - {unique: 16, population: 100}
func LoadDistribution(r io.Reader) (Distribution, error) {
	var d Distribution

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&d); err != nil {
		return Distribution{}, fmt.Errorf("decode distribution: %w", err)
	}

	if err := d.Validate(); err != nil {
		return Distribution{}, err
	}

	return d, nil
}

// LoadDistributionFile reads a YAML workload description from path.
func LoadDistributionFile(path string) (Distribution, error) {
	f, err := os.Open(path)
	if err != nil {
		return Distribution{}, fmt.Errorf("open distribution %s: %w", path, err)
	}
	defer f.Close()

	d, err := LoadDistribution(f)
	if err != nil {
		return Distribution{}, fmt.Errorf("load %s: %w", path, err)
	}

	if d.Name == "" {
		d.Name = path
	}

	return d, nil
}

var builtins = map[string]Distribution{
	"smoke": {
		Name: "smoke",
		Points: []SpecPoint{
			{Unique: 0, Population: 10},
			{Unique: 1, Population: 10},
			{Unique: 10, Population: 5},
		},
	},
	// Many small sketches and a few large ones, the usual shape of
	// per-key cardinality in metrics pipelines.
	"union": {
		Name: "union",
		Points: []SpecPoint{
			{Unique: 1, Population: 4096},
			{Unique: 4, Population: 2048},
			{Unique: 16, Population: 1024},
			{Unique: 64, Population: 512},
			{Unique: 256, Population: 256},
			{Unique: 1024, Population: 128},
			{Unique: 4096, Population: 64},
			{Unique: 16384, Population: 16},
			{Unique: 65536, Population: 4},
		},
	},
}

// Builtin returns a named literal distribution.
func Builtin(name string) (Distribution, error) {
	d, ok := builtins[name]
	if !ok {
		return Distribution{}, fmt.Errorf("unknown builtin distribution %q", name)
	}

	d.Points = append([]SpecPoint(nil), d.Points...)

	return d, nil
}

// BuiltinNames lists the literal distributions.
func BuiltinNames() []string {
	return []string{"smoke", "union"}
}
