package dataset

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// ErrUnknownPreset is returned when a dataset name has no preset.
var ErrUnknownPreset = errors.New("unknown dataset preset")

// ErrDuplicatePreset is returned when two presets share a name.
var ErrDuplicatePreset = errors.New("duplicate dataset preset")

// Preset describes how to generate one named dataset.
type Preset struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
	// Uniform bounds, inclusive. Ignored when Mixed is set.
	Min   int64 `yaml:"min"`
	Max   int64 `yaml:"max"`
	Mixed bool  `yaml:"mixed"`
}

// FileName returns the plain-text file name for the preset.
func (p Preset) FileName() string {
	return p.Name + ".txt"
}

// Generate produces the preset's values from rng.
func (p Preset) Generate(rng *rand.Rand) []int64 {
	if p.Mixed {
		return Mixed(rng, p.Count)
	}
	return Uniform(rng, p.Count, p.Min, p.Max)
}

// DefaultPresets are the fixed-range and mixed-distribution datasets.
func DefaultPresets() []Preset {
	return []Preset{
		{Name: "input_small", Count: 20, Min: -500, Max: 500},
		{Name: "input_medium", Count: 20, Min: -5_000, Max: 5_000},
		{Name: "input_large", Count: 20, Min: -5_000_000, Max: 5_000_000},
		{Name: "input_mixed_10000", Count: 10_000, Mixed: true},
		{Name: "input_mixed_100000", Count: 100_000, Mixed: true},
		{Name: "input_mixed_1000000", Count: 1_000_000, Mixed: true},
	}
}

// Uniform returns n integers drawn uniformly from [lo, hi].
func Uniform(rng *rand.Rand, n int, lo, hi int64) []int64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	out := make([]int64, n)
	span := uint64(hi - lo)
	for i := range out {
		if span == ^uint64(0) {
			out[i] = int64(rng.Uint64())
			continue
		}
		out[i] = lo + int64(rng.Uint64N(span+1))
	}
	return out
}

// Mixed returns n integers where about half fall in ±1,000, 30% in
// ±100,000 and the rest in ±1,000,000,000.
func Mixed(rng *rand.Rand, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		r := rng.Float64()
		switch {
		case r < 0.5:
			out[i] = -1_000 + rng.Int64N(2_001)
		case r < 0.8:
			out[i] = -100_000 + rng.Int64N(200_001)
		default:
			out[i] = -1_000_000_000 + rng.Int64N(2_000_000_001)
		}
	}
	return out
}

// NewRand returns a generator for the named dataset. The same seed and name
// always produce the same sequence, independent of dataset order.
func NewRand(seed uint64, name string) *rand.Rand {
	return rand.New(rand.NewPCG(seed, xxhash.Sum64String(name)))
}

// Registry holds presets by name.
type Registry struct {
	presets []Preset
	byName  map[string]int
}

// NewRegistry validates the presets and indexes them by name.
func NewRegistry(presets []Preset) (*Registry, error) {
	if len(presets) == 0 {
		return nil, errors.New("at least one preset must be configured")
	}

	byName := make(map[string]int, len(presets))
	for i, p := range presets {
		if p.Name == "" {
			return nil, fmt.Errorf("preset %d has no name", i)
		}
		if p.Count < 0 {
			return nil, fmt.Errorf("preset %q: negative count %d", p.Name, p.Count)
		}
		if !p.Mixed && p.Min > p.Max {
			return nil, fmt.Errorf("preset %q: min %d > max %d", p.Name, p.Min, p.Max)
		}
		if _, dup := byName[p.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePreset, p.Name)
		}
		byName[p.Name] = i
	}

	return &Registry{
		presets: slices.Clone(presets),
		byName:  byName,
	}, nil
}

// Lookup returns the preset with the given name.
func (r *Registry) Lookup(name string) (Preset, error) {
	i, ok := r.byName[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return r.presets[i], nil
}

// Select returns the presets for names in the given order. An empty list
// selects every preset.
func (r *Registry) Select(names []string) ([]Preset, error) {
	if len(names) == 0 {
		return r.All(), nil
	}

	out := make([]Preset, 0, len(names))
	for _, name := range names {
		p, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// All returns every preset in registration order.
func (r *Registry) All() []Preset {
	return slices.Clone(r.presets)
}
