package dataset

import (
	"context"
)

// GeneratedSource produces preset datasets in memory.
type GeneratedSource struct {
	registry *Registry
	seed     uint64
}

// NewGeneratedSource creates a source over the given presets.
func NewGeneratedSource(presets []Preset, seed uint64) (*GeneratedSource, error) {
	registry, err := NewRegistry(presets)
	if err != nil {
		return nil, err
	}
	return &GeneratedSource{registry: registry, seed: seed}, nil
}

// Type implements Source.
func (s *GeneratedSource) Type() string { return "generate" }

// Load generates the named preset. Repeated loads return equal values.
func (s *GeneratedSource) Load(ctx context.Context, name string) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.registry.Lookup(name)
	if err != nil {
		recordSourceError(s.Type())
		return nil, err
	}
	return p.Generate(NewRand(s.seed, p.Name)), nil
}

// Close implements Source.
func (s *GeneratedSource) Close() error { return nil }
