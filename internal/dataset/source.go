package dataset

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/metrics"
)

// ErrInvalidSourceMode is returned for an unsupported source mode.
var ErrInvalidSourceMode = errors.New("invalid source mode")

// ErrNotFound is returned when a named dataset does not exist in a source.
var ErrNotFound = errors.New("dataset not found")

// Source loads named datasets.
type Source interface {
	Load(ctx context.Context, name string) ([]int64, error)
	// Type is the source kind, used as a metrics label.
	Type() string
	Close() error
}

// SourceConfig selects and configures a source.
type SourceConfig struct {
	Mode          string // local, blob or generate
	Dir           string
	BucketURL     string
	Prefix        string
	Seed          uint64
	MmapThreshold int64
	Presets       []Preset // generate mode; nil uses DefaultPresets
}

// NewSource constructs a dataset source based on the configured mode.
func NewSource(ctx context.Context, cfg SourceConfig) (Source, error) {
	switch cfg.Mode {
	case "local":
		return NewLocalSource(cfg.Dir, cfg.MmapThreshold)
	case "blob":
		return NewBlobSource(ctx, cfg.BucketURL, cfg.Prefix)
	case "generate":
		presets := cfg.Presets
		if presets == nil {
			presets = DefaultPresets()
		}
		return NewGeneratedSource(presets, cfg.Seed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSourceMode, cfg.Mode)
	}
}

// candidates lists the object names tried for a dataset, in order.
func candidates(name string) []string {
	if IsCompressed(name) || hasTextExt(name) {
		return []string{name}
	}
	return []string{name + ".txt", name + ".txt" + CompressedExt, name}
}

func hasTextExt(name string) bool {
	return strings.HasSuffix(name, ".txt")
}

func recordSourceError(sourceType string) {
	if m := metrics.Get(); m != nil {
		m.IncSourceErrors(sourceType)
	}
}
