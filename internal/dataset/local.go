package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"
)

// LocalSource reads dataset files from a directory.
type LocalSource struct {
	basePath      string
	mmapThreshold int64
	decoder       *Decoder
}

// NewLocalSource creates a source over basePath. Plain files of at least
// mmapThreshold bytes are memory-mapped; a threshold <= 0 disables mapping.
func NewLocalSource(basePath string, mmapThreshold int64) (*LocalSource, error) {
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid local path %s: %w", basePath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local path %s is not a directory", basePath)
	}

	decoder, err := NewDecoder()
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}

	return &LocalSource{
		basePath:      basePath,
		mmapThreshold: mmapThreshold,
		decoder:       decoder,
	}, nil
}

// Type implements Source.
func (s *LocalSource) Type() string { return "local" }

// Load reads <name>.txt, <name>.txt.zst or <name> from the directory.
func (s *LocalSource) Load(ctx context.Context, name string) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, info, err := s.resolve(name)
	if err != nil {
		recordSourceError(s.Type())
		return nil, err
	}

	values, err := s.readFile(path, info.Size())
	if err != nil {
		recordSourceError(s.Type())
		return nil, fmt.Errorf("read dataset %s: %w", name, err)
	}

	log.Printf("[source:local] loaded %d values from %s", len(values), path)
	return values, nil
}

// Close releases resources.
func (s *LocalSource) Close() error {
	if s.decoder != nil {
		s.decoder.Close()
	}
	return nil
}

func (s *LocalSource) resolve(name string) (string, fs.FileInfo, error) {
	for _, candidate := range candidates(name) {
		path := filepath.Join(s.basePath, candidate)
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		return path, info, nil
	}
	return "", nil, fmt.Errorf("%w: %s in %s", ErrNotFound, name, s.basePath)
}

func (s *LocalSource) readFile(path string, size int64) ([]int64, error) {
	if IsCompressed(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return s.decoder.DecodeCompressed(data)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	// mmap of an empty file fails, and small files gain nothing from it.
	if s.mmapThreshold <= 0 || size == 0 || size < s.mmapThreshold {
		return Parse(f)
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	values, parseErr := Parse(bytes.NewReader(mm))
	if err := mm.Unmap(); err != nil && parseErr == nil {
		return nil, fmt.Errorf("unmap %s: %w", path, err)
	}
	return values, parseErr
}
