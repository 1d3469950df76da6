package dataset

import (
	"context"
	"fmt"
	"log"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/storage"
)

// BlobSource reads dataset objects from a gocloud.dev bucket.
type BlobSource struct {
	store   *storage.Store
	decoder *Decoder
}

// NewBlobSource opens bucketURL and reads datasets under prefix.
func NewBlobSource(ctx context.Context, bucketURL, prefix string) (*BlobSource, error) {
	store, err := storage.Open(ctx, bucketURL, prefix)
	if err != nil {
		return nil, err
	}
	return NewBlobSourceFromStore(store)
}

// NewBlobSourceFromStore reads datasets through an already open store. The
// source takes ownership of the store.
func NewBlobSourceFromStore(store *storage.Store) (*BlobSource, error) {
	decoder, err := NewDecoder()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	return &BlobSource{store: store, decoder: decoder}, nil
}

// Type implements Source.
func (s *BlobSource) Type() string { return "blob" }

// Load reads the first existing object among <name>.txt, <name>.txt.zst
// and <name> under the prefix.
func (s *BlobSource) Load(ctx context.Context, name string) ([]int64, error) {
	key, err := s.resolve(ctx, name)
	if err != nil {
		recordSourceError(s.Type())
		return nil, err
	}

	r, err := s.store.NewReader(ctx, key)
	if err != nil {
		recordSourceError(s.Type())
		return nil, err
	}
	defer r.Close()

	values, err := s.decoder.DecodeFromReader(r, IsCompressed(key))
	if err != nil {
		recordSourceError(s.Type())
		return nil, fmt.Errorf("read dataset %s: %w", name, err)
	}

	log.Printf("[source:blob] loaded %d values from %s", len(values), s.store.URI(key))
	return values, nil
}

// Close releases the decoder and the bucket.
func (s *BlobSource) Close() error {
	if s.decoder != nil {
		s.decoder.Close()
	}
	return s.store.Close()
}

func (s *BlobSource) resolve(ctx context.Context, name string) (string, error) {
	for _, candidate := range candidates(name) {
		key := s.store.Prefix() + candidate
		ok, err := s.store.Exists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("check %s: %w", key, err)
		}
		if ok {
			return key, nil
		}
	}
	return "", fmt.Errorf("%w: %s under %s", ErrNotFound, name, s.store.URI(s.store.Prefix()))
}
