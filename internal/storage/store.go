// Package storage wraps a gocloud.dev blob bucket with the temp-write and
// finalize steps used to publish datasets and benchmark reports.
package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // gs:// driver
	_ "gocloud.dev/blob/memblob"  // mem:// driver
	_ "gocloud.dev/blob/s3blob"   // s3:// driver
	"gocloud.dev/gcerrors"
)

// RunRef describes where one benchmark run is published.
type RunRef struct {
	Dataset string
	RunID   string
}

// DirPath returns the directory path for this run.
func (r RunRef) DirPath(prefix string) string {
	return fmt.Sprintf("%sruns/%s/run=%s", prefix, r.Dataset, r.RunID)
}

// ManifestPath returns the storage path for this run's JSON report.
func (r RunRef) ManifestPath(prefix string) string {
	return r.DirPath(prefix) + "/_report.json"
}

// ParquetPath returns the storage path for this run's Parquet rows.
func (r RunRef) ParquetPath(prefix string) string {
	return fmt.Sprintf("%s/part-%s.parquet", r.DirPath(prefix), r.RunID)
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key     string
	Size    int64
	ETag    string
	ModTime time.Time
}

// Store reads and writes objects under a key prefix of a bucket.
type Store struct {
	bucket *blob.Bucket
	base   string
	prefix string
}

// Open opens a bucket by URL (file://, gs://, s3://, mem://).
func Open(ctx context.Context, bucketURL, prefix string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}

	base := bucketURL
	if u, err := url.Parse(bucketURL); err == nil {
		base = u.Scheme + "://" + u.Host + u.Path
	}
	log.Printf("[storage] opened %s prefix=%q", base, prefix)

	return NewStore(bucket, base, prefix), nil
}

// NewStore wraps an open bucket. base is used only to build URIs.
func NewStore(bucket *blob.Bucket, base, prefix string) *Store {
	return &Store{
		bucket: bucket,
		base:   strings.TrimSuffix(base, "/"),
		prefix: prefix,
	}
}

// Prefix returns the key prefix applied by callers.
func (s *Store) Prefix() string { return s.prefix }

// Write writes data directly to key.
func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	w, err := s.bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", key, err)
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write data to %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", key, err)
	}

	return nil
}

// WriteTemp writes data next to finalKey under a unique temporary name and
// returns that name for Finalize or Abort.
func (s *Store) WriteTemp(ctx context.Context, finalKey string, data []byte) (string, error) {
	tempKey := finalKey + ".tmp." + uuid.New().String()
	if err := s.Write(ctx, tempKey, data); err != nil {
		return "", err
	}
	return tempKey, nil
}

// Finalize copies each temp key to its final key and removes the temp
// objects. If any copy fails, the already published keys and all temp keys
// are removed.
func (s *Store) Finalize(ctx context.Context, tempKeys, finalKeys []string) error {
	if len(tempKeys) != len(finalKeys) {
		return fmt.Errorf("expected %d temp keys, got %d", len(finalKeys), len(tempKeys))
	}

	for i, tempKey := range tempKeys {
		finalKey := finalKeys[i]

		if err := s.copyObject(ctx, tempKey, finalKey); err != nil {
			for j := 0; j < i; j++ {
				s.bucket.Delete(ctx, finalKeys[j])
			}
			s.Abort(ctx, tempKeys)
			return fmt.Errorf("finalize %s -> %s: %w", tempKey, finalKey, err)
		}
	}

	for _, tempKey := range tempKeys {
		s.bucket.Delete(ctx, tempKey) // ignore errors
	}

	return nil
}

func (s *Store) copyObject(ctx context.Context, srcKey, dstKey string) error {
	r, err := s.bucket.NewReader(ctx, srcKey, nil)
	if err != nil {
		return fmt.Errorf("open source %s: %w", srcKey, err)
	}
	defer r.Close()

	w, err := s.bucket.NewWriter(ctx, dstKey, nil)
	if err != nil {
		return fmt.Errorf("create destination %s: %w", dstKey, err)
	}

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("copy to %s: %w", dstKey, err)
	}

	return w.Close()
}

// Abort removes temporary objects without publishing.
func (s *Store) Abort(ctx context.Context, tempKeys []string) error {
	var lastErr error
	for _, key := range tempKeys {
		if err := s.bucket.Delete(ctx, key); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
			lastErr = err
		}
	}
	return lastErr
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.bucket.Exists(ctx, key)
}

// NewReader opens key for reading. The caller closes it.
func (s *Store) NewReader(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return r, nil
}

// ReadAll returns the full contents of key.
func (s *Store) ReadAll(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Head returns metadata about a stored object.
func (s *Store) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	attrs, err := s.bucket.Attributes(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get attributes for %s: %w", key, err)
	}

	return &ObjectInfo{
		Key:     key,
		Size:    attrs.Size,
		ETag:    attrs.ETag,
		ModTime: attrs.ModTime,
	}, nil
}

// List returns all keys with the given prefix, skipping directories.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		if obj.IsDir {
			continue
		}
		keys = append(keys, obj.Key)
	}

	return keys, nil
}

// URI returns the canonical URI for the given key.
func (s *Store) URI(key string) string {
	return s.base + "/" + key
}

// Close releases the bucket.
func (s *Store) Close() error {
	if s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}

// IsNotFound reports whether err is a missing-object error from the bucket.
func IsNotFound(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}
