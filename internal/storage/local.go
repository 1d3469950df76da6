package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"gocloud.dev/blob/fileblob"
)

// NewLocalStore opens a store rooted at a local directory, creating it if
// needed.
func NewLocalStore(baseDir, prefix string) (*Store, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory %s: %w", baseDir, err)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create base directory %s: %w", abs, err)
	}

	bucket, err := fileblob.OpenBucket(abs, &fileblob.Options{CreateDir: true, NoTempDir: true})
	if err != nil {
		return nil, fmt.Errorf("open local bucket %s: %w", abs, err)
	}

	return NewStore(bucket, "file://"+filepath.ToSlash(abs), prefix), nil
}
