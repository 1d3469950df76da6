package report

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/parquet-go/parquet-go"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/storage"
)

// BlobSink publishes each run as a JSON manifest and, optionally, a
// single-row Parquet file under runs/<dataset>/run=<run_id>/.
type BlobSink struct {
	store    *storage.Store
	parquet  bool
	producer ProducerInfo
}

// NewBlobSink creates a sink over store. The store is owned by the caller,
// which may share it with other writers.
func NewBlobSink(store *storage.Store, writeParquet bool, producer ProducerInfo) *BlobSink {
	return &BlobSink{
		store:    store,
		parquet:  writeParquet,
		producer: producer,
	}
}

// Name implements Sink.
func (s *BlobSink) Name() string { return "blob" }

// Report writes the run's files to temporary keys and publishes them
// together. Skipped datasets are not published.
func (s *BlobSink) Report(ctx context.Context, e Entry) error {
	if e.Skipped {
		return nil
	}

	ref := storage.RunRef{Dataset: e.Dataset, RunID: e.RunID}
	prefix := s.store.Prefix()

	var tempKeys, finalKeys []string

	if s.parquet {
		data, err := EncodeRows([]RunRow{NewRunRow(e, s.producer)})
		if err != nil {
			return err
		}
		finalKey := ref.ParquetPath(prefix)
		tempKey, err := s.store.WriteTemp(ctx, finalKey, data)
		if err != nil {
			return err
		}
		tempKeys = append(tempKeys, tempKey)
		finalKeys = append(finalKeys, finalKey)
	}

	manifest, err := NewManifest(e, s.producer).MarshalJSON()
	if err != nil {
		s.store.Abort(ctx, tempKeys)
		return fmt.Errorf("marshal manifest: %w", err)
	}
	finalKey := ref.ManifestPath(prefix)
	tempKey, err := s.store.WriteTemp(ctx, finalKey, manifest)
	if err != nil {
		s.store.Abort(ctx, tempKeys)
		return err
	}
	tempKeys = append(tempKeys, tempKey)
	finalKeys = append(finalKeys, finalKey)

	if err := s.store.Finalize(ctx, tempKeys, finalKeys); err != nil {
		return fmt.Errorf("publish run %s: %w", e.RunID, err)
	}

	log.Printf("[report:blob] published %s", s.store.URI(finalKey))
	return nil
}

// Close implements Sink. It leaves the store open.
func (s *BlobSink) Close() error { return nil }

// EncodeRows writes rows as a zstd-compressed Parquet file.
func EncodeRows(rows []RunRow) ([]byte, error) {
	var buf bytes.Buffer
	if err := parquet.Write(&buf, rows, parquet.Compression(&parquet.Zstd)); err != nil {
		return nil, fmt.Errorf("write parquet: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeRows reads rows written by EncodeRows.
func DecodeRows(data []byte) ([]RunRow, error) {
	rows, err := parquet.Read[RunRow](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return rows, nil
}
