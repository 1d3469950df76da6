package dataset

import (
	"bytes"
	"context"
	"fmt"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/storage"
)

// Writer publishes datasets as space-separated text.
type Writer struct {
	store   *storage.Store
	encoder *Encoder // nil writes plain text
}

// NewWriter creates a writer over store; compress selects .txt.zst output.
func NewWriter(store *storage.Store, compress bool) (*Writer, error) {
	w := &Writer{store: store}
	if compress {
		enc, err := NewEncoder()
		if err != nil {
			return nil, err
		}
		w.encoder = enc
	}
	return w, nil
}

// Write stores values under <prefix><name>.txt[.zst] and returns the key.
// The object appears only once fully written.
func (w *Writer) Write(ctx context.Context, name string, values []int64) (string, error) {
	var buf bytes.Buffer
	if err := Format(&buf, values); err != nil {
		return "", fmt.Errorf("format %s: %w", name, err)
	}

	key := w.store.Prefix() + name + ".txt"
	data := buf.Bytes()
	if w.encoder != nil {
		key += CompressedExt
		data = w.encoder.Encode(data)
	}

	tempKey, err := w.store.WriteTemp(ctx, key, data)
	if err != nil {
		return "", err
	}
	if err := w.store.Finalize(ctx, []string{tempKey}, []string{key}); err != nil {
		return "", err
	}
	return key, nil
}

// Close releases the encoder. The store is owned by the caller.
func (w *Writer) Close() error {
	if w.encoder != nil {
		return w.encoder.Close()
	}
	return nil
}
