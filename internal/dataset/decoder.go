package dataset

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// CompressedExt marks zstd-compressed dataset files.
const CompressedExt = ".zst"

// IsCompressed reports whether the file name carries the zstd extension.
func IsCompressed(name string) bool {
	return strings.HasSuffix(name, CompressedExt)
}

// Decoder turns raw or zstd-compressed dataset bytes into integers.
type Decoder struct {
	zstdDecoder *zstd.Decoder
}

// NewDecoder creates a new dataset decoder.
func NewDecoder() (*Decoder, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Decoder{zstdDecoder: dec}, nil
}

// Close releases decoder resources.
func (d *Decoder) Close() {
	if d.zstdDecoder != nil {
		d.zstdDecoder.Close()
	}
}

// DecodeCompressed decompresses a zstd payload and parses it.
func (d *Decoder) DecodeCompressed(compressed []byte) ([]int64, error) {
	raw, err := d.zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return Parse(bytes.NewReader(raw))
}

// DecodeFromReader parses a stream, decompressing it first when compressed.
func (d *Decoder) DecodeFromReader(r io.Reader, compressed bool) ([]int64, error) {
	if !compressed {
		return Parse(r)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	return d.DecodeCompressed(data)
}

// Encoder compresses dataset text with zstd.
type Encoder struct {
	zstdEncoder *zstd.Encoder
}

// NewEncoder creates a zstd encoder.
func NewEncoder() (*Encoder, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &Encoder{zstdEncoder: enc}, nil
}

// Encode compresses src. It is safe for concurrent use.
func (e *Encoder) Encode(src []byte) []byte {
	return e.zstdEncoder.EncodeAll(src, nil)
}

// Close releases encoder resources.
func (e *Encoder) Close() error {
	return e.zstdEncoder.Close()
}
