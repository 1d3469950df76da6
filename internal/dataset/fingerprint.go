package dataset

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes the values in order. Equal datasets always share a
// fingerprint; it identifies a dataset in reports and checkpoints.
func Fingerprint(values []int64) string {
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(values)))
	d.Write(buf[:])
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		d.Write(buf[:])
	}
	return fmt.Sprintf("xxh64:%016x", d.Sum64())
}
