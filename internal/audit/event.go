// Package audit emits a tamper-evident, hash-chained log of benchmark runs.
// Each dataset has its own chain; every event carries the hash of the
// previous event on that chain.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/report"
)

const (
	EventVersion = "1.0"
	EventType    = "bench_run"
)

// Event is one audited benchmark run.
type Event struct {
	Version   string    `json:"version"`
	EventType string    `json:"event_type"`
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`

	Run      RunInfo             `json:"run"`
	Producer report.ProducerInfo `json:"producer"`
	Chain    ChainInfo           `json:"chain"`
}

// RunInfo identifies the run and the result it produced.
type RunInfo struct {
	Dataset     string `json:"dataset"`
	RunID       string `json:"run_id"`
	Trial       int    `json:"trial"`
	Fingerprint string `json:"fingerprint"`
	Values      int    `json:"values"`
	Workers     int    `json:"workers"`
	Match       bool   `json:"match"`
	// Checksum of the run manifest as published.
	ManifestChecksum string `json:"manifest_checksum"`
}

// ChainInfo links the event to its predecessor on the dataset's chain.
// Seq starts at 1.
type ChainInfo struct {
	Seq           int    `json:"seq"`
	PrevEventHash string `json:"prev_event_hash"`
	EventHash     string `json:"event_hash"`
}

// Link places the event after head and computes its own hash. A zero head
// starts a new chain.
func (e *Event) Link(head DatasetHead) {
	e.Chain.Seq = head.Seq + 1
	e.Chain.PrevEventHash = head.EventHash
	e.Chain.EventHash = ComputeEventHash(e)
}

// ComputeEventHash hashes the JSON form of the event with event_hash
// cleared.
func ComputeEventHash(evt *Event) string {
	c := *evt
	c.Chain.EventHash = ""

	canonical, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return ComputeChecksum(canonical)
}

// ComputeChecksum returns "sha256:<hex>" for data.
func ComputeChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}

// NewEvent builds an unchained event for a report entry.
func NewEvent(e report.Entry, producer report.ProducerInfo) (*Event, error) {
	manifest, err := json.Marshal(report.NewManifest(e, producer))
	if err != nil {
		return nil, err
	}

	return &Event{
		Version:   EventVersion,
		EventType: EventType,
		EventID:   "evt_" + e.RunID,
		Timestamp: time.Now().UTC(),
		Run: RunInfo{
			Dataset:          e.Dataset,
			RunID:            e.RunID,
			Trial:            e.Trial,
			Fingerprint:      e.Fingerprint,
			Values:           e.Record.Values,
			Workers:          e.Record.Workers,
			Match:            e.Record.Match,
			ManifestChecksum: ComputeChecksum(manifest),
		},
		Producer: producer,
	}, nil
}
