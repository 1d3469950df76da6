package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const headsFile = "dataset-heads.json"

// DatasetHead is the latest delivered event on a dataset's chain.
type DatasetHead struct {
	Seq         int       `json:"seq"`
	RunID       string    `json:"run_id"`
	EventHash   string    `json:"event_hash"`
	Fingerprint string    `json:"fingerprint"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// datasetHeads persists one head per dataset name in <dir>/dataset-heads.json.
type datasetHeads struct {
	mu    sync.RWMutex
	heads map[string]DatasetHead
	path  string
}

func openDatasetHeads(dir string) (*datasetHeads, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}

	h := &datasetHeads{
		heads: make(map[string]DatasetHead),
		path:  filepath.Join(dir, headsFile),
	}
	data, err := os.ReadFile(h.path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read dataset heads: %w", err)
	default:
		if err := json.Unmarshal(data, &h.heads); err != nil {
			return nil, fmt.Errorf("parse dataset heads: %w", err)
		}
	}
	return h, nil
}

// Head returns the dataset's head; ok is false before its first event.
func (h *datasetHeads) Head(dataset string) (head DatasetHead, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	head, ok = h.heads[dataset]
	return head, ok
}

// Advance moves the dataset's head to evt and persists every head.
func (h *datasetHeads) Advance(evt *Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.heads[evt.Run.Dataset] = DatasetHead{
		Seq:         evt.Chain.Seq,
		RunID:       evt.Run.RunID,
		EventHash:   evt.Chain.EventHash,
		Fingerprint: evt.Run.Fingerprint,
		UpdatedAt:   evt.Timestamp,
	}

	data, err := json.MarshalIndent(h.heads, "", "  ")
	if err != nil {
		return err
	}
	tmpPath := h.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, h.path)
}
