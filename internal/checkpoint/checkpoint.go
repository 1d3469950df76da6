package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrNoCheckpoint is returned when no checkpoint exists.
	ErrNoCheckpoint = errors.New("no checkpoint found")
)

// Checkpoint represents a suite's progress state.
type Checkpoint struct {
	SuiteID   string             `json:"suite_id"`
	Completed []CompletedDataset `json:"completed"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// CompletedDataset describes a dataset whose runs were all reported.
type CompletedDataset struct {
	Name        string    `json:"name"`
	Fingerprint string    `json:"fingerprint"`
	RunIDs      []string  `json:"run_ids,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Done reports whether the dataset with this name and content was
// completed. A changed fingerprint means the dataset must be rerun.
func (c *Checkpoint) Done(name, fingerprint string) bool {
	if c == nil {
		return false
	}
	for _, d := range c.Completed {
		if d.Name == name && d.Fingerprint == fingerprint {
			return true
		}
	}
	return false
}

// MarkDone records a completed dataset, replacing any earlier entry with
// the same name.
func (c *Checkpoint) MarkDone(d CompletedDataset) {
	for i := range c.Completed {
		if c.Completed[i].Name == d.Name {
			c.Completed[i] = d
			return
		}
	}
	c.Completed = append(c.Completed, d)
}

// Manager handles checkpoint persistence and retrieval.
type Manager interface {
	// Load reads the checkpoint for a suite.
	Load(ctx context.Context, suiteID string) (*Checkpoint, error)

	// Save persists the checkpoint.
	Save(ctx context.Context, cp *Checkpoint) error
}

// Config configures the checkpoint manager.
type Config struct {
	Enabled bool
	Dir     string // Directory for checkpoint files
}

// NewManager creates a checkpoint manager based on configuration.
func NewManager(cfg Config) (Manager, error) {
	if !cfg.Enabled {
		return &noopManager{}, nil
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory %s: %w", cfg.Dir, err)
	}

	return &fileManager{dir: cfg.Dir}, nil
}

// fileManager persists checkpoints to local files.
type fileManager struct {
	dir string
}

func (m *fileManager) checkpointPath(suiteID string) string {
	return filepath.Join(m.dir, fmt.Sprintf("checkpoint_%s.json", suiteID))
}

// Load reads the checkpoint from file.
func (m *fileManager) Load(ctx context.Context, suiteID string) (*Checkpoint, error) {
	data, err := os.ReadFile(m.checkpointPath(suiteID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCheckpoint
		}
		return nil, fmt.Errorf("read checkpoint file: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("parse checkpoint file: %w", err)
	}

	return &cp, nil
}

// Save persists the checkpoint to file.
func (m *fileManager) Save(ctx context.Context, cp *Checkpoint) error {
	if cp.SuiteID == "" {
		return errors.New("checkpoint has no suite id")
	}
	path := m.checkpointPath(cp.SuiteID)

	cp.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	// Write atomically
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write checkpoint temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename checkpoint file: %w", err)
	}

	return nil
}

// noopManager is a no-op checkpoint manager for when checkpointing is disabled.
type noopManager struct{}

func (m *noopManager) Load(ctx context.Context, suiteID string) (*Checkpoint, error) {
	return nil, ErrNoCheckpoint
}

func (m *noopManager) Save(ctx context.Context, cp *Checkpoint) error {
	return nil
}
