package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/report"
)

// Config configures the audit log.
type Config struct {
	Enabled  bool
	Dir      string // event files and chain heads
	Endpoint string // optional HTTP collector
}

// Emitter writes chained events to Dir and, when configured, POSTs them
// to an HTTP endpoint. It implements report.Sink.
type Emitter struct {
	cfg      Config
	producer report.ProducerInfo
	client   *http.Client
	heads    *datasetHeads

	mu sync.Mutex // serialises chain updates

	// retry schedule for POSTs
	retries int
	delay   time.Duration
}

// NewEmitter creates an emitter. Callers should not create one when
// cfg.Enabled is false.
func NewEmitter(cfg Config, producer report.ProducerInfo) (*Emitter, error) {
	if cfg.Dir == "" {
		cfg.Dir = "./audit"
	}
	heads, err := openDatasetHeads(cfg.Dir)
	if err != nil {
		return nil, err
	}

	if cfg.Endpoint != "" {
		log.Printf("[audit] using HTTP emitter -> %s", cfg.Endpoint)
	} else {
		log.Printf("[audit] using file-only emitter -> %s", cfg.Dir)
	}

	return &Emitter{
		cfg:      cfg,
		producer: producer,
		client:   &http.Client{Timeout: 30 * time.Second},
		heads:    heads,
		retries:  3,
		delay:    time.Second,
	}, nil
}

// Name implements report.Sink.
func (e *Emitter) Name() string { return "audit" }

// Report implements report.Sink. Skipped entries are not audited.
func (e *Emitter) Report(ctx context.Context, entry report.Entry) error {
	if entry.Skipped {
		return nil
	}
	evt, err := NewEvent(entry, e.producer)
	if err != nil {
		return fmt.Errorf("build event: %w", err)
	}
	return e.Emit(ctx, evt)
}

// Emit links evt after its dataset's head, saves it, posts it and then
// advances the head. The head only moves once the event is delivered.
func (e *Emitter) Emit(ctx context.Context, evt *Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	head, ok := e.heads.Head(evt.Run.Dataset)
	if ok && head.Fingerprint != evt.Run.Fingerprint {
		log.Printf("[audit] dataset %s changed since run %s (%s -> %s)",
			evt.Run.Dataset, head.RunID, head.Fingerprint, evt.Run.Fingerprint)
	}
	evt.Link(head)

	if err := e.save(evt); err != nil {
		return err
	}

	if e.cfg.Endpoint != "" {
		if err := e.postWithRetry(ctx, evt); err != nil {
			return fmt.Errorf("audit emit failed: %w", err)
		}
	}

	if err := e.heads.Advance(evt); err != nil {
		log.Printf("[audit] warning: failed to update head of %s: %v", evt.Run.Dataset, err)
	}
	return nil
}

// save writes the event to <dir>/<dataset>/<run_id>.json.
func (e *Emitter) save(evt *Event) error {
	dir := filepath.Join(e.cfg.Dir, evt.Run.Dataset)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create event dir: %w", err)
	}

	data, err := json.MarshalIndent(evt, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	path := filepath.Join(dir, evt.Run.RunID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

func (e *Emitter) postWithRetry(ctx context.Context, evt *Event) error {
	var lastErr error
	delay := e.delay

	for attempt := 1; attempt <= e.retries; attempt++ {
		err := e.post(ctx, evt)
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt < e.retries {
			log.Printf("[audit] attempt %d/%d failed: %v, retrying in %v", attempt, e.retries, err, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", e.retries, lastErr)
}

func (e *Emitter) post(ctx context.Context, evt *Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("http %d: %s", resp.StatusCode, string(respBody))
}

// Close implements report.Sink.
func (e *Emitter) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
