package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/bench"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/report"
)

var producer = report.ProducerInfo{Name: "radix-bench", Version: "v0.1.0", GitSHA: "abcdef"}

func entry(dataset, runID string) report.Entry {
	return report.Entry{
		RunID:       runID,
		Dataset:     dataset,
		Fingerprint: "xxh64:0000000000000001",
		Trial:       1,
		StartedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Record: bench.Record{
			Values:        20,
			Workers:       4,
			Match:         true,
			FirstMismatch: -1,
		},
	}
}

func TestComputeEventHash(t *testing.T) {
	evt, err := NewEvent(entry("input_small", "r1"), producer)
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}
	evt.Link(DatasetHead{})

	if evt.Chain.Seq != 1 {
		t.Errorf("Seq = %d, want 1 for the first event", evt.Chain.Seq)
	}
	if !strings.HasPrefix(evt.Chain.EventHash, "sha256:") {
		t.Errorf("EventHash should start with 'sha256:', got: %s", evt.Chain.EventHash)
	}
	if evt.Chain.PrevEventHash != "" {
		t.Errorf("PrevEventHash should be empty for first in chain, got: %s", evt.Chain.PrevEventHash)
	}
	if !strings.HasPrefix(evt.Run.ManifestChecksum, "sha256:") {
		t.Errorf("ManifestChecksum = %q", evt.Run.ManifestChecksum)
	}
}

func TestHashChainDeterminism(t *testing.T) {
	create := func() *Event {
		return &Event{
			Version:   EventVersion,
			EventType: EventType,
			EventID:   "evt_r1",
			Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Run:       RunInfo{Dataset: "input_small", RunID: "r1", Values: 20},
			Producer:  producer,
		}
	}

	a, b := create(), create()
	prev := DatasetHead{Seq: 3, EventHash: "sha256:prev"}
	a.Link(prev)
	b.Link(prev)
	if a.Chain.EventHash != b.Chain.EventHash {
		t.Error("identical events should hash identically")
	}

	c := create()
	c.Link(DatasetHead{Seq: 3, EventHash: "sha256:other"})
	if a.Chain.EventHash == c.Chain.EventHash {
		t.Error("a different prev hash should change the event hash")
	}

	// Recomputing over an event with its hash set gives the same value.
	if ComputeEventHash(a) != a.Chain.EventHash {
		t.Error("event hash should ignore the stored event_hash")
	}
}

func TestEmitter_ChainsPerDataset(t *testing.T) {
	dir := t.TempDir()
	em, err := NewEmitter(Config{Enabled: true, Dir: dir}, producer)
	if err != nil {
		t.Fatalf("NewEmitter failed: %v", err)
	}
	ctx := context.Background()

	for _, e := range []report.Entry{entry("a", "r1"), entry("a", "r2"), entry("b", "r3")} {
		if err := em.Report(ctx, e); err != nil {
			t.Fatalf("Report %s failed: %v", e.RunID, err)
		}
	}

	r1 := readEvent(t, filepath.Join(dir, "a", "r1.json"))
	r2 := readEvent(t, filepath.Join(dir, "a", "r2.json"))
	r3 := readEvent(t, filepath.Join(dir, "b", "r3.json"))

	if r1.Chain.PrevEventHash != "" || r1.Chain.Seq != 1 {
		t.Errorf("first event chain = %+v, want seq 1 with empty prev", r1.Chain)
	}
	if r2.Chain.PrevEventHash != r1.Chain.EventHash || r2.Chain.Seq != 2 {
		t.Errorf("second event should link to the first: %+v", r2.Chain)
	}
	if r3.Chain.PrevEventHash != "" || r3.Chain.Seq != 1 {
		t.Errorf("dataset b should start its own chain: %+v", r3.Chain)
	}

	head, ok := em.heads.Head("a")
	if !ok || head.RunID != "r2" || head.Seq != 2 || head.EventHash != r2.Chain.EventHash {
		t.Errorf("head of a = %+v, ok = %v", head, ok)
	}
	if head.Fingerprint != "xxh64:0000000000000001" {
		t.Errorf("head fingerprint = %q", head.Fingerprint)
	}
	if _, err := os.Stat(filepath.Join(dir, headsFile)); err != nil {
		t.Errorf("heads file should be written: %v", err)
	}

	// A new emitter over the same directory continues the chain.
	em2, err := NewEmitter(Config{Enabled: true, Dir: dir}, producer)
	if err != nil {
		t.Fatalf("NewEmitter failed: %v", err)
	}
	if err := em2.Report(ctx, entry("a", "r4")); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	r4 := readEvent(t, filepath.Join(dir, "a", "r4.json"))
	if r4.Chain.PrevEventHash != r2.Chain.EventHash || r4.Chain.Seq != 3 {
		t.Errorf("chain head should persist across emitters: %+v", r4.Chain)
	}
}

func TestEmitter_SkippedNotAudited(t *testing.T) {
	dir := t.TempDir()
	em, _ := NewEmitter(Config{Enabled: true, Dir: dir}, producer)

	e := entry("empty", "r1")
	e.Skipped = true
	if err := em.Report(context.Background(), e); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "empty")); !os.IsNotExist(err) {
		t.Error("skipped entries should not be written")
	}
}

func TestEmitter_HTTP(t *testing.T) {
	var (
		mu       sync.Mutex
		received []Event
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		received = append(received, evt)
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	em, err := NewEmitter(Config{Enabled: true, Dir: t.TempDir(), Endpoint: srv.URL}, producer)
	if err != nil {
		t.Fatalf("NewEmitter failed: %v", err)
	}
	if err := em.Report(context.Background(), entry("a", "r1")); err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0].Run.RunID != "r1" || received[0].Chain.EventHash == "" {
		t.Errorf("received = %+v", received)
	}
}

func TestEmitter_HTTPFailureKeepsHead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dir := t.TempDir()
	em, err := NewEmitter(Config{Enabled: true, Dir: dir, Endpoint: srv.URL}, producer)
	if err != nil {
		t.Fatalf("NewEmitter failed: %v", err)
	}
	em.retries = 2
	em.delay = time.Millisecond

	if err := em.Report(context.Background(), entry("a", "r1")); err == nil {
		t.Fatal("expected error from failing endpoint")
	}
	if head, ok := em.heads.Head("a"); ok {
		t.Errorf("head should not move on failed delivery, got %+v", head)
	}
}

func readEvent(t *testing.T, path string) Event {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return evt
}

func TestOpenDatasetHeads_Corrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, headsFile), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewEmitter(Config{Enabled: true, Dir: dir}, producer); err == nil {
		t.Error("expected error for corrupt heads file")
	}
}
