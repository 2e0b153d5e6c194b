package fetcher

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/vertextoedge/bulkfetch/internal/domain"
	"github.com/vertextoedge/bulkfetch/internal/port"
	"go.uber.org/zap"
)

func testOrchestrator(client port.StreamClient, store *memStore, size uint64, sink *recordSink, workers int) *Orchestrator {
	cfg := Config{Workers: workers, Policy: testPolicy()}
	deps := Deps{
		Prober:  &stubProber{size: size},
		Client:  client,
		Store:   store,
		Network: &stubMonitor{},
		Sink:    sink,
	}
	return NewOrchestrator(cfg, deps, zap.NewNop())
}

func outcomeFor(t *testing.T, results Results, name string) domain.Outcome {
	t.Helper()
	for _, out := range results.Outcomes {
		if out.Target.Name == name {
			return out
		}
	}
	t.Fatalf("no outcome for %s", name)
	return domain.Outcome{}
}

func TestOrchestrator_FailureIsolation(t *testing.T) {
	content := bytes.Repeat([]byte("a"), 100)
	store := newMemStore()
	sink := newRecordSink()

	client := clientFunc(func(ctx context.Context, url string, offset uint64) (*port.FetchResult, error) {
		if strings.Contains(url, "bad.bin") {
			return nil, domain.NewRequestError("fetch", 500, errors.New("server error"))
		}
		return fullBody(content, false), nil
	})

	orch := testOrchestrator(client, store, 100, sink, 2)
	results := orch.Run(context.Background(), []domain.Target{
		testTarget("bad.bin"),
		testTarget("good.bin"),
	})

	if len(results.Outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(results.Outcomes))
	}
	if out := outcomeFor(t, results, "good.bin"); out.Phase != domain.PhaseCompleted {
		t.Errorf("good.bin phase = %s, want completed (err: %v)", out.Phase, out.Err)
	}
	if out := outcomeFor(t, results, "bad.bin"); out.Phase != domain.PhaseFailed {
		t.Errorf("bad.bin phase = %s, want failed", out.Phase)
	}
	if results.Completed() != 1 || results.Failed() != 1 {
		t.Errorf("completed/failed = %d/%d, want 1/1", results.Completed(), results.Failed())
	}
	if got := uint64(len(store.final["good.bin"])); got != 100 {
		t.Errorf("good.bin final size = %d, want 100", got)
	}
}

func TestOrchestrator_PanicIsolation(t *testing.T) {
	content := bytes.Repeat([]byte("b"), 50)
	store := newMemStore()
	sink := newRecordSink()

	client := clientFunc(func(ctx context.Context, url string, offset uint64) (*port.FetchResult, error) {
		if strings.Contains(url, "boom.bin") {
			panic("client blew up")
		}
		return fullBody(content, false), nil
	})

	orch := testOrchestrator(client, store, 50, sink, 2)
	results := orch.Run(context.Background(), []domain.Target{
		testTarget("boom.bin"),
		testTarget("good.bin"),
	})

	if len(results.Outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2: a panicking worker must still report", len(results.Outcomes))
	}
	if out := outcomeFor(t, results, "boom.bin"); out.Phase != domain.PhaseFailed || out.Err == nil {
		t.Errorf("boom.bin = phase %s err %v, want failed with error", out.Phase, out.Err)
	}
	if out := outcomeFor(t, results, "good.bin"); out.Phase != domain.PhaseCompleted {
		t.Errorf("good.bin phase = %s, want completed (err: %v)", out.Phase, out.Err)
	}
}

func TestOrchestrator_SeedsProgressUpfront(t *testing.T) {
	content := bytes.Repeat([]byte("c"), 200)
	store := newMemStore()
	sink := newRecordSink()

	var mu sync.Mutex
	var offsets []uint64
	orch := testOrchestrator(rangedServer(content, &offsets, &mu), store, 200, sink, 1)
	orch.Run(context.Background(), []domain.Target{
		testTarget("one.bin"),
		testTarget("two.bin"),
	})

	for _, name := range []string{"one.bin", "two.bin"} {
		if sink.totals[name] != 200 {
			t.Errorf("%s total = %d, want 200 seeded before streaming", name, sink.totals[name])
		}
	}
	if !sink.closed {
		t.Error("sink not closed after the batch")
	}
}

func TestOrchestrator_MoreTargetsThanWorkers(t *testing.T) {
	content := bytes.Repeat([]byte("d"), 64)
	store := newMemStore()
	sink := newRecordSink()

	client := clientFunc(func(ctx context.Context, url string, offset uint64) (*port.FetchResult, error) {
		return fullBody(content, false), nil
	})

	targets := make([]domain.Target, 0, 7)
	for _, name := range []string{"a.bin", "b.bin", "c.bin", "d.bin", "e.bin", "f.bin", "g.bin"} {
		targets = append(targets, testTarget(name))
	}

	orch := testOrchestrator(client, store, 64, sink, 3)
	results := orch.Run(context.Background(), targets)

	if results.Completed() != 7 {
		t.Fatalf("completed = %d, want all 7", results.Completed())
	}
	if results.BatchID == "" {
		t.Error("batch id is empty")
	}
	for _, tgt := range targets {
		if got := uint64(len(store.final[tgt.Name])); got != 64 {
			t.Errorf("%s final size = %d, want 64", tgt.Name, got)
		}
	}
}
