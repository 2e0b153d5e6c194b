package fetcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/vertextoedge/bulkfetch/internal/domain"
	"github.com/vertextoedge/bulkfetch/internal/port"
	"go.uber.org/zap"
)

// Config contains orchestrator configuration
type Config struct {
	// Workers is the number of parallel transfer workers.
	Workers int

	// Policy is applied to every transfer in the batch.
	Policy Policy
}

// DefaultConfig returns default orchestrator configuration
func DefaultConfig() Config {
	return Config{
		Workers: 5,
		Policy:  DefaultPolicy(),
	}
}

// Orchestrator runs a batch of transfers over a fixed worker pool.
// One failed target never aborts its siblings; every target is
// attempted exactly once per invocation.
type Orchestrator struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(cfg Config, deps Deps, logger *zap.Logger) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	return &Orchestrator{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}
}

// Results collects the terminal outcomes of one batch.
type Results struct {
	BatchID  string
	Outcomes []domain.Outcome
}

// Completed returns the number of targets that finished successfully.
func (r Results) Completed() int {
	n := 0
	for _, out := range r.Outcomes {
		if out.Completed() {
			n++
		}
	}
	return n
}

// Failed returns the number of targets that reached a failed phase.
func (r Results) Failed() int {
	return len(r.Outcomes) - r.Completed()
}

// Run downloads every target and returns when all of them reach a
// terminal phase. Pending targets are scheduled first-submitted,
// first-served as worker slots free up.
func (o *Orchestrator) Run(ctx context.Context, targets []domain.Target) Results {
	batchID := uuid.NewString()
	o.logger.Info("batch started",
		zap.String("batch_id", batchID),
		zap.Int("targets", len(targets)),
		zap.Int("workers", o.cfg.Workers))

	// Probe every size up front so the progress display opens with
	// full totals, seeded with bytes left over from earlier runs.
	for _, tgt := range targets {
		total := o.deps.Prober.Probe(ctx, tgt.URL)
		initial := o.deps.Store.ExistingBytes(tgt.Name, port.LocationTemp)
		o.deps.Sink.InitTotal(tgt.Name, total, initial)
	}

	pending := make(chan domain.Target)
	outcomes := make(chan domain.Outcome, len(targets))

	var wg sync.WaitGroup
	for i := 0; i < o.cfg.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for tgt := range pending {
				outcomes <- o.runOne(ctx, batchID, worker, tgt)
			}
		}(i)
	}

	for _, tgt := range targets {
		pending <- tgt
	}
	close(pending)
	wg.Wait()
	close(outcomes)

	results := Results{
		BatchID:  batchID,
		Outcomes: make([]domain.Outcome, 0, len(targets)),
	}
	for out := range outcomes {
		results.Outcomes = append(results.Outcomes, out)
	}

	if err := o.deps.Sink.Close(); err != nil {
		o.logger.Warn("failed to close progress sink", zap.Error(err))
	}

	o.logSummary(batchID, results)
	return results
}

// runOne drives a single transfer, converting a worker-level fault
// into a failed outcome so siblings keep running.
func (o *Orchestrator) runOne(ctx context.Context, batchID string, worker int, tgt domain.Target) (out domain.Outcome) {
	logger := o.logger.With(
		zap.String("worker", fmt.Sprintf("worker-%d", worker)),
		zap.String("name", tgt.Name))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("unexpected worker fault", zap.Any("fault", r))
			out = domain.Outcome{
				Target: tgt,
				Phase:  domain.PhaseFailed,
				Err:    fmt.Errorf("worker fault: %v", r),
			}
		}
	}()

	return NewTransfer(batchID, tgt, o.deps, o.cfg.Policy, logger).Run(ctx)
}

func (o *Orchestrator) logSummary(batchID string, results Results) {
	if o.deps.Journal != nil {
		if summary, err := o.deps.Journal.Summary(batchID); err != nil {
			o.logger.Warn("failed to read batch summary", zap.Error(err))
		} else {
			o.logger.Info("batch finished",
				zap.String("batch_id", batchID),
				zap.Int("completed", summary.Completed),
				zap.Int("failed", summary.Failed),
				zap.String("downloaded", humanize.Bytes(summary.TotalBytes)))
			return
		}
	}

	o.logger.Info("batch finished",
		zap.String("batch_id", batchID),
		zap.Int("completed", results.Completed()),
		zap.Int("failed", results.Failed()))
}
