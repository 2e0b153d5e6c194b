package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vertextoedge/bulkfetch/internal/domain"
	"github.com/vertextoedge/bulkfetch/internal/port"
	"github.com/vertextoedge/bulkfetch/internal/util/ratelimiter"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Policy contains the retry and streaming knobs for one transfer.
type Policy struct {
	// MaxRetries bounds request-level failures. Connectivity-loss
	// failures are gated on the network monitor instead and never
	// consume the budget.
	MaxRetries uint32

	// RetryDelay is the fixed sleep between request-level retries.
	RetryDelay time.Duration

	// PollInterval is the sleep between connectivity probes while
	// waiting out a network outage.
	PollInterval time.Duration

	// ChunkSize is the read/write increment while streaming. It only
	// affects progress granularity and syscall count.
	ChunkSize int

	// JournalInterval throttles mid-stream journal writes.
	JournalInterval time.Duration

	// Bandwidth optionally caps streaming throughput. Shared across
	// workers when the orchestrator runs many transfers.
	Bandwidth *rate.Limiter
}

// DefaultPolicy returns a Policy with sensible defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      10,
		RetryDelay:      5 * time.Second,
		PollInterval:    5 * time.Second,
		ChunkSize:       8 * 1024,
		JournalInterval: 5 * time.Second,
	}
}

// Deps bundles the collaborators a transfer drives.
type Deps struct {
	Prober  port.SizeProber
	Client  port.StreamClient
	Store   port.LocalStore
	Network port.ConnectivityMonitor
	Sink    port.ProgressSink

	// Journal is optional; nil disables persistence.
	Journal port.TransferJournal
}

// Transfer drives one target from probing to a terminal phase. It is
// owned by a single worker; nothing here is safe for concurrent use.
type Transfer struct {
	batchID string
	policy  Policy
	deps    Deps
	logger  *zap.Logger

	state       domain.TransferState
	journalGate *ratelimiter.Limiter
}

// NewTransfer creates a Transfer for target.
func NewTransfer(batchID string, target domain.Target, deps Deps, policy Policy, logger *zap.Logger) *Transfer {
	if policy.ChunkSize <= 0 {
		policy.ChunkSize = 8 * 1024
	}
	if policy.JournalInterval == 0 {
		policy.JournalInterval = 5 * time.Second
	}

	return &Transfer{
		batchID: batchID,
		policy:  policy,
		deps:    deps,
		logger:  logger,
		state: domain.TransferState{
			Target: target,
			Phase:  domain.PhaseProbing,
		},
		journalGate: ratelimiter.New(policy.JournalInterval),
	}
}

// Run drives the transfer to a terminal phase. Every failure is
// handled here; the returned outcome is the only way a result leaves
// the transfer.
func (t *Transfer) Run(ctx context.Context) domain.Outcome {
	name := t.state.Target.Name

	t.setPhase(domain.PhaseProbing)
	t.state.TotalSize = t.deps.Prober.Probe(ctx, t.state.Target.URL)

	start := t.deps.Store.ExistingBytes(name, port.LocationTemp)
	t.logger.Info("starting transfer",
		zap.String("size", humanize.Bytes(t.state.TotalSize)),
		zap.String("already_downloaded", humanize.Bytes(start)))

	t.recordStart(start)

	// A final file matching the probed size means a previous run
	// finished; report full completion without fetching a body.
	if t.deps.Store.IsComplete(name, t.state.TotalSize) {
		t.logger.Info("file already downloaded")
		t.state.BytesCompleted = t.state.TotalSize
		t.deps.Sink.Finalize(name, t.state.TotalSize)
		return t.finish(domain.PhaseCompleted, nil)
	}

	for {
		if err := ctx.Err(); err != nil {
			return t.finish(domain.PhaseFailed, err)
		}

		if start > 0 {
			t.setPhase(domain.PhaseResuming)
		} else {
			t.setPhase(domain.PhaseStarting)
		}
		t.state.BytesCompleted = start

		res, err := t.deps.Client.Fetch(ctx, t.state.Target.URL, start)
		if err == nil {
			err = t.streamBody(ctx, res, start)
		}

		if err == nil {
			t.setPhase(domain.PhaseFinalizing)
			if ferr := t.deps.Store.Finalize(name); ferr != nil {
				err = domain.NewRequestError("finalize", 0, ferr)
			}
		}

		if err != nil {
			out, terminal := t.handleFailure(ctx, err, &start)
			if terminal {
				return out
			}
			continue
		}

		total := t.state.TotalSize
		if total == 0 {
			total = t.state.BytesCompleted
		}
		t.state.BytesCompleted = total
		t.deps.Sink.Finalize(name, total)
		t.logger.Info("download completed", zap.String("size", humanize.Bytes(total)))
		return t.finish(domain.PhaseCompleted, nil)
	}
}

// streamBody copies the response to the temp file in fixed-size
// chunks, emitting one progress delta per chunk. When the server
// ignored a requested range it restarts from the full body exactly
// once, without consuming a retry.
func (t *Transfer) streamBody(ctx context.Context, res *port.FetchResult, start uint64) error {
	defer res.Body.Close()
	name := t.state.Target.Name

	if start > 0 && !res.Partial {
		t.logger.Warn("server does not support resume, restarting download")
		start = 0
		t.state.BytesCompleted = 0
		t.deps.Sink.Restart(name)
		t.setPhase(domain.PhaseStarting)
	}

	var w io.WriteCloser
	var err error
	if start > 0 {
		w, err = t.deps.Store.OpenAppend(name)
	} else {
		w, err = t.deps.Store.OpenTruncate(name)
	}
	if err != nil {
		return domain.NewRequestError("open", 0, err)
	}

	t.setPhase(domain.PhaseStreaming)

	buf := make([]byte, t.policy.ChunkSize)
	for {
		n, rerr := res.Body.Read(buf)
		if n > 0 {
			if t.policy.Bandwidth != nil {
				if werr := t.policy.Bandwidth.WaitN(ctx, n); werr != nil {
					w.Close()
					return werr
				}
			}
			if _, werr := w.Write(buf[:n]); werr != nil {
				w.Close()
				return domain.NewRequestError("write", 0, werr)
			}
			t.state.BytesCompleted += uint64(n)
			t.deps.Sink.Advance(name, uint64(n))
			t.journalProgress()
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			w.Close()
			return rerr
		}
	}

	if cerr := w.Close(); cerr != nil {
		return domain.NewRequestError("close", 0, cerr)
	}
	return nil
}

// handleFailure applies the retry policy to a classified failure and
// reports whether the transfer is terminal. On a non-terminal return
// the resume offset has been recomputed from the temp file.
func (t *Transfer) handleFailure(ctx context.Context, err error, start *uint64) (domain.Outcome, bool) {
	name := t.state.Target.Name

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return t.finish(domain.PhaseFailed, err), true
	}

	if domain.IsConnectivityLoss(err) {
		// Infinite-retry class: wait out the outage, then resume
		// from whatever made it to disk. Never counts as a retry.
		t.logger.Warn("connection lost during download", zap.Error(err))
		if werr := t.deps.Network.AwaitReachable(ctx, t.policy.PollInterval); werr != nil {
			return t.finish(domain.PhaseFailed, werr), true
		}
		*start = t.deps.Store.ExistingBytes(name, port.LocationTemp)
		return domain.Outcome{}, false
	}

	t.state.RetryCount++
	if t.state.RetryCount > t.policy.MaxRetries {
		t.logger.Error("exceeded maximum retries, download failed",
			zap.Uint32("max_retries", t.policy.MaxRetries),
			zap.Error(err))
		return t.finish(domain.PhaseFailed, fmt.Errorf("%w: %w", domain.ErrRetriesExhausted, err)), true
	}

	t.logger.Error("download error, will retry",
		zap.Uint32("retry", t.state.RetryCount),
		zap.Uint32("max_retries", t.policy.MaxRetries),
		zap.Error(err))

	select {
	case <-ctx.Done():
		return t.finish(domain.PhaseFailed, ctx.Err()), true
	case <-time.After(t.policy.RetryDelay):
	}

	*start = t.deps.Store.ExistingBytes(name, port.LocationTemp)
	return domain.Outcome{}, false
}

func (t *Transfer) setPhase(phase domain.Phase) {
	t.state.Phase = phase
	t.logger.Debug("phase transition", zap.String("phase", string(phase)))
}

func (t *Transfer) recordStart(start uint64) {
	if t.deps.Journal == nil {
		return
	}
	snapshot := t.state
	snapshot.BytesCompleted = start
	if err := t.deps.Journal.RecordStart(t.batchID, &snapshot); err != nil {
		t.logger.Warn("failed to record transfer start", zap.Error(err))
	}
}

func (t *Transfer) journalProgress() {
	if t.deps.Journal == nil {
		return
	}
	if allowed, _ := t.journalGate.Allow(); !allowed {
		return
	}
	if err := t.deps.Journal.RecordProgress(t.batchID, &t.state); err != nil {
		t.logger.Warn("failed to record transfer progress", zap.Error(err))
	}
}

func (t *Transfer) finish(phase domain.Phase, err error) domain.Outcome {
	t.state.Phase = phase
	out := domain.Outcome{
		Target:         t.state.Target,
		Phase:          phase,
		TotalSize:      t.state.TotalSize,
		BytesCompleted: t.state.BytesCompleted,
		Retries:        t.state.RetryCount,
		Err:            err,
	}

	if t.deps.Journal != nil {
		if jerr := t.deps.Journal.RecordOutcome(t.batchID, out); jerr != nil {
			t.logger.Warn("failed to record transfer outcome", zap.Error(jerr))
		}
	}
	return out
}
