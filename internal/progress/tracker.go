package progress

import (
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vertextoedge/bulkfetch/internal/port"
	"github.com/vertextoedge/bulkfetch/internal/util/ratelimiter"
	"go.uber.org/zap"
)

// TargetProgress is a snapshot of one target's counters.
type TargetProgress struct {
	Total    uint64
	Done     uint64
	Restarts int
	Final    bool
}

// Tracker is the default progress sink: a mutex-serialized aggregator
// that forwards throttled, human-readable progress lines to the
// logger. Workers call it concurrently; every update path takes the
// single lock, so per-target ordering observed by callers is kept.
type Tracker struct {
	logger  *zap.Logger
	logGate *ratelimiter.Limiter

	mu      sync.Mutex
	targets map[string]*TargetProgress
	started time.Time
}

// Ensure Tracker implements port.ProgressSink
var _ port.ProgressSink = (*Tracker)(nil)

// NewTracker creates a Tracker logging at most one aggregate progress
// line per logInterval.
func NewTracker(logger *zap.Logger, logInterval time.Duration) *Tracker {
	if logInterval == 0 {
		logInterval = time.Second
	}
	return &Tracker{
		logger:  logger,
		logGate: ratelimiter.New(logInterval),
		targets: make(map[string]*TargetProgress),
		started: time.Now(),
	}
}

// InitTotal establishes a target's total and seeds it with bytes
// already present locally from a previous run.
func (t *Tracker) InitTotal(name string, total, initial uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.targets[name] = &TargetProgress{Total: total, Done: initial}
}

// Advance adds delta bytes for the target.
func (t *Tracker) Advance(name string, delta uint64) {
	t.mu.Lock()
	tp, ok := t.targets[name]
	if !ok {
		tp = &TargetProgress{}
		t.targets[name] = tp
	}
	tp.Done += delta
	done, total := t.totalsLocked()
	t.mu.Unlock()

	if allowed, _ := t.logGate.Allow(); allowed {
		t.logger.Info("progress",
			zap.String("done", humanize.Bytes(done)),
			zap.String("total", humanize.Bytes(total)),
			zap.String("rate", humanize.Bytes(uint64(float64(done)/time.Since(t.started).Seconds()))+"/s"))
	}
}

// Restart resets the target's count after the server refused a resume.
func (t *Tracker) Restart(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tp, ok := t.targets[name]; ok {
		tp.Done = 0
		tp.Restarts++
	}
}

// Finalize reconciles the target to its true total.
func (t *Tracker) Finalize(name string, total uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tp, ok := t.targets[name]
	if !ok {
		tp = &TargetProgress{}
		t.targets[name] = tp
	}
	tp.Total = total
	tp.Done = total
	tp.Final = true
}

// Close logs the final batch totals.
func (t *Tracker) Close() error {
	t.mu.Lock()
	done, _ := t.totalsLocked()
	count := len(t.targets)
	t.mu.Unlock()

	t.logger.Info("progress finished",
		zap.Int("targets", count),
		zap.String("downloaded", humanize.Bytes(done)),
		zap.Duration("elapsed", time.Since(t.started).Round(time.Millisecond)))
	return nil
}

// Snapshot returns a copy of the target's counters, false if unknown.
func (t *Tracker) Snapshot(name string) (TargetProgress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tp, ok := t.targets[name]
	if !ok {
		return TargetProgress{}, false
	}
	return *tp, true
}

func (t *Tracker) totalsLocked() (done, total uint64) {
	for _, tp := range t.targets {
		done += tp.Done
		total += tp.Total
	}
	return done, total
}
