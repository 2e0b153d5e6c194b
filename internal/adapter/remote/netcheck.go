package remote

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/vertextoedge/bulkfetch/internal/port"
	"go.uber.org/zap"
)

// Monitor checks network reachability against a fixed, highly
// available endpoint. Any HTTP response, whatever the status, counts
// as reachable; only a transport-level failure counts as down.
type Monitor struct {
	http     *http.Client
	probeURL string
	logger   *zap.Logger
}

// Ensure Monitor implements port.ConnectivityMonitor
var _ port.ConnectivityMonitor = (*Monitor)(nil)

// NewMonitor creates a Monitor probing probeURL with the given timeout.
func NewMonitor(probeURL string, timeout time.Duration, logger *zap.Logger) *Monitor {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Monitor{
		http:     &http.Client{Timeout: timeout},
		probeURL: probeURL,
		logger:   logger,
	}
}

// Reachable performs a single blocking probe.
func (m *Monitor) Reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return false
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	resp.Body.Close()
	return true
}

// AwaitReachable polls until the network is back. Outages are assumed
// transient, so there is no upper bound; only ctx cancellation ends
// the wait early.
func (m *Monitor) AwaitReachable(ctx context.Context, pollInterval time.Duration) error {
	if pollInterval == 0 {
		pollInterval = 5 * time.Second
	}

	waited := false
	for !m.Reachable(ctx) {
		if err := ctx.Err(); err != nil {
			return err
		}
		waited = true
		m.logger.Warn("no network connectivity, waiting",
			zap.String("probe_url", m.probeURL),
			zap.Duration("poll_interval", pollInterval))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}

	if waited {
		m.logger.Info("network connectivity restored")
	}
	return nil
}
