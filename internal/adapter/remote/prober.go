package remote

import (
	"context"
	"net/http"
	"time"

	"github.com/vertextoedge/bulkfetch/internal/port"
	"go.uber.org/zap"
)

// Prober queries a resource's total size with a HEAD request.
// A failed or inconclusive probe degrades to unknown size (0) and is
// never retried; the transfer proceeds without a target bound.
type Prober struct {
	http      *http.Client
	userAgent string
	logger    *zap.Logger
}

// Ensure Prober implements port.SizeProber
var _ port.SizeProber = (*Prober)(nil)

// NewProber creates a Prober with the given whole-request timeout.
func NewProber(timeout time.Duration, userAgent string, logger *zap.Logger) *Prober {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Prober{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
		logger:    logger,
	}
}

// Probe returns the server-reported Content-Length, or 0 when the
// probe fails or the server omits a length.
func (p *Prober) Probe(ctx context.Context, url string) uint64 {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		p.logger.Warn("failed to build size probe", zap.String("url", url), zap.Error(err))
		return 0
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.http.Do(req)
	if err != nil {
		p.logger.Warn("size probe failed", zap.String("url", url), zap.Error(err))
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("size probe rejected",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode))
		return 0
	}

	if resp.ContentLength <= 0 {
		return 0
	}
	return uint64(resp.ContentLength)
}
