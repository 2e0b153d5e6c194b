package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/vertextoedge/bulkfetch/internal/domain"
	"github.com/vertextoedge/bulkfetch/internal/port"
)

// ClientConfig tunes the HTTP clients used for transfers.
type ClientConfig struct {
	// StreamTimeout bounds connection establishment and the wait for
	// response headers on the streaming GET. It deliberately does not
	// bound the body read: downloads may run for hours.
	StreamTimeout time.Duration

	// ProbeTimeout bounds the whole HEAD size probe.
	ProbeTimeout time.Duration

	// ConnectivityTimeout bounds the whole connectivity check.
	ConnectivityTimeout time.Duration

	MaxIdleConnsPerHost int
	UserAgent           string
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		StreamTimeout:       30 * time.Second,
		ProbeTimeout:        10 * time.Second,
		ConnectivityTimeout: 5 * time.Second,
		MaxIdleConnsPerHost: 10,
		UserAgent:           "bulkfetch/1.0",
	}
}

// Client issues the streaming (optionally ranged) GET for a transfer.
type Client struct {
	http      *http.Client
	userAgent string
}

// Ensure Client implements port.StreamClient
var _ port.StreamClient = (*Client)(nil)

// NewClient creates a streaming client from cfg.
func NewClient(cfg *ClientConfig) *Client {
	if cfg == nil {
		cfg = DefaultClientConfig()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.StreamTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.StreamTimeout,
	}

	return &Client{
		http:      &http.Client{Transport: transport},
		userAgent: cfg.UserAgent,
	}
}

// Fetch requests url starting at offset. A positive offset adds a
// Range header; Partial reports whether the server honored it with
// 206. Errors are classified into the domain taxonomy.
func (c *Client) Fetch(ctx context.Context, url string, offset uint64) (*port.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewRequestError("fetch", 0, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, Classify("fetch", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, domain.NewRequestError("fetch", resp.StatusCode,
			fmt.Errorf("unexpected status %s", resp.Status))
	}

	return &port.FetchResult{
		Body:    &classifiedBody{rc: resp.Body},
		Partial: resp.StatusCode == http.StatusPartialContent,
	}, nil
}

// classifiedBody maps body read errors into the domain taxonomy so the
// transfer loop never sees raw transport errors.
type classifiedBody struct {
	rc io.ReadCloser
}

func (b *classifiedBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if err != nil && err != io.EOF {
		err = Classify("stream", err)
	}
	return n, err
}

func (b *classifiedBody) Close() error {
	return b.rc.Close()
}

// Classify maps a transport or stack error into the domain taxonomy.
// Connection-level failures (reset, refused, unreachable, truncated
// read) become connectivity-loss errors; timeouts, DNS failures and
// anything else become bounded-retry request errors. Context
// cancellation passes through untouched.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if domain.IsConnectivityLoss(err) || domain.IsRequestFailure(err) {
		return err
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.NewRequestError(op, 0, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewRequestError(op, 0, err)
	}

	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.ENETDOWN) {
		return domain.NewConnectivityError(op, err)
	}

	// Remaining net.OpErrors are connection-level (broken pipe on a
	// proxied socket, closed connection mid-read).
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return domain.NewConnectivityError(op, err)
	}

	return domain.NewRequestError(op, 0, err)
}
