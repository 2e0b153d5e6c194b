package port

import (
	"context"
	"io"
	"time"
)

// SizeProber queries a remote resource's total byte length.
type SizeProber interface {
	// Probe issues a metadata-only request and returns the reported
	// length in bytes. Returns 0 when the server omits a length or
	// the probe fails; unknown size is degraded mode, not an error.
	Probe(ctx context.Context, url string) uint64
}

// ConnectivityMonitor answers whether the network path is up, using a
// lightweight probe against a fixed, highly-available endpoint.
type ConnectivityMonitor interface {
	// Reachable performs a single blocking probe. It returns false
	// only on a connection-level failure; any HTTP response, error
	// status included, counts as reachable.
	Reachable(ctx context.Context) bool

	// AwaitReachable polls Reachable with pollInterval sleeps until
	// the network is back. There is no upper bound; it returns early
	// only when ctx is cancelled.
	AwaitReachable(ctx context.Context, pollInterval time.Duration) error
}

// FetchResult is an open streaming response for one (ranged) fetch.
type FetchResult struct {
	// Body streams the response. Read errors are already classified
	// into the domain error taxonomy by the implementation.
	Body io.ReadCloser

	// Partial is true when the server honored a byte-range request
	// with 206 Partial Content.
	Partial bool
}

// StreamClient issues the streaming GET for a transfer.
type StreamClient interface {
	// Fetch requests url starting at offset. offset > 0 adds a
	// "Range: bytes=<offset>-" header. Errors are classified into
	// the domain taxonomy: connectivity-loss vs request-level.
	Fetch(ctx context.Context, url string, offset uint64) (*FetchResult, error)
}
