package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Target is one URL to download, identified by its derived file name.
type Target struct {
	URL  string
	Name string
}

// NewTarget builds a Target from a raw URL. The name is the last
// segment of the URL path and must be non-empty, since it doubles as
// the local file name in both the temp and download directories.
func NewTarget(rawURL string) (Target, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Target{}, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Target{}, fmt.Errorf("unsupported scheme %q in url %q", parsed.Scheme, rawURL)
	}

	segments := strings.Split(parsed.Path, "/")
	name := segments[len(segments)-1]
	if name == "" {
		return Target{}, fmt.Errorf("url %q has no file name in its path", rawURL)
	}

	return Target{URL: rawURL, Name: name}, nil
}

// Phase describes where a transfer is in its lifecycle.
type Phase string

const (
	PhaseProbing    Phase = "probing"
	PhaseStarting   Phase = "starting"
	PhaseResuming   Phase = "resuming"
	PhaseStreaming  Phase = "streaming"
	PhaseFinalizing Phase = "finalizing"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

// Terminal reports whether no further transitions occur from this phase.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// TransferState is the mutable state of one in-flight transfer.
// It is owned exclusively by the transfer driving the target and is
// discarded once a terminal phase is reached.
type TransferState struct {
	Target Target

	// TotalSize is the server-reported size in bytes. 0 means unknown.
	TotalSize uint64

	// BytesCompleted is monotonically non-decreasing within a single
	// streaming run. A restart resets it to 0 together with the temp file.
	BytesCompleted uint64

	Phase      Phase
	RetryCount uint32
}

// ProgressEvent is one byte-delta observed by the progress sink.
// Events for a single target are strictly ordered; events across
// targets interleave arbitrarily.
type ProgressEvent struct {
	Name  string
	Total uint64
	Delta uint64
}

// Outcome is the terminal result of one transfer. Phase is always
// PhaseCompleted or PhaseFailed; Err is set only when Failed.
type Outcome struct {
	Target         Target
	Phase          Phase
	TotalSize      uint64
	BytesCompleted uint64
	Retries        uint32
	Err            error
}

// Completed reports whether the transfer finished successfully.
func (o Outcome) Completed() bool {
	return o.Phase == PhaseCompleted
}
