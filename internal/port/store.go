package port

import "io"

// Location selects which copy of a target's file is being inspected.
type Location int

const (
	// LocationTemp is the directory holding in-progress partial files.
	LocationTemp Location = iota
	// LocationFinal is the directory holding completed downloads.
	LocationFinal
)

// LocalStore defines the interface for local file operations backing
// a transfer: partial files live under a temp directory and are moved
// atomically into the download directory on completion.
type LocalStore interface {
	// ExistingBytes returns the size of the named file at the given
	// location, or 0 if it does not exist.
	ExistingBytes(name string, loc Location) uint64

	// OpenAppend opens the temp file positioned at end-of-file,
	// creating it if absent. Used when resuming.
	OpenAppend(name string) (io.WriteCloser, error)

	// OpenTruncate opens the temp file truncated to zero length.
	// Used when starting fresh or restarting.
	OpenTruncate(name string) (io.WriteCloser, error)

	// Finalize atomically moves the temp file to the final location.
	Finalize(name string) error

	// IsComplete reports whether the final file exists with exactly
	// total bytes. Only meaningful for a known, nonzero total.
	IsComplete(name string, total uint64) bool
}
