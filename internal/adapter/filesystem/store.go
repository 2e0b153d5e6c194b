package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vertextoedge/bulkfetch/internal/port"
)

// Store handles local filesystem operations for transfers. Partial
// files live under tempDir; completed files under downloadDir, both
// keyed by the target's derived name.
type Store struct {
	tempDir     string
	downloadDir string
}

// Ensure Store implements port.LocalStore
var _ port.LocalStore = (*Store)(nil)

// NewStore creates a Store, creating both directories if needed.
func NewStore(tempDir, downloadDir string) (*Store, error) {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	return &Store{
		tempDir:     tempDir,
		downloadDir: downloadDir,
	}, nil
}

// TempPath returns the partial-file path for a target name.
func (s *Store) TempPath(name string) string {
	return filepath.Join(s.tempDir, name)
}

// FinalPath returns the completed-file path for a target name.
func (s *Store) FinalPath(name string) string {
	return filepath.Join(s.downloadDir, name)
}

func (s *Store) path(name string, loc port.Location) string {
	if loc == port.LocationTemp {
		return s.TempPath(name)
	}
	return s.FinalPath(name)
}

// ExistingBytes returns the size of the named file at loc, 0 if absent.
func (s *Store) ExistingBytes(name string, loc port.Location) uint64 {
	info, err := os.Stat(s.path(name, loc))
	if err != nil {
		return 0
	}
	return uint64(info.Size())
}

// OpenAppend opens the temp file positioned at end-of-file for resuming.
func (s *Store) OpenAppend(name string) (io.WriteCloser, error) {
	f, err := os.OpenFile(s.TempPath(name), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open temp file for resume: %w", err)
	}
	return f, nil
}

// OpenTruncate opens the temp file truncated for a fresh start.
func (s *Store) OpenTruncate(name string) (io.WriteCloser, error) {
	f, err := os.OpenFile(s.TempPath(name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return f, nil
}

// Finalize atomically moves the temp file into the download directory.
func (s *Store) Finalize(name string) error {
	if err := os.Rename(s.TempPath(name), s.FinalPath(name)); err != nil {
		return fmt.Errorf("failed to move temp file to final location: %w", err)
	}
	return nil
}

// IsComplete reports whether the final file exists with exactly total bytes.
func (s *Store) IsComplete(name string, total uint64) bool {
	if total == 0 {
		return false
	}
	info, err := os.Stat(s.FinalPath(name))
	if err != nil {
		return false
	}
	return uint64(info.Size()) == total
}
