package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vertextoedge/bulkfetch/internal/port"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	store, err := NewStore(filepath.Join(root, "temp"), filepath.Join(root, "downloads"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestNewStore_CreatesDirectories(t *testing.T) {
	store := newTestStore(t)

	for _, dir := range []string{store.tempDir, store.downloadDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}

func TestStore_ExistingBytes(t *testing.T) {
	store := newTestStore(t)

	if got := store.ExistingBytes("missing.bin", port.LocationTemp); got != 0 {
		t.Errorf("ExistingBytes(missing, temp) = %d, want 0", got)
	}
	if got := store.ExistingBytes("missing.bin", port.LocationFinal); got != 0 {
		t.Errorf("ExistingBytes(missing, final) = %d, want 0", got)
	}

	if err := os.WriteFile(store.TempPath("a.bin"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := store.ExistingBytes("a.bin", port.LocationTemp); got != 5 {
		t.Errorf("ExistingBytes(a.bin, temp) = %d, want 5", got)
	}
	if got := store.ExistingBytes("a.bin", port.LocationFinal); got != 0 {
		t.Errorf("ExistingBytes(a.bin, final) = %d, want 0", got)
	}
}

func TestStore_OpenAppend(t *testing.T) {
	store := newTestStore(t)

	if err := os.WriteFile(store.TempPath("a.bin"), []byte("01234"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := store.OpenAppend("a.bin")
	if err != nil {
		t.Fatalf("OpenAppend: %v", err)
	}
	if _, err := w.Write([]byte("56789")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(store.TempPath("a.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "0123456789" {
		t.Errorf("temp file = %q, want %q", data, "0123456789")
	}
}

func TestStore_OpenTruncate(t *testing.T) {
	store := newTestStore(t)

	if err := os.WriteFile(store.TempPath("a.bin"), []byte("old content"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := store.OpenTruncate("a.bin")
	if err != nil {
		t.Fatalf("OpenTruncate: %v", err)
	}
	if _, err := w.Write([]byte("new")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(store.TempPath("a.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Errorf("temp file = %q, want %q", data, "new")
	}
}

func TestStore_Finalize(t *testing.T) {
	store := newTestStore(t)

	if err := os.WriteFile(store.TempPath("a.bin"), []byte("done"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := store.Finalize("a.bin"); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if _, err := os.Stat(store.TempPath("a.bin")); !os.IsNotExist(err) {
		t.Error("temp file should be gone after Finalize")
	}
	data, err := os.ReadFile(store.FinalPath("a.bin"))
	if err != nil {
		t.Fatalf("final file missing: %v", err)
	}
	if string(data) != "done" {
		t.Errorf("final file = %q, want %q", data, "done")
	}
}

func TestStore_FinalizeMissingTemp(t *testing.T) {
	store := newTestStore(t)

	if err := store.Finalize("nope.bin"); err == nil {
		t.Error("Finalize of a missing temp file should fail")
	}
}

func TestStore_IsComplete(t *testing.T) {
	store := newTestStore(t)

	if err := os.WriteFile(store.FinalPath("a.bin"), []byte("12345"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		file  string
		total uint64
		want  bool
	}{
		{"matching size", "a.bin", 5, true},
		{"size mismatch", "a.bin", 6, false},
		{"unknown size never complete", "a.bin", 0, false},
		{"missing file", "b.bin", 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := store.IsComplete(tt.file, tt.total); got != tt.want {
				t.Errorf("IsComplete(%q, %d) = %v, want %v", tt.file, tt.total, got, tt.want)
			}
		})
	}
}
