package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	files []string
	orgs  []string
}

func (r *recorder) handle(orgID, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orgs = append(r.orgs, orgID)
	r.files = append(r.files, path)
}

func (r *recorder) snapshot() ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.orgs...), append([]string(nil), r.files...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcherReportsSettledFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := New(map[string]string{dir: "org-1"}, []string{".txt"}, rec.handle, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "handbook.txt")
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(t, 3*time.Second, func() bool {
		_, files := rec.snapshot()
		return len(files) >= 1
	})
	if !ok {
		t.Fatal("file never reported")
	}
	orgs, files := rec.snapshot()
	if orgs[0] != "org-1" {
		t.Errorf("organisation = %s", orgs[0])
	}
	if filepath.Clean(files[0]) != filepath.Clean(path) {
		t.Errorf("path = %s", files[0])
	}
}

func TestWatcherExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := New(map[string]string{dir: "org-1"}, []string{".txt", ".md"}, rec.handle, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "ignored.bin"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(t, 3*time.Second, func() bool {
		_, files := rec.snapshot()
		return len(files) >= 1
	})
	if !ok {
		t.Fatal("matching file never reported")
	}
	time.Sleep(200 * time.Millisecond)
	_, files := rec.snapshot()
	for _, f := range files {
		if filepath.Ext(f) == ".bin" {
			t.Errorf("non-matching file reported: %s", f)
		}
	}
}

func TestWatcherMapsDirectoriesToOrganisations(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	rec := &recorder{}
	w := New(map[string]string{dirA: "org-a", dirB: "org-b"}, nil, rec.handle, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dirB, "upload.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(t, 3*time.Second, func() bool {
		orgs, _ := rec.snapshot()
		return len(orgs) >= 1
	})
	if !ok {
		t.Fatal("file never reported")
	}
	orgs, _ := rec.snapshot()
	if orgs[0] != "org-b" {
		t.Errorf("organisation = %s, want org-b", orgs[0])
	}
}

func TestWatcherSyncExisting(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "already-there.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	w := New(map[string]string{dir: "org-1"}, []string{".txt"}, rec.handle)
	w.SyncExisting()

	_, files := rec.snapshot()
	if len(files) != 1 {
		t.Fatalf("reported %d files, want 1", len(files))
	}
}

func TestWatcherCreatesMissingDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads", "acme")
	w := New(map[string]string{dir: "org-1"}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("watched directory not created: %v", err)
	}
}
