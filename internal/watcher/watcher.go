// Package watcher watches per-organisation upload directories and hands
// dropped files to the ingestion pipeline, debouncing editor write bursts.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// FileHandler receives a settled file together with the organisation that
// owns the directory it was dropped into.
type FileHandler func(orgID, path string)

// UploadWatcher maps watched directories to organisations. A file created
// or rewritten in a directory is reported once its writes settle; files
// with non-matching extensions are ignored.
type UploadWatcher struct {
	dirs       map[string]string // clean directory path -> organisation id
	extensions []string
	onFile     FileHandler
	debounce   time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	timers   map[string]*time.Timer
	started  bool
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures an UploadWatcher.
type Option func(*UploadWatcher)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *UploadWatcher) {
		w.logger = logger
	}
}

// WithDebounce overrides the settle delay before a written file is reported.
func WithDebounce(d time.Duration) Option {
	return func(w *UploadWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates an UploadWatcher. dirs maps directory paths to organisation
// ids; extensions filters which files are reported (empty matches all).
func New(dirs map[string]string, extensions []string, onFile FileHandler, opts ...Option) *UploadWatcher {
	clean := make(map[string]string, len(dirs))
	for dir, orgID := range dirs {
		clean[filepath.Clean(dir)] = orgID
	}
	w := &UploadWatcher{
		dirs:       clean,
		extensions: extensions,
		onFile:     onFile,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		timers:     make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. Missing directories are created. Runs until ctx is
// cancelled or Stop is called.
func (w *UploadWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	for dir := range w.dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			_ = watcher.Close()
			w.mu.Unlock()
			return err
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			w.mu.Unlock()
			return err
		}
	}
	w.watcher = watcher
	w.started = true
	w.mu.Unlock()

	w.logger.Debug("upload watcher started",
		zap.Int("directories", len(w.dirs)),
		zap.Strings("extensions", w.extensions))
	go w.run(ctx)
	return nil
}

func (w *UploadWatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("upload watcher error", zap.Error(err))
			}
		}
	}
}

func (w *UploadWatcher) handleEvent(ev fsnotify.Event) {
	orgID, ok := w.ownerOf(ev.Name)
	if !ok {
		return
	}
	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if info, err := os.Stat(ev.Name); err != nil || info.IsDir() {
			return
		}
		if !matchExtension(ev.Name, w.extensions) {
			return
		}
		w.debounceFile(orgID, ev.Name)
	case ev.Op&fsnotify.Remove != 0:
		w.cancelTimer(ev.Name)
	}
}

// ownerOf resolves which organisation's directory a path belongs to.
func (w *UploadWatcher) ownerOf(path string) (string, bool) {
	orgID, ok := w.dirs[filepath.Dir(filepath.Clean(path))]
	return orgID, ok
}

// debounceFile schedules the handler after the settle delay, restarting the
// timer on every further write to the same path.
func (w *UploadWatcher) debounceFile(orgID, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.logger.Debug("upload settled",
			zap.String("organisation", orgID),
			zap.String("path", path))
		if w.onFile != nil {
			w.onFile(orgID, path)
		}
	})
}

func (w *UploadWatcher) cancelTimer(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
}

// SyncExisting reports every matching file already present in the watched
// directories. Call after Start to pick up files dropped while the process
// was down.
func (w *UploadWatcher) SyncExisting() {
	for dir, orgID := range w.dirs {
		filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			if matchExtension(path, w.extensions) && w.onFile != nil {
				w.onFile(orgID, path)
			}
			return nil
		})
	}
}

// Stop stops watching and releases resources.
func (w *UploadWatcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
