package checklist

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is how long the watcher waits for further writes before
// signalling a reload. Editors often write files in several events.
const defaultDebounce = 500 * time.Millisecond

// Watcher signals when a watched checklist document changes on disk.
type Watcher struct {
	paths    map[string]bool
	debounce time.Duration
	logger   *slog.Logger

	watcher *fsnotify.Watcher
	events  chan string

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer
}

// NewWatcher watches the given document files for modification.
func NewWatcher(paths []string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		paths:    make(map[string]bool, len(paths)),
		debounce: defaultDebounce,
		logger:   logger,
		watcher:  fsw,
		events:   make(chan string, 16),
		pending:  make(map[string]bool),
	}

	// Watch parent directories: many editors replace files on save, which
	// drops the watch on the file itself.
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		w.paths[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			w.logger.Warn("Failed to watch checklist directory", "dir", dir, "error", err)
		}
	}

	return w, nil
}

// Events delivers the path of each changed document, debounced.
func (w *Watcher) Events() <-chan string { return w.events }

// Run processes fsnotify events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !w.paths[abs] {
				continue
			}
			w.schedule(abs)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Checklist watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	for _, p := range paths {
		w.logger.Info("Checklist document changed", "path", p)
		select {
		case w.events <- p:
		default:
			w.logger.Warn("Checklist reload channel full, dropping event", "path", p)
		}
	}
}
