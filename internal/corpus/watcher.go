package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/inkstone-labs/inkdex/internal/persist"
)

// DefaultDebounceWindow coalesces editor save bursts (write + chmod +
// rename dances) into a single batch per path set.
const DefaultDebounceWindow = 200 * time.Millisecond

// Watcher translates filesystem events under the vault into batched
// path notifications. Every event for an eligible-looking path ends up
// as an enqueue: the workers reconcile, so a delete, rename, or create
// all reduce to "look at this path again".
type Watcher struct {
	corpus  *FSCorpus
	sink    func(paths ...string)
	tracked func() []string
	logger  *slog.Logger

	mu        sync.Mutex
	pending   map[string]struct{}
	debouncer *persist.Debouncer
}

// NewWatcher creates a watcher over the corpus. Debounced path batches
// are delivered to sink. tracked returns the paths currently held by the
// indexes; it is consulted when a directory disappears, since a renamed
// or removed directory emits no per-file events for its old contents.
// tracked may be nil. A window <= 0 uses DefaultDebounceWindow.
func NewWatcher(c *FSCorpus, sink func(paths ...string), tracked func() []string, window time.Duration, logger *slog.Logger) *Watcher {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		corpus:  c,
		sink:    sink,
		tracked: tracked,
		logger:  logger.With("component", "watcher"),
		pending: make(map[string]struct{}),
	}
	w.debouncer = persist.NewDebouncer(window, nil, w.flush)
	return w
}

// Run watches the vault until ctx is cancelled. It blocks; callers run
// it in its own goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create filesystem watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addRecursive(fsw, w.corpus.Root()); err != nil {
		return fmt.Errorf("watch vault: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			w.debouncer.Cancel()
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event) {
	rel := w.corpus.Rel(event.Name)
	if w.corpus.IsExcluded(rel) {
		return
	}

	// New directories must be added to the watch set, and any documents
	// already inside them (e.g. a moved-in folder) enqueued.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(fsw, event.Name); err != nil {
				w.logger.Warn("watch new directory", "path", rel, "error", err)
			}
			w.enqueueTree(event.Name)
			return
		}
	}

	if !eligibleExtensions[strings.ToLower(path.Ext(rel))] {
		// A Rename or Remove with no eligible extension is usually a
		// directory disappearing. The directory's old contents emit no
		// events of their own, so enqueue every tracked path under it and
		// let the workers discover the files are gone.
		if event.Op.Has(fsnotify.Rename) || event.Op.Has(fsnotify.Remove) {
			w.enqueueTracked(rel + "/")
		}
		return
	}
	w.add(rel)
}

// enqueueTracked queues every tracked path under prefix.
func (w *Watcher) enqueueTracked(prefix string) {
	if w.tracked == nil {
		return
	}
	for _, p := range w.tracked() {
		if strings.HasPrefix(p, prefix) {
			w.add(p)
		}
	}
}

// enqueueTree queues every eligible document under dir.
func (w *Watcher) enqueueTree(dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel := w.corpus.Rel(p)
		if !w.corpus.IsExcluded(rel) && eligibleExtensions[strings.ToLower(path.Ext(rel))] {
			w.add(rel)
		}
		return nil
	})
}

func (w *Watcher) add(rel string) {
	w.mu.Lock()
	w.pending[rel] = struct{}{}
	w.mu.Unlock()
	w.debouncer.Arm()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	w.logger.Debug("dispatching changed paths", "count", len(paths))
	w.sink(paths...)
}

func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.corpus.IsExcluded(w.corpus.Rel(p)) {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			w.logger.Warn("watch directory", "path", w.corpus.Rel(p), "error", err)
		}
		return nil
	})
}
