// Package worker implements the incremental index worker: a
// single-concurrency actor that owns a deduplicating path queue and
// reconciles one index against the corpus using content hashes.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/inkstone-labs/inkdex/internal/chunk"
	"github.com/inkstone-labs/inkdex/internal/diag"
	"github.com/inkstone-labs/inkdex/internal/store"
)

// Outcome classifies what processing one queued path did.
type Outcome string

const (
	// OutcomeExcluded: the path is excluded by policy; its chunks were removed.
	OutcomeExcluded Outcome = "excluded"
	// OutcomeNotEligible: the document is gone or not an indexable type;
	// its chunks were removed.
	OutcomeNotEligible Outcome = "not-eligible"
	// OutcomeHashUnchanged: content hash matches and chunks are present;
	// nothing to do.
	OutcomeHashUnchanged Outcome = "hash-unchanged"
	// OutcomeReindexed: the document was chunked and indexed.
	OutcomeReindexed Outcome = "reindexed"
	// OutcomeReadFailed: the document could not be read; it will be
	// retried on the next enqueue.
	OutcomeReadFailed Outcome = "read-failed"
	// OutcomeFailed: every chunk of the document failed to index; file
	// state was not updated so the next pass retries it.
	OutcomeFailed Outcome = "failed"
)

// Corpus is the document source the worker reconciles against.
type Corpus interface {
	// IsEligible reports whether the document exists and is an
	// indexable type.
	IsEligible(path string) bool
	// IsExcluded reports whether policy excludes the path from indexing.
	IsExcluded(path string) bool
	// ReadDocument returns the document's full text.
	ReadDocument(path string) (string, error)
}

// Target is one index's write surface. The vector and lexical indexes
// each get their own worker over their own Target.
type Target interface {
	// HasChunks reports whether the index currently holds chunks for path.
	HasChunks(path string) bool
	// RemovePath drops all chunks for path.
	RemovePath(path string)
	// ReindexPath chunks and indexes the document text, replacing any
	// previous chunks for path. It returns the number of chunks indexed.
	// An error means every chunk failed; partial failures return the
	// surviving count and nil.
	ReindexPath(ctx context.Context, path, text string) (int, error)
}

// DefaultYield is the pause between queue items, keeping a long drain
// from starving queries and snapshot writes.
const DefaultYield = 5 * time.Millisecond

// Config assembles a Worker.
type Config struct {
	// Name tags log lines and diagnostics, e.g. "vector" or "lexical".
	Name     string
	Corpus   Corpus
	Target   Target
	States   *store.FileStates
	Recorder *diag.Recorder
	// OnChange fires after every mutation of the target, typically to
	// arm the persistence debouncer. May be nil.
	OnChange func()
	// Yield overrides DefaultYield; useful in tests.
	Yield time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Status is a read-only snapshot of the worker.
type Status struct {
	QueueDepth int
	Running    bool
	Paused     bool
	Processed  uint64
}

// Worker drains its queue one path at a time on a single goroutine.
// Re-enqueuing a queued path is a no-op; enqueuing after the queue has
// drained restarts the goroutine. Enqueue, Pause, and Resume are the
// only mutation points.
type Worker struct {
	name     string
	corpus   Corpus
	target   Target
	states   *store.FileStates
	recorder *diag.Recorder
	onChange func()
	yield    time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	queue     []string
	queued    map[string]struct{}
	running   bool
	paused    bool
	processed uint64
}

// New creates a worker. Call Start before enqueuing does any work.
func New(cfg Config) *Worker {
	if cfg.Yield <= 0 {
		cfg.Yield = DefaultYield
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Worker{
		name:     cfg.Name,
		corpus:   cfg.Corpus,
		target:   cfg.Target,
		states:   cfg.States,
		recorder: cfg.Recorder,
		onChange: cfg.OnChange,
		yield:    cfg.Yield,
		logger:   cfg.Logger.With("worker", cfg.Name),
		queued:   make(map[string]struct{}),
	}
}

// Start binds the worker to ctx and begins draining any already-queued
// paths. Calling Start twice is a no-op.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx != nil {
		return
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.kickLocked()
}

// Stop cancels the drain loop. Queued paths stay queued.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
	}
}

// Enqueue adds paths to the work queue, skipping any already queued,
// and kicks the drain loop if it is idle.
func (w *Worker) Enqueue(paths ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range paths {
		if _, ok := w.queued[p]; ok {
			continue
		}
		w.queued[p] = struct{}{}
		w.queue = append(w.queue, p)
	}
	w.kickLocked()
}

// Pause stops the drain loop after the in-flight path finishes. Queued
// paths are kept.
func (w *Worker) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paused = true
}

// Resume restarts the drain loop if anything is queued.
func (w *Worker) Resume() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paused = false
	w.kickLocked()
}

// Status returns a point-in-time snapshot of the worker.
func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{
		QueueDepth: len(w.queue),
		Running:    w.running,
		Paused:     w.paused,
		Processed:  w.processed,
	}
}

// kickLocked starts the drain goroutine unless one is already running,
// the worker is paused or unstarted, or there is nothing to do.
func (w *Worker) kickLocked() {
	if w.ctx == nil || w.running || w.paused || len(w.queue) == 0 {
		return
	}
	w.running = true
	go w.run(w.ctx)
}

func (w *Worker) run(ctx context.Context) {
	for {
		w.mu.Lock()
		if w.paused || len(w.queue) == 0 || ctx.Err() != nil {
			w.running = false
			w.mu.Unlock()
			return
		}
		path := w.queue[0]
		w.queue = w.queue[1:]
		delete(w.queued, path)
		w.mu.Unlock()

		outcome := w.process(ctx, path)

		w.mu.Lock()
		w.processed++
		w.mu.Unlock()
		w.logger.Debug("processed path", "path", path, "outcome", string(outcome))

		select {
		case <-ctx.Done():
		case <-time.After(w.yield):
		}
	}
}

// process runs one path through the reconciliation state machine.
func (w *Worker) process(ctx context.Context, path string) Outcome {
	if w.corpus.IsExcluded(path) {
		w.removePath(path)
		return OutcomeExcluded
	}
	if !w.corpus.IsEligible(path) {
		w.removePath(path)
		return OutcomeNotEligible
	}

	text, err := w.corpus.ReadDocument(path)
	if err != nil {
		w.recorder.Record(diag.KindTransient, "worker."+w.name+".read", path, err)
		return OutcomeReadFailed
	}

	hash := chunk.HashText(text)
	if st, ok := w.states.Get(path); ok && st.Hash == hash && w.target.HasChunks(path) {
		return OutcomeHashUnchanged
	}

	count, err := w.target.ReindexPath(ctx, path, text)
	if err != nil {
		// Every chunk failed. Leave the file state alone so the next
		// pass retries the document.
		w.recorder.Record(diag.KindDocument, "worker."+w.name+".reindex", path, err)
		return OutcomeFailed
	}

	w.states.Set(path, store.FileState{
		Hash:       hash,
		ChunkCount: count,
		UpdatedAt:  time.Now().UTC(),
	})
	w.changed()
	return OutcomeReindexed
}

func (w *Worker) removePath(path string) {
	w.target.RemovePath(path)
	w.states.Delete(path)
	w.changed()
}

func (w *Worker) changed() {
	if w.onChange != nil {
		w.onChange()
	}
}
