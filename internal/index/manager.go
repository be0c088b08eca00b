// Package index wires the corpus, chunker, embedding backend, both
// index structures, their workers, and persistence into one managed
// lifecycle.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/inkstone-labs/inkdex/internal/chunk"
	"github.com/inkstone-labs/inkdex/internal/corpus"
	"github.com/inkstone-labs/inkdex/internal/diag"
	"github.com/inkstone-labs/inkdex/internal/embed"
	"github.com/inkstone-labs/inkdex/internal/persist"
	"github.com/inkstone-labs/inkdex/internal/search"
	"github.com/inkstone-labs/inkdex/internal/store"
	"github.com/inkstone-labs/inkdex/internal/worker"
)

// Index file layout under the vault's data directory.
const (
	DataDirName     = ".inkdex"
	VectorFileName  = "vector.json"
	LexicalFileName = "lexical.json"
)

// Config assembles a Manager.
type Config struct {
	// VaultRoot is the directory of documents to index.
	VaultRoot string
	// DataDir overrides the default <VaultRoot>/.inkdex location.
	DataDir string
	// Chunking configures the chunker; zero values take defaults.
	Chunking chunk.Options
	// Embedding selects and configures the embedding backend.
	Embedding embed.Options
	// Excludes are extra exclusion patterns beyond dot-directories.
	Excludes []string
	// DebounceWindow overrides the snapshot write coalescing window.
	DebounceWindow time.Duration
	// WorkerYield overrides the inter-item worker pause; tests set it low.
	WorkerYield time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Status is a read-only snapshot of the whole index.
type Status struct {
	Documents     int           `json:"documents"`
	VectorChunks  int           `json:"vectorChunks"`
	LexicalChunks int           `json:"lexicalChunks"`
	Terms         int           `json:"terms"`
	Vector        worker.Status `json:"vector"`
	Lexical       worker.Status `json:"lexical"`
	Errors        int           `json:"errors"`
}

// Manager owns the full indexing lifecycle: snapshot load and
// validation, incremental reconciliation through the two workers,
// debounced persistence, and the query surface.
type Manager struct {
	cfg      Config
	logger   *slog.Logger
	corpus   *corpus.FSCorpus
	recorder *diag.Recorder
	embedder embed.Backend

	vector  *store.VectorIndex
	lexical *store.LexicalIndex
	states  *store.FileStates

	vectorWorker  *worker.Worker
	lexicalWorker *worker.Worker
	engine        *search.Engine

	vectorSave  *persist.Debouncer
	lexicalSave *persist.Debouncer

	lock    *flock.Flock
	dataDir string

	titleMu sync.RWMutex
	titles  map[string]string
}

// Open builds a Manager over the vault, acquires the single-writer
// lock, and loads any persisted snapshots. Snapshots that fail to
// parse or disagree with the running configuration are discarded; the
// first Start then rebuilds from the corpus.
func Open(cfg Config) (*Manager, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.Chunking = cfg.Chunking.Clamped()
	if cfg.Embedding.Dimensions <= 0 {
		cfg.Embedding.Dimensions = embed.DefaultDimensions
	}
	if cfg.Embedding.Backend == "" {
		cfg.Embedding.Backend = embed.BackendHash
	}

	c, err := corpus.NewFSCorpus(cfg.VaultRoot, cfg.Excludes)
	if err != nil {
		return nil, err
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(c.Root(), DataDirName)
	}
	lock, err := persist.AcquireLock(dataDir)
	if err != nil {
		return nil, err
	}

	recorder := diag.NewRecorder(diag.DefaultCapacity, cfg.Logger)
	embedder, err := embed.New(cfg.Embedding, recorder)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	chunking := store.ChunkingConfig{
		HeadingLevel: string(cfg.Chunking.HeadingLevel),
		TargetWords:  cfg.Chunking.TargetWords,
		OverlapWords: cfg.Chunking.OverlapWords,
	}

	m := &Manager{
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "index"),
		corpus:   c,
		recorder: recorder,
		embedder: embedder,
		vector:   store.NewVectorIndex(cfg.Embedding.Dimensions, cfg.Embedding.Backend, chunking),
		lexical:  store.NewLexicalIndex(chunking),
		states:   store.NewFileStates(),
		lock:     lock,
		dataDir:  dataDir,
		titles:   make(map[string]string),
	}

	m.vectorSave = persist.NewDebouncer(cfg.DebounceWindow, nil, m.saveVector)
	m.lexicalSave = persist.NewDebouncer(cfg.DebounceWindow, nil, m.saveLexical)

	m.vectorWorker = worker.New(worker.Config{
		Name:   "vector",
		Corpus: c,
		Target: &vectorTarget{
			index:    m.vector,
			embedder: embedder,
			opts:     cfg.Chunking,
			recorder: recorder,
			onTitle:  m.rememberTitle,
		},
		States:   m.states,
		Recorder: recorder,
		OnChange: m.vectorSave.Arm,
		Yield:    cfg.WorkerYield,
		Logger:   cfg.Logger,
	})
	m.lexicalWorker = worker.New(worker.Config{
		Name:   "lexical",
		Corpus: c,
		Target: &lexicalTarget{
			index:   m.lexical,
			opts:    cfg.Chunking,
			onTitle: m.rememberTitle,
		},
		States:   m.states,
		Recorder: recorder,
		OnChange: m.lexicalSave.Arm,
		Yield:    cfg.WorkerYield,
		Logger:   cfg.Logger,
	})

	m.engine = search.NewEngine(m.lexical, m.vector, embedder, m.Title, cfg.Logger)

	m.loadSnapshots()
	return m, nil
}

// loadSnapshots restores both indexes from disk. Each index degrades
// independently: a missing, corrupt, or config-stale file just means
// that index starts empty and is rebuilt on the next reconcile.
func (m *Manager) loadSnapshots() {
	if data, err := os.ReadFile(filepath.Join(m.dataDir, VectorFileName)); err == nil {
		snap, err := store.DecodeVectorSnapshot(data)
		if err == nil {
			err = m.vector.LoadSnapshot(snap)
		}
		if err != nil {
			m.recorder.Record(diag.KindStructural, "index.load", VectorFileName, err)
			m.logger.Warn("discarding vector snapshot", "error", err)
			m.vector.Clear()
		} else {
			m.logger.Info("loaded vector snapshot", "chunks", m.vector.Count())
		}
	}

	if data, err := os.ReadFile(filepath.Join(m.dataDir, LexicalFileName)); err == nil {
		snap, err := store.DecodeLexicalSnapshot(data)
		if err == nil {
			err = m.lexical.LoadSnapshot(snap, m.states)
		}
		if err != nil {
			m.recorder.Record(diag.KindStructural, "index.load", LexicalFileName, err)
			m.logger.Warn("discarding lexical snapshot", "error", err)
			m.lexical.Clear()
			m.states.Clear()
		} else {
			m.logger.Info("loaded lexical snapshot",
				"chunks", m.lexical.Count(), "documents", m.states.Len())
		}
	}
}

// Start launches both workers and enqueues a full reconcile: every
// eligible document plus every previously tracked path. Unchanged
// documents are skipped by the content-hash check, so a warm start
// costs one read and one hash per file.
func (m *Manager) Start(ctx context.Context) error {
	m.vectorWorker.Start(ctx)
	m.lexicalWorker.Start(ctx)
	return m.Reconcile()
}

// Reconcile enqueues the union of the current corpus listing and all
// tracked paths, so additions, edits, and deletions all get processed.
func (m *Manager) Reconcile() error {
	paths, err := m.corpus.ListEligibleDocuments()
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		seen[p] = struct{}{}
	}
	for p := range m.states.Snapshot() {
		if _, ok := seen[p]; !ok {
			paths = append(paths, p)
		}
	}
	m.Enqueue(paths...)
	m.logger.Info("reconcile enqueued", "paths", len(paths))
	return nil
}

// Enqueue queues paths on both workers.
func (m *Manager) Enqueue(paths ...string) {
	if len(paths) == 0 {
		return
	}
	m.vectorWorker.Enqueue(paths...)
	m.lexicalWorker.Enqueue(paths...)
}

// Watch runs the filesystem watcher until ctx is cancelled, feeding
// change batches into both workers. It blocks.
func (m *Manager) Watch(ctx context.Context) error {
	w := corpus.NewWatcher(m.corpus, m.Enqueue, m.states.Paths, 0, m.cfg.Logger)
	err := w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Pause stops both workers after their in-flight items.
func (m *Manager) Pause() {
	m.vectorWorker.Pause()
	m.lexicalWorker.Pause()
}

// Resume restarts both workers.
func (m *Manager) Resume() {
	m.vectorWorker.Resume()
	m.lexicalWorker.Resume()
}

// Search answers a free-text query from whatever is currently indexed.
func (m *Manager) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	return m.engine.Search(ctx, query, limit)
}

// Status reports a point-in-time view of both indexes and workers.
func (m *Manager) Status() Status {
	return Status{
		Documents:     m.states.Len(),
		VectorChunks:  m.vector.Count(),
		LexicalChunks: m.lexical.Count(),
		Terms:         m.lexical.TermCount(),
		Vector:        m.vectorWorker.Status(),
		Lexical:       m.lexicalWorker.Status(),
		Errors:        m.recorder.Total(),
	}
}

// RecentErrors returns up to n recent diagnostics, newest first.
func (m *Manager) RecentErrors(n int) []diag.Entry {
	return m.recorder.Recent(n)
}

// Idle reports whether both workers have drained their queues.
func (m *Manager) Idle() bool {
	v, l := m.vectorWorker.Status(), m.lexicalWorker.Status()
	return !v.Running && v.QueueDepth == 0 && !l.Running && l.QueueDepth == 0
}

// CompactPostings rewrites the lexical postings lists, dropping
// tombstones accumulated by deletes and reindexes.
func (m *Manager) CompactPostings() int {
	removed := m.lexical.CompactPostings()
	if removed > 0 {
		m.lexicalSave.Arm()
	}
	m.logger.Info("compacted postings", "removed", removed)
	return removed
}

// Flush writes both snapshots now, bypassing the debounce window.
func (m *Manager) Flush() {
	m.vectorSave.Flush()
	m.lexicalSave.Flush()
}

// Close stops the workers, flushes pending snapshots, and releases the
// process lock.
func (m *Manager) Close() error {
	m.vectorWorker.Stop()
	m.lexicalWorker.Stop()
	m.Flush()
	var errs []error
	if err := m.embedder.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := m.lock.Unlock(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Title returns the display title for a document, or "". Titles are
// cached by the reindex path; on a cache miss (e.g. a warm start where
// every document was hash-skipped) the document is read once and the
// title derived from its first heading.
func (m *Manager) Title(path string) string {
	m.titleMu.RLock()
	title, ok := m.titles[path]
	m.titleMu.RUnlock()
	if ok {
		return title
	}

	text, err := m.corpus.ReadDocument(path)
	if err != nil {
		return ""
	}
	title = chunk.Title(text)
	m.rememberTitle(path, title)
	return title
}

func (m *Manager) rememberTitle(path, title string) {
	m.titleMu.Lock()
	defer m.titleMu.Unlock()
	m.titles[path] = title
}

func (m *Manager) saveVector() {
	m.save(VectorFileName, m.vector.BuildSnapshot())
}

func (m *Manager) saveLexical() {
	m.save(LexicalFileName, m.lexical.BuildSnapshot(m.states))
}

func (m *Manager) save(name string, snapshot any) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		m.recorder.Record(diag.KindStructural, "index.save", name, err)
		return
	}
	if err := persist.WriteFileAtomic(filepath.Join(m.dataDir, name), data, 0o644); err != nil {
		m.recorder.Record(diag.KindTransient, "index.save", name, err)
		m.logger.Warn("snapshot write failed", "file", name, "error", err)
		return
	}
	m.logger.Debug("snapshot written", "file", name, "bytes", len(data))
}
