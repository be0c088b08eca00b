// Package diag provides a bounded in-memory ring buffer for indexing
// diagnostics. Errors raised inside the indexing subsystem are recorded
// here instead of propagating past the worker boundary; recent entries are
// retrievable for status reporting but never interrupt search.
package diag

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Kind classifies a recorded failure per the indexing error taxonomy.
type Kind string

const (
	// KindTransient marks a per-item failure: one unreadable file or one
	// failed chunk embedding. The item is skipped, processing continues.
	KindTransient Kind = "transient"
	// KindDocument marks a document-level failure: every chunk of a
	// document failed. The document stays unindexed and will be retried.
	KindDocument Kind = "document"
	// KindStructural marks a persisted snapshot that failed to parse or
	// disagreed with the running configuration, forcing a full rebuild.
	KindStructural Kind = "structural"
)

// Entry is one recorded diagnostic.
type Entry struct {
	Time     time.Time `json:"time"`
	Kind     Kind      `json:"kind"`
	Location string    `json:"location"`
	Context  string    `json:"context"`
	Message  string    `json:"message"`
	Stack    string    `json:"stack"`
}

// DefaultCapacity is the default ring size. Old entries are overwritten
// once the ring is full.
const DefaultCapacity = 256

// maxStackBytes bounds the captured stack per entry.
const maxStackBytes = 4096

// Recorder is a fixed-capacity ring of diagnostic entries. It is owned by
// whoever constructs it and passed explicitly to the components that
// record into it; there is no package-level instance.
type Recorder struct {
	logger *slog.Logger

	mu      sync.Mutex
	entries []Entry
	next    int
	total   int
	clock   func() time.Time
}

// NewRecorder creates a recorder holding at most capacity entries.
// Entries are mirrored to logger as they are recorded; a nil logger
// falls back to slog.Default. A capacity <= 0 uses DefaultCapacity.
func NewRecorder(capacity int, logger *slog.Logger) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		logger:  logger,
		entries: make([]Entry, capacity),
		clock:   time.Now,
	}
}

// Record appends an entry, capturing the current stack, and mirrors it to
// the structured log. err may be nil when the message alone describes the
// failure.
func (r *Recorder) Record(kind Kind, location, detail string, err error) {
	message := ""
	if err != nil {
		message = err.Error()
	}

	stack := debug.Stack()
	if len(stack) > maxStackBytes {
		stack = stack[:maxStackBytes]
	}

	r.mu.Lock()
	r.entries[r.next] = Entry{
		Time:     r.clock(),
		Kind:     kind,
		Location: location,
		Context:  detail,
		Message:  message,
		Stack:    string(stack),
	}
	r.next = (r.next + 1) % len(r.entries)
	r.total++
	r.mu.Unlock()

	level := slog.LevelWarn
	if kind == KindDocument || kind == KindStructural {
		level = slog.LevelError
	}
	r.logger.Log(context.Background(), level, "index_diagnostic",
		slog.String("kind", string(kind)),
		slog.String("location", location),
		slog.String("context", detail),
		slog.String("message", message),
	)
}

// Recent returns up to n entries, newest first. n <= 0 returns all stored
// entries.
func (r *Recorder) Recent(n int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.total
	if stored > len(r.entries) {
		stored = len(r.entries)
	}
	if n <= 0 || n > stored {
		n = stored
	}

	out := make([]Entry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.entries)) % len(r.entries)
		out = append(out, r.entries[idx])
	}
	return out
}

// Total returns the number of entries recorded over the recorder's
// lifetime, including those already overwritten.
func (r *Recorder) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}
