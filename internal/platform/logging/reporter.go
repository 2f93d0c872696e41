package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/p-n-ai/campus/internal/platform/apperr"
)

const defaultReporterCapacity = 100

// Entry is one reported error.
type Entry struct {
	Scope   string      `json:"scope"`
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// Reporter logs errors and keeps the most recent ones for diagnostics.
// Create one per process or session; Flush or Clear it explicitly.
type Reporter struct {
	logger   *slog.Logger
	capacity int
	now      func() time.Time

	mu      sync.Mutex
	entries []Entry
}

// NewReporter creates a reporter that retains at most capacity entries.
func NewReporter(logger *slog.Logger, capacity int) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	if capacity <= 0 {
		capacity = defaultReporterCapacity
	}
	return &Reporter{
		logger:   logger,
		capacity: capacity,
		now:      time.Now,
	}
}

// Report logs err under scope and retains it. A nil error is ignored.
func (r *Reporter) Report(ctx context.Context, scope string, err error) {
	if err == nil {
		return
	}
	kind := apperr.KindOf(err)
	r.logger.ErrorContext(ctx, "operation failed",
		"scope", scope,
		"kind", string(kind),
		"error", err,
	)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{
		Scope:   scope,
		Kind:    kind,
		Message: err.Error(),
		At:      r.now(),
	})
	if over := len(r.entries) - r.capacity; over > 0 {
		r.entries = append([]Entry(nil), r.entries[over:]...)
	}
}

// Entries returns a copy of the retained entries, oldest first.
func (r *Reporter) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry{}, r.entries...)
}

// Flush returns the retained entries and clears them.
func (r *Reporter) Flush() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.entries
	r.entries = nil
	if out == nil {
		out = []Entry{}
	}
	return out
}

// Clear drops all retained entries.
func (r *Reporter) Clear() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}
