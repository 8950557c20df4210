package testutil

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// TestLogger captures structured log records for assertions.
type TestLogger struct {
	Logger *slog.Logger

	mu      sync.RWMutex
	entries []LogEntry
	buffer  bytes.Buffer
}

// LogEntry is one captured record. Attrs holds attributes added through
// Logger.With as well as the record's own, keyed by dotted group path.
type LogEntry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// NewTestLogger creates a logger that records everything at debug level
// and above.
func NewTestLogger(t *testing.T) *TestLogger {
	t.Helper()

	tl := &TestLogger{}
	tl.Logger = slog.New(&captureHandler{
		owner: tl,
		next:  slog.NewJSONHandler(&lockedWriter{tl: tl}, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
	return tl
}

type lockedWriter struct{ tl *TestLogger }

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.tl.mu.Lock()
	defer w.tl.mu.Unlock()
	return w.tl.buffer.Write(p)
}

type captureHandler struct {
	owner *TestLogger
	next  slog.Handler
	attrs []slog.Attr
	group string
}

func (h *captureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *captureHandler) Handle(ctx context.Context, r slog.Record) error {
	entry := LogEntry{
		Level:   r.Level,
		Message: r.Message,
		Attrs:   make(map[string]any, len(h.attrs)+r.NumAttrs()),
	}
	for _, a := range h.attrs {
		entry.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		entry.Attrs[h.key(a.Key)] = a.Value.Any()
		return true
	})

	h.owner.mu.Lock()
	h.owner.entries = append(h.owner.entries, entry)
	h.owner.mu.Unlock()

	return h.next.Handle(ctx, r)
}

func (h *captureHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, a := range attrs {
		merged = append(merged, slog.Attr{Key: h.key(a.Key), Value: a.Value})
	}
	return &captureHandler{owner: h.owner, next: h.next.WithAttrs(attrs), attrs: merged, group: h.group}
}

func (h *captureHandler) WithGroup(name string) slog.Handler {
	return &captureHandler{owner: h.owner, next: h.next.WithGroup(name), attrs: h.attrs, group: h.key(name)}
}

// Entries returns a copy of the captured entries.
func (l *TestLogger) Entries() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]LogEntry(nil), l.entries...)
}

// Output returns the JSON lines written so far.
func (l *TestLogger) Output() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.buffer.String()
}

func (l *TestLogger) filter(keep func(LogEntry) bool) []LogEntry {
	var out []LogEntry
	for _, e := range l.Entries() {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// GetEntriesContaining returns entries whose message contains substring.
func (l *TestLogger) GetEntriesContaining(substring string) []LogEntry {
	return l.filter(func(e LogEntry) bool { return strings.Contains(e.Message, substring) })
}

// GetEntriesWithAttrValue returns entries carrying key=value.
func (l *TestLogger) GetEntriesWithAttrValue(key string, value any) []LogEntry {
	return l.filter(func(e LogEntry) bool {
		v, ok := e.Attrs[key]
		return ok && v == value
	})
}

// CountLevel returns the number of entries at level.
func (l *TestLogger) CountLevel(level slog.Level) int {
	return len(l.filter(func(e LogEntry) bool { return e.Level == level }))
}

// AssertContains fails the test unless some entry's message contains msg.
func (l *TestLogger) AssertContains(t *testing.T, msg string) {
	t.Helper()
	if len(l.GetEntriesContaining(msg)) == 0 {
		t.Errorf("Expected log to contain message %q, but it wasn't found", msg)
	}
}

// AssertNotContains fails the test if any entry's message contains msg.
func (l *TestLogger) AssertNotContains(t *testing.T, msg string) {
	t.Helper()
	if n := len(l.GetEntriesContaining(msg)); n > 0 {
		t.Errorf("Expected log to not contain message %q, but found %d entries", msg, n)
	}
}

// AssertAttrValue fails the test unless some entry carries key=value.
func (l *TestLogger) AssertAttrValue(t *testing.T, key string, value any) {
	t.Helper()
	if len(l.GetEntriesWithAttrValue(key, value)) == 0 {
		t.Errorf("Expected at least one log entry with %s=%v", key, value)
	}
}

// AssertNoErrors fails the test if any entry was logged at error level.
func (l *TestLogger) AssertNoErrors(t *testing.T) {
	t.Helper()
	errs := l.filter(func(e LogEntry) bool { return e.Level >= slog.LevelError })
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Message
		}
		t.Errorf("Expected no errors, got %d: %v", len(errs), msgs)
	}
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 100}))
}
