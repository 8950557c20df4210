// Package logging builds the slog loggers used across stagefan and the Sink
// the orchestrator logs through.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/meow-stack/stagefan/internal/config"
)

// NewFromConfig creates the process logger. Records always go to stderr;
// when cfg names a log file they are also appended there, and the returned
// closer must be closed by the caller.
func NewFromConfig(cfg *config.Config, baseDir string) (*slog.Logger, io.Closer, error) {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer
	)
	if path := cfg.LogFile(baseDir); path != "" {
		f, err := openLogFile(path)
		if err != nil {
			return nil, nil, err
		}
		w, closer = io.MultiWriter(os.Stderr, f), f
	}

	return slog.New(newHandler(cfg.Logging.Format, w, parseLevel(cfg.Logging.Level))), closer, nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// parseLevel maps a configured level onto slog. Unknown levels log at info.
func parseLevel(level config.LogLevel) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// newHandler returns a JSON handler for LogFormatJSON and a text handler
// for anything else.
func newHandler(format config.LogFormat, w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: durationAsText}
	if format == config.LogFormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// durationAsText renders branch and run durations as "1.5s" rather than
// nanosecond counts.
func durationAsText(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindDuration {
		return slog.String(a.Key, a.Value.Duration().String())
	}
	return a
}

// WithRun returns a logger carrying the run identity.
func WithRun(logger *slog.Logger, runID, pipeline string) *slog.Logger {
	return logger.With("run_id", runID, "pipeline", pipeline)
}

// WithJob returns a logger carrying a branch's job name.
func WithJob(logger *slog.Logger, job string) *slog.Logger {
	return logger.With("job", job)
}
