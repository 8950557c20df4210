package logging

import (
	"context"
	"log/slog"
)

// errUninitialized is the panic value for a Sink or context used before a
// logger was attached.
const errUninitialized = "logging: sink used before initialization"

// Sink is the narrow info/warn/error surface the orchestrator logs through.
// The zero value is not usable: every method panics until the Sink wraps a
// logger, so a missing setup step shows up on the first log call.
type Sink struct {
	logger *slog.Logger
}

// NewSink wraps logger. A nil logger yields a Sink that panics when used.
func NewSink(logger *slog.Logger) *Sink {
	return &Sink{logger: logger}
}

// Logger returns the wrapped logger.
func (s *Sink) Logger() *slog.Logger {
	s.mustBeReady()
	return s.logger
}

// ForRun returns a Sink whose records carry the run ID and pipeline.
func (s *Sink) ForRun(runID, pipeline string) *Sink {
	s.mustBeReady()
	return &Sink{logger: WithRun(s.logger, runID, pipeline)}
}

// ForJob returns a Sink whose records carry the branch's job name.
func (s *Sink) ForJob(job string) *Sink {
	s.mustBeReady()
	return &Sink{logger: WithJob(s.logger, job)}
}

// Info logs at info level.
func (s *Sink) Info(msg string, args ...any) {
	s.mustBeReady()
	s.logger.Info(msg, args...)
}

// Warn logs at warn level.
func (s *Sink) Warn(msg string, args ...any) {
	s.mustBeReady()
	s.logger.Warn(msg, args...)
}

// Error logs at error level.
func (s *Sink) Error(msg string, args ...any) {
	s.mustBeReady()
	s.logger.Error(msg, args...)
}

func (s *Sink) mustBeReady() {
	if s == nil || s.logger == nil {
		panic(errUninitialized)
	}
}

type loggerKey struct{}

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext extracts the logger stored by WithLogger. It panics when the
// context carries none.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	panic("logging: logger missing from context")
}
