package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/meow-stack/stagefan/internal/config"
)

func TestNewFromConfig_DefaultsToStderr(t *testing.T) {
	cfg := &config.Config{
		Logging: config.LoggingConfig{
			Level:  config.LogLevelInfo,
			Format: config.LogFormatJSON,
		},
	}

	logger, closer, err := NewFromConfig(cfg, "/tmp")
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	if closer != nil {
		t.Error("Expected no closer when no file configured")
	}
	if logger == nil {
		t.Fatal("Expected logger to be non-nil")
	}
}

func TestNewFromConfig_WritesFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Paths: config.PathsConfig{
			LogsDir: filepath.Join("nested", "logs"),
		},
		Logging: config.LoggingConfig{
			Level:  config.LogLevelDebug,
			Format: config.LogFormatJSON,
			File:   "stagefan.log",
		},
	}

	logger, closer, err := NewFromConfig(cfg, dir)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	if closer == nil {
		t.Fatal("Expected closer for file log")
	}

	logger.Debug("branch started", "job", "linux")
	closer.Close()

	data, err := os.ReadFile(filepath.Join(dir, "nested", "logs", "stagefan.log"))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "branch started") {
		t.Errorf("Log file does not contain expected message: %s", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input config.LogLevel
		want  slog.Level
	}{
		{config.LogLevelDebug, slog.LevelDebug},
		{config.LogLevelInfo, slog.LevelInfo},
		{config.LogLevelWarn, slog.LevelWarn},
		{config.LogLevelError, slog.LevelError},
		{"WARN", slog.LevelWarn},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%s) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(config.LogFormatJSON, &buf, slog.LevelInfo))

	logger.Info("test", "key", "value")

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("JSON unmarshal failed: %v (output: %s)", err, buf.String())
	}
	if result["msg"] != "test" {
		t.Errorf("msg = %v, want test", result["msg"])
	}
	if result["key"] != "value" {
		t.Errorf("key = %v, want value", result["key"])
	}
}

func TestNewHandler_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(config.LogFormatText, &buf, slog.LevelInfo))

	logger.Info("test", "key", "value")

	if !strings.Contains(buf.String(), "key=value") {
		t.Errorf("output should contain 'key=value': %s", buf.String())
	}
}

func TestWithRunAndJob(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	WithJob(WithRun(logger, "run-1", "build"), "linux").Info("test")

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("JSON unmarshal failed: %v", err)
	}
	if result["run_id"] != "run-1" || result["pipeline"] != "build" || result["job"] != "linux" {
		t.Errorf("unexpected attrs: %v", result)
	}
}

func TestNewHandler_DurationsAsText(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(config.LogFormatJSON, &buf, slog.LevelInfo))

	logger.Info("branch succeeded", "duration", 1500*time.Millisecond)

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("JSON unmarshal failed: %v", err)
	}
	if result["duration"] != "1.5s" {
		t.Errorf("duration = %v, want 1.5s", result["duration"])
	}
}

func TestSink_ForRunAndJob(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	sink.ForRun("run-1", "build").ForJob("linux").Info("branch started")

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("JSON unmarshal failed: %v", err)
	}
	if result["run_id"] != "run-1" || result["pipeline"] != "build" || result["job"] != "linux" {
		t.Errorf("unexpected attrs: %v", result)
	}

	defer func() {
		if recover() != errUninitialized {
			t.Error("ForJob on a zero Sink should panic")
		}
	}()
	(&Sink{}).ForJob("linux")
}

func TestSink_Logs(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(slog.New(slog.NewTextHandler(&buf, nil)))

	sink.Info("dispatching", "branches", 2)
	sink.ForJob("linux").Warn("slow branch")
	sink.Error("branch failed")

	out := buf.String()
	for _, want := range []string{"dispatching", "branches=2", "job=linux", "slow branch", "branch failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestSink_PanicsBeforeInitialization(t *testing.T) {
	tests := []struct {
		name string
		sink *Sink
	}{
		{"nil sink", nil},
		{"zero sink", &Sink{}},
		{"nil logger", NewSink(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatal("expected panic")
				}
				if r != errUninitialized {
					t.Errorf("panic = %v, want %q", r, errUninitialized)
				}
			}()
			tt.sink.Info("should not be written")
		})
	}
}

func TestFromContext(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := WithLogger(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Error("FromContext returned a different logger")
	}

	defer func() {
		if recover() == nil {
			t.Error("FromContext should panic without a logger")
		}
	}()
	FromContext(context.Background())
}
