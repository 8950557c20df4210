package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	serrors "github.com/meow-stack/stagefan/internal/errors"
)

// LogLevel specifies the logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat specifies the log output format.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// StoreBackend selects where finished runs are persisted.
type StoreBackend string

const (
	StoreBackendYAML   StoreBackend = "yaml"   // One YAML file per run under runs_dir
	StoreBackendRedis  StoreBackend = "redis"  // JSON value per run plus a sorted index
	StoreBackendMemory StoreBackend = "memory" // Process-local, lost on exit
)

// PathsConfig holds path configuration.
type PathsConfig struct {
	PipelinesDir string `toml:"pipelines_dir"`
	RunsDir      string `toml:"runs_dir"`
	LogsDir      string `toml:"logs_dir"`
}

// OrchestratorConfig holds branch fan-out settings.
type OrchestratorConfig struct {
	// MaxConcurrent bounds how many branches run at once. 0 means one
	// goroutine per branch with no limit.
	MaxConcurrent int `toml:"max_concurrent"`

	// BranchTimeout cancels an individual branch's context. 0 disables it.
	BranchTimeout time.Duration `toml:"branch_timeout"`
}

// StoreConfig holds run persistence settings.
type StoreConfig struct {
	Backend       StoreBackend  `toml:"backend"`
	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"redis_password"`
	RedisDB       int           `toml:"redis_db"`
	RedisPrefix   string        `toml:"redis_prefix"`
	RedisTTL      time.Duration `toml:"redis_ttl"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  LogLevel  `toml:"level"`
	Format LogFormat `toml:"format"`
	File   string    `toml:"file"`
}

// Config is the main configuration struct for stagefan.
type Config struct {
	Version      string             `toml:"version"`
	Paths        PathsConfig        `toml:"paths"`
	Orchestrator OrchestratorConfig `toml:"orchestrator"`
	Store        StoreConfig        `toml:"store"`
	Metrics      MetricsConfig      `toml:"metrics"`
	Logging      LoggingConfig      `toml:"logging"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Version: "1",
		Paths: PathsConfig{
			PipelinesDir: ".stagefan/pipelines",
			RunsDir:      ".stagefan/runs",
			LogsDir:      ".stagefan/logs",
		},
		Orchestrator: OrchestratorConfig{
			MaxConcurrent: 0,
		},
		Store: StoreConfig{
			Backend:     StoreBackendYAML,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "stagefan:run:",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":2112",
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
			File:   "",
		},
	}
}

// Load loads configuration from file, merging with defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if no config file
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from the standard locations in a directory.
// Applies in order: defaults -> ~/.stagefan/config.toml -> .stagefan/config.toml
// Later configs override earlier ones (project-level takes precedence).
func LoadFromDir(dir string) (*Config, error) {
	cfg := Default()

	home, err := os.UserHomeDir()
	if err == nil {
		globalConfig := filepath.Join(home, ".stagefan", "config.toml")
		if data, err := os.ReadFile(globalConfig); err == nil {
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing global config: %w", err)
			}
		}
	}

	projectConfig := filepath.Join(dir, ".stagefan", "config.toml")
	if data, err := os.ReadFile(projectConfig); err == nil {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing project config: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Version == "" {
		return serrors.ConfigMissingField("version")
	}
	if c.Orchestrator.MaxConcurrent < 0 {
		return serrors.ConfigInvalidValue("orchestrator.max_concurrent", c.Orchestrator.MaxConcurrent, "must not be negative")
	}
	if c.Orchestrator.BranchTimeout < 0 {
		return serrors.ConfigInvalidValue("orchestrator.branch_timeout", c.Orchestrator.BranchTimeout, "must not be negative")
	}

	switch c.Store.Backend {
	case StoreBackendYAML:
		if c.Paths.RunsDir == "" {
			return serrors.ConfigMissingField("paths.runs_dir")
		}
	case StoreBackendRedis:
		if c.Store.RedisAddr == "" {
			return serrors.ConfigMissingField("store.redis_addr")
		}
	case StoreBackendMemory:
	default:
		return serrors.ConfigInvalidValue("store.backend", c.Store.Backend, "must be yaml, redis or memory")
	}

	switch c.Logging.Format {
	case LogFormatJSON, LogFormatText, "":
	default:
		return serrors.ConfigInvalidValue("logging.format", c.Logging.Format, "must be json or text")
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return serrors.ConfigMissingField("metrics.listen")
	}
	return nil
}

// RunsDir returns the absolute runs directory path.
func (c *Config) RunsDir(baseDir string) string {
	return resolve(baseDir, c.Paths.RunsDir)
}

// PipelinesDir returns the absolute pipelines directory path.
func (c *Config) PipelinesDir(baseDir string) string {
	return resolve(baseDir, c.Paths.PipelinesDir)
}

// LogsDir returns the absolute logs directory path.
func (c *Config) LogsDir(baseDir string) string {
	return resolve(baseDir, c.Paths.LogsDir)
}

func resolve(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// LogFile returns the absolute log file path, or "" when file logging is off.
func (c *Config) LogFile(baseDir string) string {
	if c.Logging.File == "" {
		return ""
	}
	if filepath.IsAbs(c.Logging.File) {
		return c.Logging.File
	}
	return filepath.Join(c.LogsDir(baseDir), c.Logging.File)
}
