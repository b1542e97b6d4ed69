// Package config holds the fixed iorepl layout identifiers and the ambient
// settings loaded from file and environment.
//
// Precedence for ambient settings (highest to lowest):
//  1. Environment variables (IOREPL_*, OTEL_EXPORTER_OTLP_*)
//  2. Config file
//  3. Built-in defaults
//
// Config file search order:
//  1. .iorepl.yaml in current directory
//  2. ~/.config/iorepl/config.yaml
//
// The layout itself (session name, log files, ports) is not configurable.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Layout is the immutable set of identifiers the layout is built from.
type Layout struct {
	// Session is the tmux session name. At most one exists at a time.
	Session string
	// Multiplexer is the terminal multiplexer executable.
	Multiplexer string
	// NetClient is the network-socket client executable started in the input panes.
	NetClient string
	// LogDir holds the log files that are tailed.
	LogDir string
	// Processes are the process-name prefixes of the three tailed log files.
	Processes [3]string
	// Host is the address the input panes connect to.
	Host string
	// Ports are the TCP ports of the two input panes.
	Ports [2]int

	// RetryInterval is the pause after every attempt of a retried step.
	RetryInterval time.Duration
	// SettleDelay is the pause after a non-retried step.
	SettleDelay time.Duration
	// MouseSettleDelay is the pause after mouse mode has been enabled.
	MouseSettleDelay time.Duration
}

// LogFile returns <LogDir>/<process><runID>.log.
func (l Layout) LogFile(process string, runID int) string {
	return filepath.Join(l.LogDir, process+strconv.Itoa(runID)+".log")
}

// LogFiles returns the three log file paths for a run, in pane order.
func (l Layout) LogFiles(runID int) [3]string {
	var files [3]string
	for i, p := range l.Processes {
		files[i] = l.LogFile(p, runID)
	}
	return files
}

// Config holds all iorepl configuration.
type Config struct {
	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	// Retry bounds. Zero keeps the unbounded retry behavior.
	MaxAttempts  int    `yaml:"max_attempts"`
	RetryTimeout string `yaml:"retry_timeout"` // Go duration string, e.g. "30s"

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs

	// Parsed values (not from YAML, set after loading)
	RetryTimeoutDuration time.Duration `yaml:"-"`
	Level                slog.Level    `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// DefaultLayout returns the fixed layout identifiers.
func DefaultLayout() Layout {
	return Layout{
		Session:          "iorepl_tmux",
		Multiplexer:      "tmux",
		NetClient:        "netcat",
		LogDir:           "/tmp/logfiles/",
		Processes:        [3]string{"example1", "example2", "example3"},
		Host:             "localhost",
		Ports:            [2]int{123, 124},
		RetryInterval:    50 * time.Millisecond,
		SettleDelay:      50 * time.Millisecond,
		MouseSettleDelay: 200 * time.Millisecond,
	}
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		LogLevel: "warn",
		Level:    slog.LevelWarn,
	}
}

// Load reads configuration from file and environment variables.
// Environment variables always override file values.
func Load() (*Config, error) {
	cfg := Defaults()

	if path, data, err := findConfigFile(); err == nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	if err := mergeEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, cfg.finalize()
}

// finalize validates and parses the string-typed settings.
func (c *Config) finalize() error {
	if c.MaxAttempts < 0 {
		return fmt.Errorf("invalid max attempts %d: must not be negative", c.MaxAttempts)
	}

	var err error
	c.RetryTimeoutDuration, err = parseDurationOrDisable(c.RetryTimeout)
	if err != nil {
		return fmt.Errorf("invalid retry timeout %q: %w", c.RetryTimeout, err)
	}

	c.Level, err = ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	return nil
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	if data, err := os.ReadFile(".iorepl.yaml"); err == nil {
		return ".iorepl.yaml", data, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "iorepl", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.MaxAttempts != 0 {
		cfg.MaxAttempts = file.MaxAttempts
	}
	if file.RetryTimeout != "" {
		cfg.RetryTimeout = file.RetryTimeout
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) error {
	if v := os.Getenv("IOREPL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("IOREPL_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid IOREPL_MAX_ATTEMPTS %q: %w", v, err)
		}
		cfg.MaxAttempts = n
	}
	if v := os.Getenv("IOREPL_RETRY_TIMEOUT"); v != "" {
		cfg.RetryTimeout = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}
	return nil
}

// parseDurationOrDisable parses a duration string. "", "0", "off", "disable" return 0.
func parseDurationOrDisable(s string) (time.Duration, error) {
	switch s {
	case "", "0", "off", "disable":
		return 0, nil
	}
	return time.ParseDuration(s)
}

// ParseLevel maps a level name onto a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (supported: debug, info, warn, error)", s)
	}
}
