package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wayvil/wayvil/internal/runtimepath"
)

// Config is the effective compositor configuration after defaults and
// validation.
type Config struct {
	// Socket is the display socket path clients connect to.
	Socket string `yaml:"socket"`

	// TickMS paces the compositor loop's command dispatch, in milliseconds.
	TickMS int `yaml:"tick_ms"`

	// QueueCapacity bounds the number of outstanding bridged commands.
	QueueCapacity int `yaml:"queue_capacity"`

	// LaunchTimeoutSeconds bounds how long launch_app waits for a window.
	LaunchTimeoutSeconds int `yaml:"launch_timeout_seconds"`

	// CaptureTimeoutSeconds bounds how long screenshot waits for a frame.
	CaptureTimeoutSeconds int `yaml:"capture_timeout_seconds"`

	// FocusPolicy selects the active window: "recent" or "oldest".
	FocusPolicy string `yaml:"focus_policy"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig controls the action log file.
type LoggingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	socket, err := runtimepath.SocketPath()
	if err != nil {
		socket = filepath.Join(os.TempDir(), "wayvil", "display.sock")
	}
	return &Config{
		Socket:                socket,
		TickMS:                16,
		QueueCapacity:         256,
		LaunchTimeoutSeconds:  10,
		CaptureTimeoutSeconds: 5,
		FocusPolicy:           "recent",
		Logging: LoggingConfig{
			Enabled:   false,
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  3,
		},
	}
}

// Tick returns the loop tick as a duration.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

// LaunchTimeout returns the launch timeout as a duration.
func (c *Config) LaunchTimeout() time.Duration {
	return time.Duration(c.LaunchTimeoutSeconds) * time.Second
}

// CaptureTimeout returns the capture timeout as a duration.
func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.CaptureTimeoutSeconds) * time.Second
}

// ValidationError reports an invalid config value with its YAML path.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate checks the effective configuration.
func (c *Config) Validate() error {
	if c.Socket == "" {
		return &ValidationError{Path: "socket", Message: "must not be empty"}
	}
	if c.TickMS <= 0 {
		return &ValidationError{Path: "tick_ms", Message: fmt.Sprintf("must be positive, got %d", c.TickMS)}
	}
	if c.QueueCapacity <= 0 {
		return &ValidationError{Path: "queue_capacity", Message: fmt.Sprintf("must be positive, got %d", c.QueueCapacity)}
	}
	if c.LaunchTimeoutSeconds <= 0 {
		return &ValidationError{Path: "launch_timeout_seconds", Message: fmt.Sprintf("must be positive, got %d", c.LaunchTimeoutSeconds)}
	}
	if c.CaptureTimeoutSeconds <= 0 {
		return &ValidationError{Path: "capture_timeout_seconds", Message: fmt.Sprintf("must be positive, got %d", c.CaptureTimeoutSeconds)}
	}
	switch c.FocusPolicy {
	case "recent", "oldest":
	default:
		return &ValidationError{Path: "focus_policy", Message: fmt.Sprintf("must be \"recent\" or \"oldest\", got %q", c.FocusPolicy)}
	}
	if c.Logging.Enabled {
		if c.Logging.File == "" {
			return &ValidationError{Path: "logging.file", Message: "must be set when logging is enabled"}
		}
		switch c.Logging.Level {
		case "debug", "info", "warn", "error":
		default:
			return &ValidationError{Path: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
		}
		if c.Logging.MaxSizeMB <= 0 {
			return &ValidationError{Path: "logging.max_size_mb", Message: "must be positive"}
		}
		if c.Logging.MaxFiles <= 0 {
			return &ValidationError{Path: "logging.max_files", Message: "must be positive"}
		}
	}
	return nil
}
