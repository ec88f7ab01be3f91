package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if cfg.Tick() != 16*time.Millisecond {
		t.Errorf("tick = %v", cfg.Tick())
	}
	if cfg.LaunchTimeout() != 10*time.Second || cfg.CaptureTimeout() != 5*time.Second {
		t.Errorf("timeouts = %v / %v", cfg.LaunchTimeout(), cfg.CaptureTimeout())
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TickMS != 16 || cfg.FocusPolicy != "recent" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
socket: /tmp/custom.sock
tick_ms: 8
focus_policy: oldest
logging:
  enabled: true
  level: debug
  file: /tmp/wayvil.log
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Socket != "/tmp/custom.sock" || cfg.TickMS != 8 || cfg.FocusPolicy != "oldest" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	// Untouched keys keep their defaults.
	if cfg.QueueCapacity != 256 || cfg.Logging.MaxSizeMB != 10 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if !cfg.Logging.Enabled || cfg.Logging.Level != "debug" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "sockett: /tmp/x.sock\n")
	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("typo key was accepted")
	}
}

func TestLoadEmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TickMS != 16 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantPath string
	}{
		{"empty socket", func(c *Config) { c.Socket = "" }, "socket"},
		{"zero tick", func(c *Config) { c.TickMS = 0 }, "tick_ms"},
		{"negative queue", func(c *Config) { c.QueueCapacity = -1 }, "queue_capacity"},
		{"zero launch timeout", func(c *Config) { c.LaunchTimeoutSeconds = 0 }, "launch_timeout_seconds"},
		{"zero capture timeout", func(c *Config) { c.CaptureTimeoutSeconds = 0 }, "capture_timeout_seconds"},
		{"bad focus policy", func(c *Config) { c.FocusPolicy = "sticky" }, "focus_policy"},
		{"logging without file", func(c *Config) {
			c.Logging.Enabled = true
			c.Logging.File = ""
		}, "logging.file"},
		{"bad log level", func(c *Config) {
			c.Logging.Enabled = true
			c.Logging.File = "/tmp/x.log"
			c.Logging.Level = "verbose"
		}, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if verr.Path != tt.wantPath {
				t.Errorf("path = %q, want %q", verr.Path, tt.wantPath)
			}
			if !strings.Contains(verr.Error(), tt.wantPath) {
				t.Errorf("message %q does not name the path", verr.Error())
			}
		})
	}
}
