package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadConfigDefaults(t *testing.T) {
	resetViper(t)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("defaults failed validation: %v", err)
	}

	if cfg.Scanner.Concurrency != 20 {
		t.Errorf("default concurrency = %d, want 20", cfg.Scanner.Concurrency)
	}
	if cfg.Scanner.TaskTimeout != 30*time.Second {
		t.Errorf("default task_timeout = %v, want 30s", cfg.Scanner.TaskTimeout)
	}
	if cfg.Scanner.ProbeMode != "handshake-only" {
		t.Errorf("default probe_mode = %q", cfg.Scanner.ProbeMode)
	}
	if cfg.Sources.Mode != "free" {
		t.Errorf("default sources mode = %q", cfg.Sources.Mode)
	}
	if len(cfg.Sources.FreeLists) == 0 {
		t.Error("no default free list feeds")
	}
	if !cfg.Geo.Enabled || !cfg.Geo.HTTPFallback {
		t.Errorf("geo defaults = %+v", cfg.Geo)
	}
	if len(cfg.Output.Formats) == 0 {
		t.Error("no default output formats")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	resetViper(t)

	path := writeConfig(t, `
scanner:
  concurrency: 100
  probe_timeout: 3s
reachability:
  targets:
    - http://www.example.com/
    - https://intra.example.com/health
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Scanner.Concurrency != 100 {
		t.Errorf("concurrency = %d, want 100", cfg.Scanner.Concurrency)
	}
	if cfg.Scanner.ProbeTimeout != 3*time.Second {
		t.Errorf("probe_timeout = %v, want 3s", cfg.Scanner.ProbeTimeout)
	}
	if len(cfg.Reachability.Targets) != 2 {
		t.Errorf("targets = %v", cfg.Reachability.Targets)
	}
	// File values override selectively; untouched keys keep their defaults.
	if cfg.Scanner.TaskTimeout != 30*time.Second {
		t.Errorf("task_timeout = %v, want default 30s", cfg.Scanner.TaskTimeout)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"zero concurrency", "scanner:\n  concurrency: 0\n"},
		{"excessive concurrency", "scanner:\n  concurrency: 5000\n"},
		{"bad probe mode", "scanner:\n  probe_mode: ping\n"},
		{"bad source mode", "sources:\n  mode: scrape\n"},
		{"bad output format", "output:\n  formats: [xml]\n"},
		{"bad target url", "reachability:\n  targets: [not-a-url]\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resetViper(t)
			path := writeConfig(t, tc.yaml)
			if _, err := LoadConfig(path); err == nil {
				t.Fatalf("config accepted: %s", tc.yaml)
			}
		})
	}
}

func TestLoadConfigCrossFieldChecks(t *testing.T) {
	t.Run("full-connect requires target", func(t *testing.T) {
		resetViper(t)
		path := writeConfig(t, "scanner:\n  probe_mode: full-connect\n")
		_, err := LoadConfig(path)
		if err == nil || !strings.Contains(err.Error(), "connect_target") {
			t.Fatalf("got err %v, want connect_target complaint", err)
		}
	})

	t.Run("full-connect with target passes", func(t *testing.T) {
		resetViper(t)
		path := writeConfig(t, "scanner:\n  probe_mode: full-connect\n  connect_target: www.example.com:80\n")
		if _, err := LoadConfig(path); err != nil {
			t.Fatalf("LoadConfig returned error: %v", err)
		}
	})

	t.Run("probe timeout above task timeout", func(t *testing.T) {
		resetViper(t)
		path := writeConfig(t, "scanner:\n  probe_timeout: 50s\n  task_timeout: 10s\n")
		_, err := LoadConfig(path)
		if err == nil || !strings.Contains(err.Error(), "probe_timeout") {
			t.Fatalf("got err %v, want probe_timeout complaint", err)
		}
	})
}

func TestQuakeAPIKeyFromEnvironment(t *testing.T) {
	t.Setenv("QUAKE_API_KEY", "k-123")
	if got := QuakeAPIKey(); got != "k-123" {
		t.Fatalf("QuakeAPIKey() = %q", got)
	}

	t.Setenv("QUAKE_API_KEY", "")
	if got := QuakeAPIKey(); got != "" {
		t.Fatalf("QuakeAPIKey() = %q, want empty", got)
	}
}
