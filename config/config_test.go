package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/tailored-agentic-units/bund/async"
	"github.com/tailored-agentic-units/bund/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	if cfg.Observer != "slog" {
		t.Errorf("got Observer %q, want slog", cfg.Observer)
	}
	if cfg.Persist.Codec != "json" {
		t.Errorf("got Persist.Codec %q, want json", cfg.Persist.Codec)
	}
	if cfg.DevTools.Signals != 100 {
		t.Errorf("got DevTools.Signals %d, want 100", cfg.DevTools.Signals)
	}
	m, err := cfg.Mechanism()
	if err != nil || m != async.MechanismFirst {
		t.Errorf("got Mechanism %q, %v; want first", m, err)
	}
}

func TestConfig_Merge_ZeroValuesPreserveDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Merge(&config.Config{})

	if cfg != config.Default() {
		t.Errorf("merge of zero config changed defaults: %+v", cfg)
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := config.Default()
	cfg.Merge(&config.Config{
		LogLevel: "debug",
		DevTools: config.DevToolsConfig{Signals: 5},
	})

	if cfg.LogLevel != "debug" {
		t.Errorf("got LogLevel %q, want debug", cfg.LogLevel)
	}
	if cfg.DevTools.Signals != 5 {
		t.Errorf("got Signals %d, want 5", cfg.DevTools.Signals)
	}
	if cfg.DevTools.Addr != "127.0.0.1:7070" {
		t.Errorf("got Addr %q, want default", cfg.DevTools.Addr)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "bund.json",
			content: `{
				"log_level": "debug",
				"persist": {"store": "file", "path": "/tmp/snap", "codec": "yaml"},
				"scheduler": {"mechanism": "sequential"}
			}`,
		},
		{
			name: "yaml",
			file: "bund.yaml",
			content: `
log_level: debug
persist:
  store: file
  path: /tmp/snap
  codec: yaml
scheduler:
  mechanism: sequential
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			cfg, err := config.Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			if cfg.SlogLevel() != slog.LevelDebug {
				t.Errorf("got level %v, want debug", cfg.SlogLevel())
			}
			if cfg.Persist.Store != "file" || cfg.Persist.Path != "/tmp/snap" || cfg.Persist.Codec != "yaml" {
				t.Errorf("got Persist %+v", cfg.Persist)
			}
			if m, _ := cfg.Mechanism(); m != async.MechanismSequential {
				t.Errorf("got Mechanism %q, want sequential", m)
			}
			if cfg.Observer != "slog" {
				t.Errorf("got Observer %q, want default slog", cfg.Observer)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := config.Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{"), 0o644)
	if _, err := config.Load(bad); err == nil {
		t.Error("expected error for malformed json")
	}

	toml := filepath.Join(dir, "bund.toml")
	os.WriteFile(toml, []byte(""), 0o644)
	if _, err := config.Load(toml); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "BUND_PERSIST_STORE=sqlite\nBUND_PERSIST_DSN=" + filepath.Join(dir, "bund.db") + "\nBUND_DEVTOOLS_SIGNALS=7\n"
	if err := os.WriteFile(envFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"BUND_PERSIST_STORE", "BUND_PERSIST_DSN", "BUND_DEVTOOLS_SIGNALS"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	t.Setenv("BUND_LOG_LEVEL", "warn")

	cfg := config.Default()
	if err := cfg.LoadEnv(envFile); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	if cfg.Persist.Store != "sqlite" {
		t.Errorf("got Store %q, want sqlite", cfg.Persist.Store)
	}
	if cfg.DevTools.Signals != 7 {
		t.Errorf("got Signals %d, want 7", cfg.DevTools.Signals)
	}
	if cfg.SlogLevel() != slog.LevelWarn {
		t.Errorf("got level %v, want warn", cfg.SlogLevel())
	}
}

func TestLoadEnv_MissingFile(t *testing.T) {
	cfg := config.Default()
	if err := cfg.LoadEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("LoadEnv() with missing file error = %v", err)
	}
}

func TestLoadEnv_BadNumber(t *testing.T) {
	t.Setenv("BUND_DEVTOOLS_SIGNALS", "many")
	cfg := config.Default()
	if err := cfg.LoadEnv(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Error("expected parse error")
	}
}
