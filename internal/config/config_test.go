package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.StateDir == "" {
		t.Fatalf("empty state dir")
	}
	if cfg.Monitor.Interval != 5*time.Second || cfg.Monitor.StopWait != 10*time.Second {
		t.Fatalf("bad monitor defaults: %+v", cfg.Monitor)
	}
	if cfg.StateFile() != filepath.Join(cfg.StateDir, "state.json") {
		t.Fatalf("state file: %s", cfg.StateFile())
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
state_dir = "` + dir + `"

[log]
max_size_mb = 42

[monitor]
interval = "250ms"

[metrics]
enabled = true
listen = "127.0.0.1:9999"

[history]
dsn = ":memory:"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StateDir != dir {
		t.Fatalf("state dir: %s", cfg.StateDir)
	}
	if cfg.Log.Dir != filepath.Join(dir, "logs") {
		t.Fatalf("log dir default not derived: %s", cfg.Log.Dir)
	}
	if cfg.Log.MaxSizeMB != 42 {
		t.Fatalf("max size: %d", cfg.Log.MaxSizeMB)
	}
	if cfg.Monitor.Interval != 250*time.Millisecond {
		t.Fatalf("interval: %v", cfg.Monitor.Interval)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Listen != "127.0.0.1:9999" {
		t.Fatalf("metrics: %+v", cfg.Metrics)
	}
	if cfg.History.DSN != ":memory:" {
		t.Fatalf("history: %+v", cfg.History)
	}
	// stop_wait absent falls back to default
	if cfg.Monitor.StopWait != 10*time.Second {
		t.Fatalf("stop wait: %v", cfg.Monitor.StopWait)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("explicit missing config must fail")
	}
}
