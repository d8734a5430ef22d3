package config

import (
	"os"
	"path/filepath"
	"testing"

	"taskmaster/pkg/utils/constants"
)

func TestLoadExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskmasterd.yaml")
	body := `
daemonize: false
listen: "tcp://127.0.0.1:9999"
pool: 8
log:
  level: debug
  file_enabled: false
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Daemonize {
		t.Error("daemonize = true, want false")
	}
	if cfg.Listen != "tcp://127.0.0.1:9999" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.Pool != 8 {
		t.Errorf("pool = %d, want 8", cfg.Pool)
	}
	if cfg.Log.Level != "debug" || cfg.Log.FileEnabled {
		t.Errorf("log = %+v", cfg.Log)
	}

	// keys absent from the file keep their defaults
	if cfg.PidFile != constants.DaemonPidFilePath {
		t.Errorf("pidfile = %q, want default", cfg.PidFile)
	}
	if cfg.SnapshotDir != constants.DaemonSnapshotDirPath {
		t.Errorf("snapshotdir = %q, want default", cfg.SnapshotDir)
	}

	if Get() != cfg {
		t.Error("Get() does not return the last loaded config")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load succeeded on a missing explicit file")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TASKMASTER_LISTEN", "unix:///tmp/tm.sock")

	path := filepath.Join(t.TempDir(), "taskmasterd.yaml")
	if err := os.WriteFile(path, []byte("pool: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "unix:///tmp/tm.sock" {
		t.Errorf("listen = %q, want env override", cfg.Listen)
	}
	if cfg.Pool != 2 {
		t.Errorf("pool = %d, want 2", cfg.Pool)
	}
}

func TestLoadBadPool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskmasterd.yaml")
	if err := os.WriteFile(path, []byte("pool: -3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pool != constants.DefaultPoolSize {
		t.Errorf("pool = %d, want default %d", cfg.Pool, constants.DefaultPoolSize)
	}
}
