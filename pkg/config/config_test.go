package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load("non-existent-config.yaml")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	assertDefaultConfig(t, cfg)
}

func TestLoadWithPartialConfigAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  address: ":9090"
database:
  driver: ""
  sqlite: {}
storage:
  media_root: /srv/media
worker:
  concurrency: 8
  hard_time_limit: 2m
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Address != ":9090" {
		t.Fatalf("expected server address :9090, got %s", cfg.Server.Address)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("expected database driver sqlite, got %s", cfg.Database.Driver)
	}
	if cfg.Database.SQLite.Path != "data/docvault.db" {
		t.Fatalf("expected sqlite path data/docvault.db, got %s", cfg.Database.SQLite.Path)
	}
	if cfg.Storage.TmpDir != filepath.Join("/srv/media", "tmp_uploads") {
		t.Fatalf("expected tmp dir below media root, got %s", cfg.Storage.TmpDir)
	}
	if cfg.Worker.Concurrency != 8 {
		t.Fatalf("expected concurrency 8, got %d", cfg.Worker.Concurrency)
	}
	if cfg.Worker.HardTimeLimit != 2*time.Minute {
		t.Fatalf("expected hard limit 2m, got %s", cfg.Worker.HardTimeLimit)
	}
	if cfg.Worker.SoftTimeLimit != 108*time.Second {
		t.Fatalf("expected soft limit 90%% of hard limit, got %s", cfg.Worker.SoftTimeLimit)
	}
	if cfg.Upload.MaxSize != 100*1024*1024 {
		t.Fatalf("expected default max size to survive partial config, got %d", cfg.Upload.MaxSize)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  adress: \":1\"\n"), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadRedisQueueRequiresRedis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("worker:\n  queue: redis\n"), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error when redis queue is selected without redis")
	}
}

func assertDefaultConfig(t *testing.T, cfg *Config) {
	t.Helper()
	if cfg == nil {
		t.Fatalf("config is nil")
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("expected default address :8080, got %s", cfg.Server.Address)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("expected default driver sqlite, got %s", cfg.Database.Driver)
	}
	if cfg.Worker.Queue != "memory" || cfg.Worker.MaxRetries != 3 {
		t.Fatalf("unexpected worker defaults: %+v", cfg.Worker)
	}
	if cfg.Storage.MediaRoot != "data/media" {
		t.Fatalf("expected default media root data/media, got %s", cfg.Storage.MediaRoot)
	}
}

func TestLoadMaxRetries(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want int
	}{
		{"absent", "worker:\n  concurrency: 2\n", 3},
		{"explicit zero", "worker:\n  max_retries: 0\n", 0},
		{"negative", "worker:\n  max_retries: -1\n", 0},
		{"explicit", "worker:\n  max_retries: 5\n", 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0o644); err != nil {
				t.Fatalf("write temp config: %v", err)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Worker.MaxRetries != tc.want {
				t.Fatalf("expected max_retries %d, got %d", tc.want, cfg.Worker.MaxRetries)
			}
		})
	}
}
