package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yi-nology/docvault/pkg/logging"
)

// Config captures service level configuration loaded from config.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	Upload   UploadConfig   `yaml:"upload"`
	Worker   WorkerConfig   `yaml:"worker"`
	Log      logging.Config `yaml:"log"`
	CORS     CORSConfig     `yaml:"cors"`
}

// RedisConfig defines Redis connection settings for the queue and locks.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CORSConfig defines CORS middleware settings.
type CORSConfig struct {
	AllowOrigin      string `yaml:"allow_origin"`
	AllowMethods     string `yaml:"allow_methods"`
	AllowHeaders     string `yaml:"allow_headers"`
	AllowCredentials bool   `yaml:"allow_credentials"`
}

// StorageConfig locates application-owned directories.
type StorageConfig struct {
	// MediaRoot is the base of LOCAL backends and of relative local locators.
	MediaRoot string `yaml:"media_root"`
	// TmpDir holds staged uploads until a worker has transferred them.
	TmpDir string `yaml:"tmp_dir"`
}

// UploadConfig defines file upload constraints. An empty AllowedTypes
// list accepts every MIME type.
type UploadConfig struct {
	MaxSize      int64    `yaml:"max_size"`
	AllowedTypes []string `yaml:"allowed_types"`
}

// WorkerConfig controls the asynchronous upload pipeline.
type WorkerConfig struct {
	Queue          string        `yaml:"queue"` // memory or redis
	QueueKey       string        `yaml:"queue_key"`
	QueueSize      int           `yaml:"queue_size"`
	Concurrency    int           `yaml:"concurrency"`
	MaxRetries     int           `yaml:"max_retries"` // 0 or negative: single attempt
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	SoftTimeLimit  time.Duration `yaml:"soft_time_limit"`
	HardTimeLimit  time.Duration `yaml:"hard_time_limit"`
	ReapInterval   time.Duration `yaml:"reap_interval"`
	ReapGrace      time.Duration `yaml:"reap_grace"`
	LockTTL        time.Duration `yaml:"lock_ttl"`
}

// ServerConfig defines HTTP server options.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// DatabaseConfig defines the database backend configuration.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig contains SQLite specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// MySQLConfig contains MySQL specific connection details.
type MySQLConfig struct {
	DSN string `yaml:"dsn"`
}

// PostgresConfig contains PostgreSQL specific connection details.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// Load reads a YAML configuration file from the provided path.
// It searches in the current working directory first, then next to the binary executable.
func Load(name string) (*Config, error) {
	configPath := findConfigFile(name)
	if configPath == "" {
		logging.Warn("config file not found, using defaults", logging.String("name", name))
		return defaultConfig(), nil
	}

	logging.Info("loading config", logging.String("path", configPath))
	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	// Derived values (tmp dir, soft limit) are filled after decoding.
	cfg := baseConfig()
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	cfg := baseConfig()
	applyDefaults(cfg)
	return cfg
}

func baseConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
		},
		CORS: CORSConfig{
			AllowOrigin:      "*",
			AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
			AllowHeaders:     "*",
			AllowCredentials: false,
		},
		Upload: UploadConfig{
			MaxSize: 100 * 1024 * 1024, // 100MB
		},
		// Set before decoding so an explicit max_retries: 0 disables retries.
		Worker: WorkerConfig{
			MaxRetries: 3,
		},
		Log: logging.Config{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "data/docvault.db"
	}
	if cfg.Storage.MediaRoot == "" {
		cfg.Storage.MediaRoot = "data/media"
	}
	if cfg.Storage.TmpDir == "" {
		cfg.Storage.TmpDir = filepath.Join(cfg.Storage.MediaRoot, "tmp_uploads")
	}

	w := &cfg.Worker
	w.Queue = strings.ToLower(strings.TrimSpace(w.Queue))
	if w.Queue == "" {
		w.Queue = "memory"
	}
	if w.QueueKey == "" {
		w.QueueKey = "docvault:uploads"
	}
	if w.QueueSize <= 0 {
		w.QueueSize = 256
	}
	if w.Concurrency <= 0 {
		w.Concurrency = 4
	}
	if w.MaxRetries < 0 {
		w.MaxRetries = 0
	}
	if w.InitialBackoff <= 0 {
		w.InitialBackoff = time.Second
	}
	if w.MaxBackoff <= 0 {
		w.MaxBackoff = 10 * time.Minute
	}
	if w.HardTimeLimit <= 0 {
		w.HardTimeLimit = 10 * time.Minute
	}
	if w.SoftTimeLimit <= 0 || w.SoftTimeLimit > w.HardTimeLimit {
		w.SoftTimeLimit = w.HardTimeLimit * 9 / 10
	}
	if w.ReapInterval <= 0 {
		w.ReapInterval = time.Minute
	}
	if w.ReapGrace <= 0 {
		w.ReapGrace = time.Minute
	}
	if w.LockTTL <= 0 {
		w.LockTTL = 30 * time.Second
	}
}

// Validate rejects combinations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Worker.Queue {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("worker.queue=redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("unsupported worker queue: %s", c.Worker.Queue)
	}
	return nil
}

// findConfigFile searches for a config file in the current directory first,
// then next to the binary executable. Returns the full path or empty string.
func findConfigFile(name string) string {
	// 1. Current working directory
	if _, err := os.Stat(name); err == nil {
		abs, _ := filepath.Abs(name)
		return abs
	}

	// 2. Next to the binary executable
	exe, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exe)
		candidate := filepath.Join(exeDir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}
