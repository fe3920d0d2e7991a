package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every error caused by the content of a config file or the
// environment, as opposed to failing to read the file at all.
var ErrInvalid = errors.New("invalid config")

// DefaultConfigPath is where LoadOrCreate looks when no --config is given.
const DefaultConfigPath = "~/.config/tabtime/config.yaml"

// Config is the top-level tabtime configuration.
type Config struct {
	Retention  RetentionConfig  `yaml:"retention"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
	Sync       SyncConfig       `yaml:"sync"`
	Tracker    TrackerConfig    `yaml:"tracker"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type RetentionConfig struct {
	Days int `yaml:"days"`
}

type ClassifierConfig struct {
	ProductiveDomains []string `yaml:"productive_domains"`
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	HoldingFile       string `yaml:"holding_file"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	MaxRequestSize int64    `yaml:"max_request_size"`
	AllowOrigins   []string `yaml:"allow_origins"`
	RateLimit      float64  `yaml:"rate_limit"` // requests per second per client, 0 disables
	RateBurst      int      `yaml:"rate_burst"`
}

type SyncConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxInFlight    int    `yaml:"max_in_flight"`
}

type TrackerConfig struct {
	TickSeconds    int `yaml:"tick_seconds"`
	QueueSize      int `yaml:"queue_size"`
	IdleCapMinutes int `yaml:"idle_cap_minutes"` // 0 disables

}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load reads the YAML file at path over DefaultConfig, applies environment
// overrides and validates the result. A missing file is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return decode(data)
}

// LoadOrCreate is LoadOrCreateAt on DefaultConfigPath.
func LoadOrCreate() (*Config, error) {
	path, err := ExpandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads path, first writing the defaults there when the file
// does not exist yet.
func LoadOrCreateAt(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		data, err = writeDefaults(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return decode(data)
}

func writeDefaults(path string) ([]byte, error) {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("marshaling default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("writing default config: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config file: %w", ErrInvalid, err)
	}
	return Finish(cfg)
}

// Finish applies environment overrides to cfg and validates the result.
func Finish(cfg *Config) (*Config, error) {
	if err := ApplyEnv(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch {
	case c.Retention.Days < 1:
		return fmt.Errorf("retention.days must be at least 1, got %d", c.Retention.Days)
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	case c.Server.RateLimit < 0:
		return fmt.Errorf("server.rate_limit must not be negative")
	case c.Server.RateLimit > 0 && c.Server.RateBurst < 1:
		return fmt.Errorf("server.rate_burst must be at least 1 when rate_limit is set")
	case c.Tracker.IdleCapMinutes < 0:
		return fmt.Errorf("tracker.idle_cap_minutes must not be negative")
	case c.Sync.Enabled && c.Sync.Endpoint == "":
		return fmt.Errorf("sync.endpoint is required when sync is enabled")
	}
	return nil
}

// ApplyEnv loads a .env file from the working directory when one exists and
// lets TABTIME_* variables override file values.
func ApplyEnv(cfg *Config) error {
	_ = godotenv.Load()

	setString(&cfg.Storage.Path, "TABTIME_STORAGE_PATH")
	setString(&cfg.Server.Host, "TABTIME_HOST")
	setString(&cfg.Sync.Endpoint, "TABTIME_SYNC_ENDPOINT")
	setString(&cfg.Logging.Level, "TABTIME_LOG_LEVEL")

	if err := setInt(&cfg.Server.Port, "TABTIME_PORT"); err != nil {
		return err
	}
	if err := setInt(&cfg.Retention.Days, "TABTIME_RETENTION_DAYS"); err != nil {
		return err
	}
	if v := os.Getenv("TABTIME_ALLOW_ORIGINS"); v != "" {
		cfg.Server.AllowOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Server.AllowOrigins = append(cfg.Server.AllowOrigins, o)
			}
		}
	}
	if v := os.Getenv("TABTIME_SYNC_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing TABTIME_SYNC_ENABLED: %w", err)
		}
		cfg.Sync.Enabled = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	*dst = n
	return nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// DBPath returns the resolved SQLite database file path.
func (c *Config) DBPath() (string, error) {
	dir, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// HoldingPath returns the resolved path of the local holding-area file.
func (c *Config) HoldingPath() (string, error) {
	dir, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.HoldingFile), nil
}

// Addr returns the host:port the HTTP service listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
