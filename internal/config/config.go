// Package config loads the hivemq-tui YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"
)

const (
	appName         = "hivemq-tui"
	fileName        = "config.yaml"
	DefaultEndpoint = "http://localhost:8888"
	DefaultPageSize = 500
	DefaultTimeout  = 30 * time.Second
)

// Config is the on-disk configuration. Command-line flags override it.
type Config struct {
	Endpoint string          `json:"endpoint"`
	Token    string          `json:"token,omitempty"`
	Timeout  metav1.Duration `json:"timeout"`
	Insecure bool            `json:"insecure,omitempty"`
	PageSize int             `json:"pageSize"`
	Filter   FilterConfig    `json:"filter"`
	Cache    CacheConfig     `json:"cache"`
	Log      LogConfig       `json:"log"`
}

// FilterConfig selects the filter semantics.
type FilterConfig struct {
	Mode          string `json:"mode"` // substring or regex
	CaseSensitive bool   `json:"caseSensitive,omitempty"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Backend string `json:"backend"`        // memory or sqlite
	Path    string `json:"path,omitempty"` // sqlite file, in-memory when empty
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file,omitempty"`
}

const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
)

func Default() Config {
	return Config{
		Endpoint: DefaultEndpoint,
		Timeout:  metav1.Duration{Duration: DefaultTimeout},
		PageSize: DefaultPageSize,
		Filter:   FilterConfig{Mode: "substring"},
		Cache:    CacheConfig{Backend: CacheSQLite},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// EnsureDefaults fills unset fields with their defaults.
func EnsureDefaults(cfg *Config) {
	def := Default()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Timeout.Duration <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.Filter.Mode == "" {
		cfg.Filter.Mode = def.Filter.Mode
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = def.Cache.Backend
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}

// Validate reports settings no command can run with.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case CacheMemory, CacheSQLite:
	default:
		return fmt.Errorf("cache.backend must be %q or %q, got %q", CacheMemory, CacheSQLite, c.Cache.Backend)
	}
	switch c.Filter.Mode {
	case "substring", "regex":
	default:
		return fmt.Errorf("filter.mode must be substring or regex, got %q", c.Filter.Mode)
	}
	return nil
}

// Dir returns the configuration directory, honouring XDG_CONFIG_HOME.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	EnsureDefaults(&cfg)
	return cfg, nil
}

// Save writes cfg to path atomically.
func Save(path string, cfg Config) error {
	EnsureDefaults(&cfg)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
