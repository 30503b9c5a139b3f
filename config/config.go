// Package config loads the service configuration.
//
// Sources, later ones win:
//  1. built-in defaults (Default)
//  2. a YAML file, with ${ENV_VAR} placeholders expanded
//  3. PAYROLL_* environment variables, optionally from .env files
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int           `yaml:"port" env:"PAYROLL_HTTP_PORT"`
		RequestTimeout time.Duration `yaml:"request_timeout" env:"PAYROLL_REQUEST_TIMEOUT"`
		CORSOrigins    []string      `yaml:"cors_origins" env:"PAYROLL_CORS_ORIGINS" envSeparator:","`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path" env:"PAYROLL_DB_PATH"`
	} `yaml:"database"`

	Redis struct {
		Address  string        `yaml:"address" env:"PAYROLL_REDIS_ADDR"`
		Password string        `yaml:"password" env:"PAYROLL_REDIS_PASSWORD"`
		DB       int           `yaml:"db" env:"PAYROLL_REDIS_DB"`
		LockTTL  time.Duration `yaml:"lock_ttl" env:"PAYROLL_REDIS_LOCK_TTL"`
	} `yaml:"redis"`

	Refresh struct {
		Workers int `yaml:"workers" env:"PAYROLL_REFRESH_WORKERS"`
	} `yaml:"refresh"`

	Log struct {
		Level  string `yaml:"level" env:"PAYROLL_LOG_LEVEL"`
		Format string `yaml:"format" env:"PAYROLL_LOG_FORMAT"` // console or json
	} `yaml:"log"`

	Metrics struct {
		Enabled bool `yaml:"enabled" env:"PAYROLL_METRICS_ENABLED"`
	} `yaml:"metrics"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Server.RequestTimeout = 30 * time.Second
	cfg.Server.CORSOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	cfg.Database.Path = "data/payroll.db"
	cfg.Redis.LockTTL = 30 * time.Second
	cfg.Refresh.Workers = 4
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	cfg.Metrics.Enabled = true
	return cfg
}

// LoadEnvFiles loads the .env files that exist, in order. Missing files are
// skipped; variables already set in the process are not overridden.
func LoadEnvFiles(files ...string) (int, error) {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}

		// Support ${ENV_VAR} placeholders in YAML config.
		data = []byte(os.ExpandEnv(string(data)))

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.request_timeout must be positive, got %s", c.Server.RequestTimeout))
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Refresh.Workers < 1 {
		errs = append(errs, fmt.Errorf("refresh.workers must be at least 1, got %d", c.Refresh.Workers))
	}
	if c.Redis.Address != "" && c.Redis.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("redis.lock_ttl must be positive, got %s", c.Redis.LockTTL))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// EnsureDataDir creates the directory holding the database file.
func (c *Config) EnsureDataDir() error {
	if c.Database.Path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(c.Database.Path), 0o755)
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
