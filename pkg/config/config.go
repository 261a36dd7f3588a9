// Package config loads backend configuration from a YAML file with
// environment-variable overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Listen   string   `yaml:"listen"`
	Database Database `yaml:"database"`
	Redis    Redis    `yaml:"redis"`
	Worker   Worker   `yaml:"worker"`
	Quota    Quota    `yaml:"quota"`
	Provider Provider `yaml:"provider"`
}

// Database selects the job store backend.
type Database struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`
}

// Redis configures the shared rate-limiter backend. An empty address
// disables it; the limiter then runs local-only.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Worker configures the dispatcher.
type Worker struct {
	Concurrency            int    `yaml:"concurrency"`
	QueueCapacity          int    `yaml:"queue_capacity"`
	GenerateTimeoutSeconds int    `yaml:"generate_timeout_seconds"`
	SweepSpec              string `yaml:"sweep_spec"` // cron expression, empty disables
	SweepAgeSeconds        int    `yaml:"sweep_age_seconds"`
}

// Quota is the per-owner submission quota enforced at the API edge.
type Quota struct {
	Limit         int `yaml:"limit"`
	WindowSeconds int `yaml:"window_seconds"`
}

// Provider configures the generation provider.
type Provider struct {
	Name      string `yaml:"name"` // "deepseek" or "static"
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Listen: ":8080",
		Database: Database{
			Driver: "sqlite",
			DSN:    "aidoc.db",
		},
		Worker: Worker{
			Concurrency:            4,
			QueueCapacity:          64,
			GenerateTimeoutSeconds: 60,
			SweepSpec:              "*/5 * * * *",
			SweepAgeSeconds:        300,
		},
		Quota: Quota{
			Limit:         30,
			WindowSeconds: 900, // 15-minute rolling window
		},
		Provider: Provider{
			Name:      "static",
			TimeoutMs: 30000,
		},
	}
}

// Load reads the YAML file at path (optional) and applies environment
// overrides on top of defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// GenerateTimeout returns the worker timeout as a duration.
func (w Worker) GenerateTimeout() time.Duration {
	return time.Duration(w.GenerateTimeoutSeconds) * time.Second
}

// SweepAge returns the sweep age threshold as a duration.
func (w Worker) SweepAge() time.Duration {
	return time.Duration(w.SweepAgeSeconds) * time.Second
}

// Window returns the quota window as a duration.
func (q Quota) Window() time.Duration {
	return time.Duration(q.WindowSeconds) * time.Second
}

// Timeout returns the provider timeout as a duration.
func (p Provider) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

func applyEnv(cfg *Config) {
	cfg.Listen = getEnv("AIDOC_LISTEN", cfg.Listen)
	cfg.Database.Driver = getEnv("AIDOC_DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("AIDOC_DB_DSN", cfg.Database.DSN)
	cfg.Redis.Addr = getEnv("AIDOC_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("AIDOC_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Provider.Name = getEnv("AIDOC_PROVIDER", cfg.Provider.Name)
	cfg.Provider.BaseURL = getEnv("AIDOC_PROVIDER_BASE_URL", cfg.Provider.BaseURL)
	cfg.Provider.APIKey = getEnv("AIDOC_PROVIDER_API_KEY", cfg.Provider.APIKey)
	cfg.Provider.Model = getEnv("AIDOC_PROVIDER_MODEL", cfg.Provider.Model)
	cfg.Worker.Concurrency = getEnvInt("AIDOC_WORKER_CONCURRENCY", cfg.Worker.Concurrency)
	cfg.Quota.Limit = getEnvInt("AIDOC_QUOTA_LIMIT", cfg.Quota.Limit)
	cfg.Quota.WindowSeconds = getEnvInt("AIDOC_QUOTA_WINDOW_SECONDS", cfg.Quota.WindowSeconds)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
