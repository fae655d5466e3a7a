// Package config loads the server configuration from the environment,
// an optional .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"thicket/internal/models"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env           string        `yaml:"env"            env:"ENV"              env-default:"local"`
	Port          string        `yaml:"port"           env:"PORT"             env-default:"8080"`
	DatabaseURL   string        `yaml:"database_url"   env:"DATABASE_URL"`
	SessionSecret string        `yaml:"session_secret" env:"SESSION_SECRET"   env-default:"secret_key_change_me"`
	RedisURL      string        `yaml:"redis_url"      env:"REDIS_URL"`
	Content       ContentConfig `yaml:"content"`
	Listing       ListingConfig `yaml:"listing"`
	Cleanup       CleanupConfig `yaml:"cleanup"`
}

// ContentConfig feeds the immutable content policy.
type ContentConfig struct {
	MaxLength  int      `yaml:"max_length" env:"MAX_CONTENT"      env-default:"480"`
	Prohibited []string `yaml:"prohibited" env:"PROHIBITED_WORDS" env-separator:","`
}

type ListingConfig struct {
	PageSize       int           `yaml:"page_size"       env:"PAGE_SIZE"       env-default:"16"`
	TrendingSample  int           `yaml:"trending_sample"  env:"TRENDING_SAMPLE"  env-default:"100"`
	TrendingTTL     time.Duration `yaml:"trending_ttl"     env:"TRENDING_TTL"     env-default:"1m"`
	TrendingRefresh time.Duration `yaml:"trending_refresh" env:"TRENDING_REFRESH" env-default:"10m"`
}

type CleanupConfig struct {
	// Accounts older than Age with no comments and no saves are removed.
	Age      time.Duration `yaml:"age"      env:"CLEANUP_AGE"      env-default:"720h"`
	Interval time.Duration `yaml:"interval" env:"CLEANUP_INTERVAL" env-default:"24h"`
}

// MustLoad is Load that panics.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads .env into the environment if present, then fills Config from
// the YAML file at path (or CONFIG_PATH) when given, else from the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	} else if err != nil {
		slog.Debug("no .env file found, using process environment")
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return fmt.Errorf("database_url is required")
	case c.Content.MaxLength <= 0:
		return fmt.Errorf("content.max_length must be > 0")
	case c.Content.MaxLength > models.MaxContent:
		return fmt.Errorf("content.max_length must be <= %d", models.MaxContent)
	case c.Listing.PageSize <= 0:
		return fmt.Errorf("listing.page_size must be > 0")
	case c.Listing.TrendingSample <= 0:
		return fmt.Errorf("listing.trending_sample must be > 0")
	case c.Listing.TrendingTTL <= 0:
		return fmt.Errorf("listing.trending_ttl must be > 0")
	case c.Listing.TrendingRefresh < time.Second:
		return fmt.Errorf("listing.trending_refresh must be at least 1s")
	case c.Cleanup.Interval < time.Minute:
		return fmt.Errorf("cleanup.interval must be at least 1m")
	}
	return nil
}
