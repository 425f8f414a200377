// Package config loads harvester settings from environment, an optional
// .env file and an optional YAML file. Later sources override earlier ones;
// command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/review-harvester/pkg/cache"
	"github.com/Sternrassler/review-harvester/pkg/client"
	"github.com/Sternrassler/review-harvester/pkg/logging"
	"github.com/Sternrassler/review-harvester/pkg/pagination"
	"github.com/Sternrassler/review-harvester/pkg/ratelimit"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvRedisURL  = "REDIS_URL"
	EnvLogLevel  = "LOG_LEVEL"
	EnvOutputDir = "REVIEW_OUTPUT_DIR"
	EnvBaseURL   = "REVIEW_BASE_URL"
	EnvMaxPages  = "REVIEW_MAX_PAGES"
)

// Settings represents the YAML configuration structure.
type Settings struct {
	OutputDirectory string `yaml:"output_directory"`
	LogLevel        string `yaml:"log_level"`
	Pretty          bool   `yaml:"pretty"`
	MetricsAddr     string `yaml:"metrics_addr"`

	Run struct {
		MinHours int `yaml:"min_hours"`
		MaxPages int `yaml:"max_pages"`
	} `yaml:"run"`

	API struct {
		BaseURL          string        `yaml:"base_url"`
		UserAgent        string        `yaml:"user_agent"`
		Language         string        `yaml:"language"`
		Timeout          time.Duration `yaml:"timeout"`
		ConcurrencyLimit int           `yaml:"concurrency_limit"`
	} `yaml:"api"`

	Cache struct {
		RedisURL string        `yaml:"redis_url"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
}

// Default returns settings matching the library defaults.
func Default() Settings {
	cc := client.DefaultConfig()

	var s Settings
	s.OutputDirectory = "."
	s.LogLevel = string(logging.LevelInfo)
	s.Run.MaxPages = pagination.DefaultMaxPages
	s.API.BaseURL = cc.BaseURL
	s.API.UserAgent = cc.UserAgent
	s.API.Language = cc.Language
	s.API.Timeout = cc.Timeout
	s.API.ConcurrencyLimit = cc.ConcurrencyLimit
	s.Cache.TTL = cache.DefaultTTL
	return s
}

// LoadEnv loads KEY=VALUE pairs from the given .env files (default ".env")
// into the process environment. Missing files are ignored; variables that are
// already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load returns defaults overridden by the environment and then by the YAML
// file at path. An empty path skips the file.
func Load(path string) (Settings, error) {
	s := Default()
	if err := s.ApplyEnv(); err != nil {
		return s, err
	}

	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return s, nil
}

// ApplyEnv overrides settings from environment variables that are set.
func (s *Settings) ApplyEnv() error {
	if v := os.Getenv(EnvRedisURL); v != "" {
		s.Cache.RedisURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		s.OutputDirectory = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		s.API.BaseURL = v
	}
	if v := os.Getenv(EnvMaxPages); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer (got %q)", EnvMaxPages, v)
		}
		s.Run.MaxPages = n
	}
	return nil
}

// Validate checks values that cannot be repaired by clamping.
func (s Settings) Validate() error {
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		return err
	}
	if s.Run.MinHours < 0 {
		return fmt.Errorf("run.min_hours must be >= 0 (got %d)", s.Run.MinHours)
	}
	if s.API.ConcurrencyLimit > ratelimit.DefaultConcurrencyLimit {
		return fmt.Errorf("api.concurrency_limit must be <= %d (got %d)", ratelimit.DefaultConcurrencyLimit, s.API.ConcurrencyLimit)
	}
	if s.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be > 0 (got %s)", s.API.Timeout)
	}
	return nil
}

// RedisClient connects to Cache.RedisURL. It returns nil when no URL is set.
func (s Settings) RedisClient() (*redis.Client, error) {
	if s.Cache.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(s.Cache.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// ClientConfig builds the review API client configuration.
func (s Settings) ClientConfig(rdb *redis.Client) client.Config {
	cfg := client.DefaultConfig()
	if s.API.BaseURL != "" {
		cfg.BaseURL = s.API.BaseURL
	}
	if s.API.UserAgent != "" {
		cfg.UserAgent = s.API.UserAgent
	}
	if s.API.Language != "" {
		cfg.Language = s.API.Language
	}
	if s.API.Timeout > 0 {
		cfg.Timeout = s.API.Timeout
	}
	if s.API.ConcurrencyLimit > 0 {
		cfg.ConcurrencyLimit = s.API.ConcurrencyLimit
	}
	cfg.Redis = rdb
	cfg.CacheTTL = s.Cache.TTL
	return cfg
}

// Logging returns the logger configuration.
func (s Settings) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(s.LogLevel); err == nil {
		cfg.Level = level
	}
	cfg.Pretty = s.Pretty
	return cfg
}
