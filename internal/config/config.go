package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config defines client configuration.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Store     StoreConfig     `yaml:"store"`
	Downloads DownloadsConfig `yaml:"downloads"`
	Log       LogConfig       `yaml:"log"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// RequestsPerSecond paces outgoing requests; zero disables pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type DownloadsConfig struct {
	Dir string `yaml:"dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://127.0.0.1:8000/api",
			Timeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
		Downloads: DownloadsConfig{
			Dir: ".",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from an optional .env file, an optional YAML file
// and environment variables, in that order of precedence (lowest first).
func Load() (Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("CHEMVIZ_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if base := os.Getenv("CHEMVIZ_API_BASE"); base != "" {
		cfg.API.BaseURL = base
	}
	if timeoutStr := os.Getenv("CHEMVIZ_API_TIMEOUT"); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CHEMVIZ_API_TIMEOUT: %w", err)
		}
		cfg.API.Timeout = timeout
	}
	if rpsStr := os.Getenv("CHEMVIZ_API_RPS"); rpsStr != "" {
		rps, err := strconv.ParseFloat(rpsStr, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CHEMVIZ_API_RPS: %w", err)
		}
		cfg.API.RequestsPerSecond = rps
	}
	if storePath := os.Getenv("CHEMVIZ_STORE_PATH"); storePath != "" {
		cfg.Store.Path = storePath
	}
	if dir := os.Getenv("CHEMVIZ_DOWNLOAD_DIR"); dir != "" {
		cfg.Downloads.Dir = dir
	}
	if level := os.Getenv("CHEMVIZ_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api base url %q: scheme must be http or https", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive")
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("api requests_per_second must not be negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "chemviz.db"
	}
	return filepath.Join(dir, "chemviz", "state.db")
}
