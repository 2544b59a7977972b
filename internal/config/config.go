// Package config loads server settings from the environment and builds the
// process logger.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const envPrefix = "IMAGE_EDITOR_"

type Config struct {
	Env      string
	LogLevel string

	// Origin is the editor's own origin, sent on remote fetches for the
	// cross-origin check.
	Origin string

	// Remote fetch limits
	FetchTimeout     time.Duration
	MaxDownloadBytes int64

	// HistoryLimit caps each session's history depth. Zero is unbounded.
	HistoryLimit int

	// Edit output limits
	MaxDimension int
	MaxPixels    int64

	// Local Storage
	StoragePath string // Base directory for saved images; empty disables editor_save
	StorageURL  string // Base URL for saved images; file:// URLs when empty

	// MetricsAddr serves /metrics when set, e.g. "127.0.0.1:9090".
	MetricsAddr string
}

// FileConfig is the layout of the optional TOML file named by
// IMAGE_EDITOR_CONFIG. Environment variables take precedence over it.
type FileConfig struct {
	Env              string        `toml:"env"`
	LogLevel         string        `toml:"logLevel"`
	Origin           string        `toml:"origin"`
	FetchTimeout     string        `toml:"fetchTimeout"`
	MaxDownloadBytes string        `toml:"maxDownloadBytes"`
	HistoryLimit     int           `toml:"historyLimit"`
	MaxDimension     int           `toml:"maxDimension"`
	MaxPixels        int64         `toml:"maxPixels"`
	MetricsAddr      string        `toml:"metricsAddr"`
	Storage          StorageConfig `toml:"storage"`
}

// StorageConfig is the [storage] table of the config file.
type StorageConfig struct {
	Path string `toml:"path"`
	URL  string `toml:"url"`
}

func defaultFileConfig() FileConfig {
	return FileConfig{
		Env:              "production",
		LogLevel:         "info",
		FetchTimeout:     "30s",
		MaxDownloadBytes: "25MB",
		MaxDimension:     16384,
		MaxPixels:        100_000_000,
		Storage: StorageConfig{
			Path: "./saved-images",
		},
	}
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	file := defaultFileConfig()
	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, &file); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	fileTimeout, err := time.ParseDuration(file.FetchTimeout)
	if err != nil {
		return nil, fmt.Errorf("fetchTimeout must be a duration such as 30s, got %q: %w", file.FetchTimeout, err)
	}

	cfg := &Config{
		Env:      getEnv("ENV", file.Env),
		LogLevel: getEnv("LOG_LEVEL", file.LogLevel),

		Origin:       getEnv("ORIGIN", file.Origin),
		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", fileTimeout),

		HistoryLimit: getEnvInt("HISTORY_LIMIT", file.HistoryLimit),
		MaxDimension: getEnvInt("MAX_DIMENSION", file.MaxDimension),
		MaxPixels:    int64(getEnvInt("MAX_PIXELS", int(file.MaxPixels))),

		StoragePath: getEnv("STORAGE_PATH", file.Storage.Path),
		StorageURL:  getEnv("STORAGE_URL", file.Storage.URL),

		MetricsAddr: getEnv("METRICS_ADDR", file.MetricsAddr),
	}

	maxBytes := getEnv("MAX_DOWNLOAD_BYTES", file.MaxDownloadBytes)
	n, err := bytefmt.ToBytes(maxBytes)
	if err != nil {
		return nil, fmt.Errorf("%sMAX_DOWNLOAD_BYTES must be a size such as 25MB, got %q: %w", envPrefix, maxBytes, err)
	}
	cfg.MaxDownloadBytes = int64(n)

	if cfg.HistoryLimit < 0 {
		return nil, fmt.Errorf("%sHISTORY_LIMIT must not be negative, got %d", envPrefix, cfg.HistoryLimit)
	}
	if cfg.MaxDimension <= 0 {
		return nil, fmt.Errorf("%sMAX_DIMENSION must be positive, got %d", envPrefix, cfg.MaxDimension)
	}
	if cfg.MaxPixels <= 0 {
		return nil, fmt.Errorf("%sMAX_PIXELS must be positive, got %d", envPrefix, cfg.MaxPixels)
	}
	if cfg.FetchTimeout <= 0 {
		return nil, fmt.Errorf("%sFETCH_TIMEOUT must be positive, got %s", envPrefix, cfg.FetchTimeout)
	}

	return cfg, nil
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return c.LogLevel == "debug"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(envPrefix + key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(envPrefix + key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
