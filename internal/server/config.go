package server

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/iwvelando/heloc-forecast/internal/config"
	"github.com/iwvelando/heloc-forecast/pkg/constants"
)

// Config defines runtime parameters for the HTTP server. Values from the YAML
// file are overridden by HELOC_SERVER_* environment variables.
type Config struct {
	Address               string               `yaml:"address" env:"HELOC_SERVER_ADDRESS"`
	MaxUploadSize         string               `yaml:"maxUploadSize" env:"HELOC_SERVER_MAX_UPLOAD_SIZE"`
	RequestTimeoutSeconds int                  `yaml:"requestTimeoutSeconds" env:"HELOC_SERVER_REQUEST_TIMEOUT_SECONDS"`
	RateLimitPerMinute    int                  `yaml:"rateLimitPerMinute" env:"HELOC_SERVER_RATE_LIMIT_PER_MINUTE"` // negative disables
	DBPath                string               `yaml:"dbPath" env:"HELOC_SERVER_DB_PATH"`
	RedisAddr             string               `yaml:"redisAddr" env:"HELOC_SERVER_REDIS_ADDR"`
	RedisPassword         string               `yaml:"redisPassword" env:"HELOC_SERVER_REDIS_PASSWORD"`
	RedisDB               int                  `yaml:"redisDb" env:"HELOC_SERVER_REDIS_DB"`
	CacheTTLMinutes       int                  `yaml:"cacheTtlMinutes" env:"HELOC_SERVER_CACHE_TTL_MINUTES"`
	OTelEndpoint          string               `yaml:"otelEndpoint" env:"HELOC_SERVER_OTEL_ENDPOINT"`
	Logging               config.LoggingConfig `yaml:"logging"`
	uploadSizeBytes       int64
}

// LoadConfig loads the server configuration from YAML and the environment.
// If the file does not exist, defaults are used without error.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Address:         constants.DefaultServerAddress,
		MaxUploadSize:   fmt.Sprintf("%d", constants.DefaultMaxUploadSizeBytes),
		Logging:         config.LoggingConfig{},
		uploadSizeBytes: constants.DefaultMaxUploadSizeBytes,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read server config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse server config: %w", err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UploadSizeBytes returns the configured upload size in bytes.
func (c *Config) UploadSizeBytes() int64 {
	return c.uploadSizeBytes
}

// SetUploadSizeBytes overrides the configured upload size.
func (c *Config) SetUploadSizeBytes(size int64) {
	if size > 0 {
		c.uploadSizeBytes = size
		c.MaxUploadSize = fmt.Sprintf("%d", size)
	}
}

// RequestTimeout bounds one forecast request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// CacheTTL is how long cached simulation results live.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

func (c *Config) normalize() error {
	if c.Address == "" {
		c.Address = constants.DefaultServerAddress
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = constants.DefaultRequestTimeoutSeconds
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = constants.DefaultRateLimitPerMinute
	}
	if c.CacheTTLMinutes <= 0 {
		c.CacheTTLMinutes = constants.DefaultCacheTTLMinutes
	}

	sizeStr := strings.TrimSpace(c.MaxUploadSize)
	if sizeStr == "" {
		c.uploadSizeBytes = constants.DefaultMaxUploadSizeBytes
		c.MaxUploadSize = fmt.Sprintf("%d", constants.DefaultMaxUploadSizeBytes)
		return nil
	}

	bytes, err := ParseSize(sizeStr)
	if err != nil {
		return err
	}
	if bytes <= 0 {
		bytes = constants.DefaultMaxUploadSizeBytes
	}
	c.uploadSizeBytes = bytes
	return nil
}

// ParseSize converts a human-friendly byte string into bytes. Decimal units
// ("256K", "10MB") are powers of 1000 and binary units ("256KiB") powers of
// 1024. An empty string means the default upload size.
func ParseSize(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return constants.DefaultMaxUploadSizeBytes, nil
	}
	n, err := humanize.ParseBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", value, err)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return int64(n), nil
}
