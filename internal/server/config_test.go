package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iwvelando/heloc-forecast/pkg/constants"
)

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Address == "" {
		t.Fatalf("expected default address, got empty")
	}
	if cfg.UploadSizeBytes() <= 0 {
		t.Fatalf("expected positive default max upload size, got %d", cfg.UploadSizeBytes())
	}
	if cfg.Logging.Level != "" || cfg.Logging.Format != "" || cfg.Logging.OutputFile != "" {
		t.Fatalf("expected empty logging defaults, got %+v", cfg.Logging)
	}
	if cfg.RequestTimeout() != constants.DefaultRequestTimeoutSeconds*time.Second {
		t.Fatalf("expected default request timeout, got %s", cfg.RequestTimeout())
	}
	if cfg.RateLimitPerMinute != constants.DefaultRateLimitPerMinute {
		t.Fatalf("expected default rate limit, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.CacheTTL() != constants.DefaultCacheTTLMinutes*time.Minute {
		t.Fatalf("expected default cache ttl, got %s", cfg.CacheTTL())
	}
	if cfg.DBPath != "" || cfg.RedisAddr != "" || cfg.OTelEndpoint != "" {
		t.Fatalf("expected optional backends to be unset, got %+v", cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server-config.yaml")

	contents := []byte(`address: 127.0.0.1:9000
maxUploadSize: 2MiB
requestTimeoutSeconds: 3
rateLimitPerMinute: -1
dbPath: /var/lib/heloc/runs.db
redisAddr: localhost:6379
logging:
  level: debug
  format: console
  outputFile: /tmp/server.log
`)
	if err := os.WriteFile(path, contents, 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Address != "127.0.0.1:9000" {
		t.Fatalf("expected address override, got %s", cfg.Address)
	}
	if cfg.UploadSizeBytes() != 2*1024*1024 {
		t.Fatalf("expected max upload override, got %d", cfg.UploadSizeBytes())
	}
	if cfg.RequestTimeout() != 3*time.Second {
		t.Fatalf("expected request timeout override, got %s", cfg.RequestTimeout())
	}
	if cfg.RateLimitPerMinute != -1 {
		t.Fatalf("expected rate limiting disabled, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.DBPath != "/var/lib/heloc/runs.db" || cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("expected backend overrides, got %s / %s", cfg.DBPath, cfg.RedisAddr)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected logging level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected logging format console, got %s", cfg.Logging.Format)
	}
	if cfg.Logging.OutputFile != "/tmp/server.log" {
		t.Fatalf("expected logging outputFile /tmp/server.log, got %s", cfg.Logging.OutputFile)
	}
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server-config.yaml")
	if err := os.WriteFile(path, []byte("address: 127.0.0.1:9000\ndbPath: file.db\n"), 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	t.Setenv("HELOC_SERVER_ADDRESS", ":9999")
	t.Setenv("HELOC_SERVER_REDIS_ADDR", "redis:6379")
	t.Setenv("HELOC_SERVER_MAX_UPLOAD_SIZE", "64K")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Address != ":9999" {
		t.Fatalf("expected environment address, got %s", cfg.Address)
	}
	if cfg.DBPath != "file.db" {
		t.Fatalf("expected file value to survive, got %s", cfg.DBPath)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected environment redis address, got %s", cfg.RedisAddr)
	}
	if cfg.UploadSizeBytes() != 64000 {
		t.Fatalf("expected environment upload size, got %d", cfg.UploadSizeBytes())
	}
}

func TestLoadConfigInvalidEnvironment(t *testing.T) {
	t.Setenv("HELOC_SERVER_REDIS_DB", "not-a-number")
	if _, err := LoadConfig(""); err == nil {
		t.Fatal("expected error for invalid environment value")
	}
}

func TestLoadConfigInvalidYaml(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")

	if err := os.WriteFile(path, []byte("maxUploadSize: invalid"), 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for invalid YAML but got nil")
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{input: "", expected: constants.DefaultMaxUploadSizeBytes},
		{input: "1024", expected: 1024},
		{input: "512b", expected: 512},
		{input: "256K", expected: 256000},
		{input: "256KiB", expected: 256 * 1024},
		{input: "1m", expected: 1000000},
		{input: "3MiB", expected: 3 * 1024 * 1024},
		{input: "2G", expected: 2000000000},
		{input: "  4096   ", expected: 4096},
		{input: "abc", wantErr: true},
		{input: "10 parsecs", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Fatalf("ParseSize(%q) = %d, expected %d", tt.input, got, tt.expected)
			}
		})
	}
}
