package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config captures the runtime configuration for the Filmorate service.
type Config struct {
	AppPort      int
	LogLevel     string
	Storage      string
	DatabaseURL  string
	MigrationDir string
	SeedDir      string
	HTTP         HTTPConfig
	RateLimit    RateLimitConfig
	CORSOrigins  []string
	// TrustProxyHeaders makes X-Forwarded-For and X-Real-IP decide the client
	// address. Enable it only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
	Snapshot          SnapshotConfig
}

// HTTPConfig controls server timeouts.
type HTTPConfig struct {
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	ShutdownTimeout   time.Duration
}

// RateLimitConfig bounds requests per client IP. Requests == 0 disables limiting.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Burst    int
}

// Enabled reports whether requests should be rate limited.
func (c RateLimitConfig) Enabled() bool {
	return c.Requests > 0
}

// SnapshotConfig locates the object that persists the in-memory store between runs.
type SnapshotConfig struct {
	Bucket   string
	Key      string
	Endpoint string
	Region   string
}

// Enabled reports whether snapshots are configured.
func (c SnapshotConfig) Enabled() bool {
	return c.Bucket != ""
}

// Load reads configuration from environment variables. Values from a .env file
// (FILMORATE_ENV_FILE, default ".env") fill in variables that are not already
// set; a missing file is ignored.
func Load() (Config, error) {
	envFile := getString("FILMORATE_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Config{
		AppPort:      getInt("FILMORATE_PORT", 8080),
		LogLevel:     getString("FILMORATE_LOG_LEVEL", "info"),
		Storage:      strings.ToLower(getString("FILMORATE_STORAGE", StorageMemory)),
		DatabaseURL:  getString("FILMORATE_DATABASE_URL", ""),
		MigrationDir: getString("FILMORATE_MIGRATIONS", "migrations"),
		SeedDir:      getString("FILMORATE_SEEDS", "seeds"),
		HTTP: HTTPConfig{
			ReadHeaderTimeout: getDuration("FILMORATE_READ_HEADER_TIMEOUT", 5*time.Second),
			WriteTimeout:      getDuration("FILMORATE_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout:   getDuration("FILMORATE_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		RateLimit: RateLimitConfig{
			Requests: getInt("FILMORATE_RATE_LIMIT_REQUESTS", 0),
			Window:   getDuration("FILMORATE_RATE_LIMIT_WINDOW", time.Minute),
			Burst:    getInt("FILMORATE_RATE_LIMIT_BURST", 20),
		},
		CORSOrigins:       getList("FILMORATE_CORS_ORIGINS", []string{"*"}),
		TrustProxyHeaders: getBool("FILMORATE_TRUST_PROXY_HEADERS", false),
		Snapshot: SnapshotConfig{
			Bucket:   getString("FILMORATE_SNAPSHOT_BUCKET", ""),
			Key:      getString("FILMORATE_SNAPSHOT_KEY", "filmorate/snapshot.json"),
			Endpoint: getString("FILMORATE_SNAPSHOT_ENDPOINT", ""),
			Region:   getString("FILMORATE_SNAPSHOT_REGION", "us-east-1"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("FILMORATE_DATABASE_URL is required when FILMORATE_STORAGE=postgres")
		}
	default:
		return fmt.Errorf("unknown FILMORATE_STORAGE %q (want memory or postgres)", c.Storage)
	}
	if c.AppPort <= 0 || c.AppPort > 65535 {
		return fmt.Errorf("invalid FILMORATE_PORT %d", c.AppPort)
	}
	if c.RateLimit.Requests < 0 {
		return fmt.Errorf("invalid FILMORATE_RATE_LIMIT_REQUESTS %d", c.RateLimit.Requests)
	}
	return nil
}

// RequireDatabase fails when no database URL is configured.
func (c Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("FILMORATE_DATABASE_URL is not set")
	}
	return nil
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
