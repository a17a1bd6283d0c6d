package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the CityBoard listings backend.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Storage    StorageConfig
	Upload     UploadConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Geo        GeoConfig
	Ads        AdsConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ClickHouseConfig configures the ad event store connection.
type ClickHouseConfig struct {
	Enabled  bool
	Addr     string
	Database string
	User     string
	Password string
}

// StorageConfig configures the object store for listing and ad images.
type StorageConfig struct {
	Bucket          string
	PublicBaseURL   string
	CredentialsFile string
}

// UploadConfig bounds user image uploads.
type UploadConfig struct {
	MaxImages    int
	MaxImageSize int64
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled    bool
	ServeRPS   float64
	ServeBurst int
	MgmtRPS    float64
	MgmtBurst  int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// GeoConfig configures viewer geolocation from client IPs.
type GeoConfig struct {
	Enabled      bool
	DatabasePath string
	CacheSize    int
	CacheTTL     time.Duration
}

// AdsConfig tunes the ad serving path.
type AdsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("CITYBOARD_HTTP_ADDR", ":8080"),
			Env:             getEnv("CITYBOARD_ENV", "development"),
			ShutdownTimeout: getDurationEnv("CITYBOARD_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("CITYBOARD_DB_HOST", "localhost"),
			Port:     getIntEnv("CITYBOARD_DB_PORT", 5432),
			User:     getEnv("CITYBOARD_DB_USER", "cityboard"),
			Password: getEnv("CITYBOARD_DB_PASSWORD", "cityboard_secret"),
			DBName:   getEnv("CITYBOARD_DB_NAME", "cityboard"),
			SSLMode:  getEnv("CITYBOARD_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("CITYBOARD_DB_MAX_CONNS", 25),
			MinConns: getIntEnv("CITYBOARD_DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("CITYBOARD_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("CITYBOARD_REDIS_PASSWORD", ""),
			DB:       getIntEnv("CITYBOARD_REDIS_DB", 0),
		},
		ClickHouse: ClickHouseConfig{
			Enabled:  getBoolEnv("CITYBOARD_CLICKHOUSE_ENABLED", false),
			Addr:     getEnv("CITYBOARD_CLICKHOUSE_ADDR", "localhost:9000"),
			Database: getEnv("CITYBOARD_CLICKHOUSE_DB", "cityboard"),
			User:     getEnv("CITYBOARD_CLICKHOUSE_USER", "default"),
			Password: getEnv("CITYBOARD_CLICKHOUSE_PASSWORD", ""),
		},
		Storage: StorageConfig{
			Bucket:          getEnv("CITYBOARD_STORAGE_BUCKET", "cityboard-listing-images"),
			PublicBaseURL:   getEnv("CITYBOARD_STORAGE_PUBLIC_URL", "https://storage.googleapis.com"),
			CredentialsFile: getEnv("CITYBOARD_STORAGE_CREDENTIALS", ""),
		},
		Upload: UploadConfig{
			MaxImages:    getIntEnv("CITYBOARD_UPLOAD_MAX_IMAGES", 5),
			MaxImageSize: int64(getIntEnv("CITYBOARD_UPLOAD_MAX_IMAGE_BYTES", 5*1024*1024)),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("CITYBOARD_AUTH_ENABLED", true),
			MasterKey: getEnv("CITYBOARD_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("CITYBOARD_AUTH_SKIP_PATHS", []string{"/health", "/metrics", "/ads/serve", "/ads/click", "/categories", "/places/parse"}),
		},
		RateLimit: RateLimitConfig{
			Enabled:    getBoolEnv("CITYBOARD_RATE_LIMIT_ENABLED", true),
			ServeRPS:   getFloatEnv("CITYBOARD_RATE_LIMIT_SERVE_RPS", 500),
			ServeBurst: getIntEnv("CITYBOARD_RATE_LIMIT_SERVE_BURST", 100),
			MgmtRPS:    getFloatEnv("CITYBOARD_RATE_LIMIT_MGMT_RPS", 100),
			MgmtBurst:  getIntEnv("CITYBOARD_RATE_LIMIT_MGMT_BURST", 20),
		},
		Log: LogConfig{
			Level:  getEnv("CITYBOARD_LOG_LEVEL", "info"),
			Format: getEnv("CITYBOARD_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("CITYBOARD_METRICS_ENABLED", true),
			Path:    getEnv("CITYBOARD_METRICS_PATH", "/metrics"),
		},
		Geo: GeoConfig{
			Enabled:      getBoolEnv("CITYBOARD_GEO_ENABLED", false),
			DatabasePath: getEnv("CITYBOARD_GEO_DB_PATH", "/app/data/GeoLite2-City.mmdb"),
			CacheSize:    getIntEnv("CITYBOARD_GEO_CACHE_SIZE", 10000),
			CacheTTL:     getDurationEnv("CITYBOARD_GEO_CACHE_TTL", 1*time.Hour),
		},
		Ads: AdsConfig{
			CacheEnabled: getBoolEnv("CITYBOARD_ADS_CACHE_ENABLED", true),
			CacheTTL:     getDurationEnv("CITYBOARD_ADS_CACHE_TTL", 1*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("CITYBOARD_API_KEY_MASTER is required when auth is enabled")
	}
	if c.Upload.MaxImages <= 0 {
		return fmt.Errorf("CITYBOARD_UPLOAD_MAX_IMAGES must be > 0")
	}
	if c.Upload.MaxImageSize <= 0 {
		return fmt.Errorf("CITYBOARD_UPLOAD_MAX_IMAGE_BYTES must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
