// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers selectable through STORAGE_DRIVER
const (
	StorageDriverFile     = "file"
	StorageDriverPostgres = "postgres"
	StorageDriverRedis    = "redis"
	StorageDriverMemory   = "memory"
)

// Lock modes selectable through COUNTER_LOCK_MODE
const (
	LockModeNone  = "none"
	LockModeLocal = "local"
	LockModeRedis = "redis"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Security   SecurityConfig   `json:"security"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Cache      CacheConfig      `json:"cache"`
	Storage    StorageConfig    `json:"storage"`
	Counter    CounterConfig    `json:"counter"`
	Deployment DeploymentConfig `json:"deployment"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

// DSN renders the libpq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type ServerConfig struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	ReadTimeout       time.Duration `json:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"`
	RequestTimeout    time.Duration `json:"request_timeout"`
	BodyLimit         int           `json:"body_limit"`
	TrustedProxies    []string      `json:"trusted_proxies"`
	ProxyHeader       string        `json:"proxy_header"`
	EnableCompression bool          `json:"enable_compression"`
}

type SecurityConfig struct {
	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	CORSMaxAge       int      `json:"cors_max_age"`

	// Rate Limiting
	GlobalRateLimit int           `json:"global_rate_limit"` // requests per window
	RateLimitWindow time.Duration `json:"rate_limit_window"`

	// Content Security
	CSPPolicy      string `json:"csp_policy"`
	XFrameOptions  string `json:"x_frame_options"`
	ReferrerPolicy string `json:"referrer_policy"`
	HSTSMaxAge     int    `json:"hsts_max_age"`
}

type LoggingConfig struct {
	Level            string `json:"level"`  // debug, info, warn, error
	Format           string `json:"format"` // json, text
	Output           string `json:"output"` // stdout, file, both
	FilePath         string `json:"file_path"`
	MaxSize          int    `json:"max_size"` // MB
	MaxBackups       int    `json:"max_backups"`
	MaxAge           int    `json:"max_age"` // days
	Compress         bool   `json:"compress"`
	EnableCaller     bool   `json:"enable_caller"`
	EnableStacktrace bool   `json:"enable_stacktrace"`
	EnableAccessLog  bool   `json:"enable_access_log"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled             bool          `json:"enabled"`
	RedisURL            string        `json:"redis_url"`
	RedisDB             int           `json:"redis_db"`
	RedisPrefix         string        `json:"redis_prefix"`
	HealthCheckInterval time.Duration `json:"health_check_interval"`
}

type StorageConfig struct {
	Driver          string `json:"driver"` // file, postgres, redis, memory
	CounterFilePath string `json:"counter_file_path"`
	AutoMigrate     bool   `json:"auto_migrate"`
}

type CounterConfig struct {
	LockMode  string        `json:"lock_mode"` // none, local, redis
	LockTTL   time.Duration `json:"lock_ttl"`
	LockWait  time.Duration `json:"lock_wait"`
	MaxAmount int64         `json:"max_amount"` // 0 means unbounded
}

type DeploymentConfig struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
	BuildTime   string `json:"build_time"`
}

// NeedsRedis reports whether the selected storage or lock mode talks to redis
func (c *ProductionConfig) NeedsRedis() bool {
	return c.Storage.Driver == StorageDriverRedis || c.Counter.LockMode == LockModeRedis || c.Cache.Enabled
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// Load environment variables from .env file
	if err := loadEnvFile(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "counter"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Server: ServerConfig{
			Host:              getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:              getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:       getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:      getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:       getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout:   getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RequestTimeout:    getEnvDuration("SERVER_REQUEST_TIMEOUT", 10*time.Second),
			BodyLimit:         getEnvInt("SERVER_BODY_LIMIT", 64*1024), // 64KB
			TrustedProxies:    getEnvStringSlice("SERVER_TRUSTED_PROXIES", []string{"127.0.0.1"}),
			ProxyHeader:       getEnvString("SERVER_PROXY_HEADER", "X-Real-IP"),
			EnableCompression: getEnvBool("SERVER_ENABLE_COMPRESSION", true),
		},
		Security: SecurityConfig{
			AllowedOrigins:   getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods:   getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders:   getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
			CORSMaxAge:       getEnvInt("CORS_MAX_AGE", 86400),
			GlobalRateLimit:  getEnvInt("GLOBAL_RATE_LIMIT", 2000),
			RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
			CSPPolicy:        getEnvString("CSP_POLICY", "default-src 'self'"),
			XFrameOptions:    getEnvString("X_FRAME_OPTIONS", "DENY"),
			ReferrerPolicy:   getEnvString("REFERRER_POLICY", "strict-origin-when-cross-origin"),
			HSTSMaxAge:       getEnvInt("HSTS_MAX_AGE", 31536000), // 1 year
		},
		Logging: LoggingConfig{
			Level:            getEnvString("LOG_LEVEL", "info"),
			Format:           getEnvString("LOG_FORMAT", "json"),
			Output:           getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:         getEnvString("LOG_FILE_PATH", "/var/log/counter/app.log"),
			MaxSize:          getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups:       getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:           getEnvInt("LOG_MAX_AGE", 30),
			Compress:         getEnvBool("LOG_COMPRESS", true),
			EnableCaller:     getEnvBool("LOG_ENABLE_CALLER", true),
			EnableStacktrace: getEnvBool("LOG_ENABLE_STACKTRACE", false),
			EnableAccessLog:  getEnvBool("LOG_ENABLE_ACCESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:             getEnvBool("CACHE_ENABLED", false),
			RedisURL:            getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:             getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix:         getEnvString("CACHE_REDIS_PREFIX", "counter:"),
			HealthCheckInterval: getEnvDuration("CACHE_HEALTH_CHECK_INTERVAL", 30*time.Second),
		},
		Storage: StorageConfig{
			Driver:          strings.ToLower(getEnvString("STORAGE_DRIVER", StorageDriverFile)),
			CounterFilePath: getEnvString("COUNTER_FILE_PATH", "count.txt"),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Counter: CounterConfig{
			LockMode:  strings.ToLower(getEnvString("COUNTER_LOCK_MODE", LockModeNone)),
			LockTTL:   getEnvDuration("COUNTER_LOCK_TTL", 5*time.Second),
			LockWait:  getEnvDuration("COUNTER_LOCK_WAIT", 2*time.Second),
			MaxAmount: getEnvInt64("COUNTER_MAX_AMOUNT", 0),
		},
		Deployment: DeploymentConfig{
			Environment: getEnvString("APP_ENV", "production"),
			Version:     getEnvString("VERSION", "1.0.0"),
			CommitHash:  getEnvString("COMMIT_HASH", "unknown"),
			BuildTime:   getEnvString("BUILD_TIME", "unknown"),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile loads environment variables from path if it exists. Variables
// already present in the environment win.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errs []string

	// Validate storage selection
	drivers := []string{StorageDriverFile, StorageDriverPostgres, StorageDriverRedis, StorageDriverMemory}
	if !slices.Contains(drivers, cfg.Storage.Driver) {
		errs = append(errs, fmt.Sprintf("STORAGE_DRIVER must be one of: %v", drivers))
	}
	if cfg.Storage.Driver == StorageDriverFile && cfg.Storage.CounterFilePath == "" {
		errs = append(errs, "COUNTER_FILE_PATH is required for the file storage driver")
	}

	// Database credentials only matter when postgres backs the counters
	if cfg.Storage.Driver == StorageDriverPostgres {
		if cfg.Database.Host == "" {
			errs = append(errs, "DB_HOST is required")
		}
		if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
			errs = append(errs, "DB_PORT must be between 1 and 65535")
		}
		if cfg.Database.Name == "" {
			errs = append(errs, "DB_NAME is required")
		}
		if cfg.Database.User == "" {
			errs = append(errs, "DB_USER is required")
		}
		if cfg.Database.Password == "" {
			errs = append(errs, "DB_PASSWORD is required")
		}
	}

	// Validate counter configuration
	modes := []string{LockModeNone, LockModeLocal, LockModeRedis}
	if !slices.Contains(modes, cfg.Counter.LockMode) {
		errs = append(errs, fmt.Sprintf("COUNTER_LOCK_MODE must be one of: %v", modes))
	}
	if cfg.Counter.LockMode == LockModeRedis {
		if cfg.Counter.LockTTL <= 0 {
			errs = append(errs, "COUNTER_LOCK_TTL must be positive")
		}
		if cfg.Counter.LockWait < 0 {
			errs = append(errs, "COUNTER_LOCK_WAIT must not be negative")
		}
	}
	if cfg.Counter.MaxAmount < 0 {
		errs = append(errs, "COUNTER_MAX_AMOUNT must not be negative")
	}

	if cfg.NeedsRedis() && cfg.Cache.RedisURL == "" {
		errs = append(errs, "CACHE_REDIS_URL is required for redis storage, redis locking or caching")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errs = append(errs, "SERVER_WRITE_TIMEOUT must be positive")
	}
	if cfg.Server.IdleTimeout <= 0 {
		errs = append(errs, "SERVER_IDLE_TIMEOUT must be positive")
	}
	if cfg.Server.RequestTimeout <= 0 {
		errs = append(errs, "SERVER_REQUEST_TIMEOUT must be positive")
	}

	// Validate logging configuration
	if cfg.Logging.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		if !slices.Contains(validLevels, cfg.Logging.Level) {
			errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
		}
	}
	outputs := []string{"stdout", "file", "both"}
	if !slices.Contains(outputs, cfg.Logging.Output) {
		errs = append(errs, fmt.Sprintf("LOG_OUTPUT must be one of: %v", outputs))
	}
	if cfg.Logging.Output != "stdout" && cfg.Logging.FilePath == "" {
		errs = append(errs, "LOG_FILE_PATH is required when logging to a file")
	}

	// Return validation errors if any
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
