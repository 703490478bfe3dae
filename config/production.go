// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Security   SecurityConfig   `json:"security"`
	JWT        JWTConfig        `json:"jwt"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Cache      CacheConfig      `json:"cache"`
	Geo        GeoConfig        `json:"geo"`
	Routing    RoutingConfig    `json:"routing"`
	Events     EventsConfig     `json:"events"`
	Deployment DeploymentConfig `json:"deployment"`
}

type DatabaseConfig struct {
	Host            string        `env:"DB_HOST" envDefault:"localhost" json:"host"`
	Port            int           `env:"DB_PORT" envDefault:"5432" json:"port"`
	Name            string        `env:"DB_NAME" envDefault:"rotalink" json:"name"`
	User            string        `env:"DB_USER" envDefault:"rotalink" json:"user"`
	Password        string        `env:"DB_PASSWORD" json:"-"`
	SSLMode         string        `env:"DB_SSL_MODE" envDefault:"disable" json:"ssl_mode"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"50" json:"max_open_conns"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"5m" json:"conn_max_idle_time"`
	SlowQueryTime   time.Duration `env:"DB_SLOW_QUERY_TIME" envDefault:"200ms" json:"slow_query_time"`
}

// DSN renders the postgres connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type ServerConfig struct {
	Host              string        `env:"SERVER_HOST" envDefault:"0.0.0.0" json:"host"`
	Port              int           `env:"SERVER_PORT" envDefault:"8080" json:"port"`
	ReadTimeout       time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s" json:"read_timeout"`
	WriteTimeout      time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10s" json:"write_timeout"`
	IdleTimeout       time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s" json:"idle_timeout"`
	ShutdownTimeout   time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"15s" json:"shutdown_timeout"`
	RequestTimeout    time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"15s" json:"request_timeout"`
	BodyLimit         int           `env:"SERVER_BODY_LIMIT" envDefault:"1048576" json:"body_limit"`
	TrustedProxies    []string      `env:"SERVER_TRUSTED_PROXIES" json:"trusted_proxies"`
	ProxyHeader       string        `env:"SERVER_PROXY_HEADER" json:"proxy_header"`
	EnableCompression bool          `env:"SERVER_ENABLE_COMPRESSION" envDefault:"true" json:"enable_compression"`
}

// Address returns host:port for the listener
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type SecurityConfig struct {
	AllowedOrigins   []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" json:"allowed_origins"`
	AllowedMethods   []string      `env:"CORS_ALLOWED_METHODS" envDefault:"GET,POST,PATCH,DELETE,OPTIONS" json:"allowed_methods"`
	AllowedHeaders   []string      `env:"CORS_ALLOWED_HEADERS" envDefault:"Origin,Content-Type,Accept,Authorization,X-Request-ID" json:"allowed_headers"`
	AllowCredentials bool          `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false" json:"allow_credentials"`
	GlobalRateLimit  int           `env:"GLOBAL_RATE_LIMIT" envDefault:"600" json:"global_rate_limit"`
	AuthRateLimit    int           `env:"AUTH_RATE_LIMIT" envDefault:"10" json:"auth_rate_limit"`
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m" json:"rate_limit_window"`
	BcryptCost       int           `env:"BCRYPT_COST" envDefault:"12" json:"bcrypt_cost"`
	PasswordMinLen   int           `env:"PASSWORD_MIN_LENGTH" envDefault:"8" json:"password_min_length"`
}

type JWTConfig struct {
	SecretKey      string        `env:"JWT_SECRET_KEY" json:"-"`
	PrivateKey     string        `env:"JWT_PRIVATE_KEY" json:"-"`
	PublicKey      string        `env:"JWT_PUBLIC_KEY" json:"-"`
	UseRSAKeys     bool          `env:"JWT_USE_RSA_KEYS" envDefault:"false" json:"use_rsa_keys"`
	AccessTokenTTL time.Duration `env:"JWT_ACCESS_TOKEN_TTL" envDefault:"24h" json:"access_token_ttl"`
	Issuer         string        `env:"JWT_ISSUER" envDefault:"rotalink" json:"issuer"`
	Audience       string        `env:"JWT_AUDIENCE" envDefault:"rotalink-admin" json:"audience"`
}

type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info" json:"level"`     // debug, info, warn, error
	Format     string `env:"LOG_FORMAT" envDefault:"json" json:"format"`   // json, console
	Output     string `env:"LOG_OUTPUT" envDefault:"stdout" json:"output"` // stdout, file, both
	FilePath   string `env:"LOG_FILE_PATH" envDefault:"logs/rotalink.log" json:"file_path"`
	MaxSize    int    `env:"LOG_MAX_SIZE" envDefault:"100" json:"max_size"` // MB
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"7" json:"max_backups"`
	MaxAge     int    `env:"LOG_MAX_AGE" envDefault:"30" json:"max_age"` // days
	Compress   bool   `env:"LOG_COMPRESS" envDefault:"true" json:"compress"`

	EnableCaller     bool `env:"LOG_ENABLE_CALLER" envDefault:"true" json:"enable_caller"`
	EnableStacktrace bool `env:"LOG_ENABLE_STACKTRACE" envDefault:"false" json:"enable_stacktrace"`
	EnableAccessLog  bool `env:"LOG_ENABLE_ACCESS_LOG" envDefault:"true" json:"enable_access_log"`
}

type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" envDefault:"true" json:"enabled"`
	Path    string `env:"METRICS_PATH" envDefault:"/metrics" json:"path"`
}

type CacheConfig struct {
	Enabled        bool          `env:"CACHE_ENABLED" envDefault:"false" json:"enabled"`
	RedisURL       string        `env:"CACHE_REDIS_URL" json:"-"`
	RedisPrefix    string        `env:"CACHE_REDIS_PREFIX" envDefault:"rotalink:" json:"redis_prefix"`
	DefaultTTL     time.Duration `env:"CACHE_DEFAULT_TTL" envDefault:"1m" json:"default_ttl"`
	HealthInterval time.Duration `env:"CACHE_HEALTH_INTERVAL" envDefault:"30s" json:"health_interval"`
}

// GeoConfig configures the visitor geolocation lookup
type GeoConfig struct {
	Enabled  bool          `env:"GEO_ENABLED" envDefault:"true" json:"enabled"`
	BaseURL  string        `env:"GEO_BASE_URL" envDefault:"http://ip-api.com/json/" json:"base_url"`
	Timeout  time.Duration `env:"GEO_TIMEOUT" envDefault:"800ms" json:"timeout"`
	CacheTTL time.Duration `env:"GEO_CACHE_TTL" envDefault:"24h" json:"cache_ttl"`
}

// RoutingConfig bounds the routing unit of work
type RoutingConfig struct {
	TxTimeout         time.Duration `env:"ROUTING_TX_TIMEOUT" envDefault:"5s" json:"tx_timeout"`
	DashboardCacheTTL time.Duration `env:"DASHBOARD_CACHE_TTL" envDefault:"1m" json:"dashboard_cache_ttl"`
}

// EventsConfig configures publication of visit events to RabbitMQ
type EventsConfig struct {
	Enabled        bool          `env:"EVENTS_ENABLED" envDefault:"false" json:"enabled"`
	AMQPURL        string        `env:"EVENTS_AMQP_URL" json:"-"`
	Queue          string        `env:"EVENTS_QUEUE" envDefault:"rotalink.visits" json:"queue"`
	PublishTimeout time.Duration `env:"EVENTS_PUBLISH_TIMEOUT" envDefault:"2s" json:"publish_timeout"`
}

type DeploymentConfig struct {
	Environment string `env:"APP_ENV" envDefault:"production" json:"environment"`
	Version     string `env:"APP_VERSION" envDefault:"dev" json:"version"`
	CommitHash  string `env:"APP_COMMIT_HASH" json:"commit_hash"`
	BuildTime   string `env:"APP_BUILD_TIME" json:"build_time"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := &ProductionConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile loads variables from ENV_FILE (default .env) without overriding the process environment
func loadEnvFile() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errs []string

	// Validate database configuration
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

	// Validate JWT configuration
	if cfg.JWT.UseRSAKeys {
		if cfg.JWT.PrivateKey == "" || cfg.JWT.PublicKey == "" {
			errs = append(errs, "JWT_PRIVATE_KEY and JWT_PUBLIC_KEY are required when JWT_USE_RSA_KEYS is set")
		}
	} else if len(cfg.JWT.SecretKey) < 32 {
		errs = append(errs, "JWT_SECRET_KEY must be at least 32 characters long")
	}
	if cfg.JWT.AccessTokenTTL <= 0 {
		errs = append(errs, "JWT_ACCESS_TOKEN_TTL must be positive")
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

	// Validate security configuration
	if cfg.Security.BcryptCost < 10 || cfg.Security.BcryptCost > 14 {
		errs = append(errs, "BCRYPT_COST must be between 10 and 14")
	}
	if cfg.Security.PasswordMinLen < 6 {
		errs = append(errs, "PASSWORD_MIN_LENGTH must be at least 6")
	}

	// Validate logging configuration
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, cfg.Logging.Level) {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
	}
	validOutputs := []string{"stdout", "file", "both"}
	if !slices.Contains(validOutputs, cfg.Logging.Output) {
		errs = append(errs, fmt.Sprintf("LOG_OUTPUT must be one of: %v", validOutputs))
	}
	if cfg.Logging.Output != "stdout" && cfg.Logging.FilePath == "" {
		errs = append(errs, "LOG_FILE_PATH is required when logging to a file")
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		errs = append(errs, "CACHE_REDIS_URL is required when cache is enabled")
	}

	// Validate geolocation configuration
	if cfg.Geo.Enabled {
		if cfg.Geo.BaseURL == "" {
			errs = append(errs, "GEO_BASE_URL is required when geolocation is enabled")
		}
		if cfg.Geo.Timeout <= 0 || cfg.Geo.Timeout > time.Second {
			errs = append(errs, "GEO_TIMEOUT must be positive and at most 1s")
		}
	}

	// Validate routing configuration
	if cfg.Routing.TxTimeout <= 0 {
		errs = append(errs, "ROUTING_TX_TIMEOUT must be positive")
	}

	// Validate events configuration if enabled
	if cfg.Events.Enabled {
		if cfg.Events.AMQPURL == "" {
			errs = append(errs, "EVENTS_AMQP_URL is required when events are enabled")
		}
		if cfg.Events.Queue == "" {
			errs = append(errs, "EVENTS_QUEUE is required when events are enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
