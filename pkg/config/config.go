package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/grinplace/pkg/observability"
	"github.com/platinummonkey/grinplace/pkg/storage"
)

const (
	// EnvProduction enables production-only behaviour such as hiding
	// internal error messages.
	EnvProduction  = "production"
	EnvDevelopment = "development"

	// DefaultTokenTTL matches the seven day session length clients expect.
	DefaultTokenTTL = 7 * 24 * time.Hour

	// DefaultAdminRole is the top administrative role protected against
	// deletion of its last holder.
	DefaultAdminRole = "owner"

	productionOrigin  = "https://grinplace.com"
	developmentOrigin = "http://localhost:8080"
)

// Config holds all application configuration. It is built once by
// LoadConfig and shared read-only.
type Config struct {
	Server        ServerConfig
	Auth          AuthConfig
	Storage       storage.Config
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	MaxUploadBytes  int64
	MaxBodyBytes    int64
	// TrustProxyHeaders honours X-Forwarded-For when keying rate limits.
	TrustProxyHeaders bool
}

// AuthConfig holds credential and token settings
type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	BcryptCost    int
	HashWorkers   int
	AdminRoleName string

	// LoginRateLimit is the number of login attempts allowed per client
	// address per LoginRateWindow. Zero disables limiting.
	LoginRateLimit  int
	LoginRateWindow time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	LogJSON        bool
	MetricsEnabled bool
	StatsSchedule  string

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
	OTelSampleRatio    float64
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Auth:          loadAuthConfig(),
		Storage:       loadStorageConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	env := strings.ToLower(getEnv("GRINPLACE_ENV", getEnv("NODE_ENV", EnvDevelopment)))

	origins := splitList(getEnv("GRINPLACE_ALLOWED_ORIGINS", ""))
	if len(origins) == 0 {
		if env == EnvProduction {
			origins = []string{productionOrigin}
		} else {
			origins = []string{developmentOrigin}
		}
	}

	return ServerConfig{
		Host:            getEnv("GRINPLACE_HOST", "0.0.0.0"),
		Port:            getEnv("GRINPLACE_PORT", getEnv("PORT", "3000")),
		Environment:     env,
		ReadTimeout:     getEnvDuration("GRINPLACE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("GRINPLACE_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     getEnvDuration("GRINPLACE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("GRINPLACE_SHUTDOWN_TIMEOUT", 30*time.Second),
		AllowedOrigins:  origins,
		MaxUploadBytes:  getEnvInt64("GRINPLACE_MAX_UPLOAD_BYTES", 5<<20),
		MaxBodyBytes:    getEnvInt64("GRINPLACE_MAX_BODY_BYTES", 1<<20),

		TrustProxyHeaders: getEnvBool("GRINPLACE_TRUST_PROXY_HEADERS", false),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:       getEnv("GRINPLACE_JWT_SECRET", getEnv("JWT_SECRET", "")),
		TokenTTL:        getEnvDuration("GRINPLACE_TOKEN_TTL", DefaultTokenTTL),
		BcryptCost:      getEnvInt("GRINPLACE_BCRYPT_COST", 10),
		HashWorkers:     getEnvInt("GRINPLACE_HASH_WORKERS", runtime.NumCPU()),
		AdminRoleName:   strings.ToLower(getEnv("GRINPLACE_ADMIN_ROLE", DefaultAdminRole)),
		LoginRateLimit:  getEnvInt("GRINPLACE_LOGIN_RATE_LIMIT", 10),
		LoginRateWindow: getEnvDuration("GRINPLACE_LOGIN_RATE_WINDOW", time.Minute),
	}
}

func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	cfg.Driver = getEnv("GRINPLACE_DB_DRIVER", cfg.Driver)
	if pgURL := getEnv("GRINPLACE_POSTGRES_URL", getEnv("DATABASE_URL", "")); pgURL != "" {
		cfg.PostgresURL = pgURL
		if os.Getenv("GRINPLACE_DB_DRIVER") == "" {
			cfg.Driver = "postgres"
		}
	}
	if maxConns := getEnvInt("GRINPLACE_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("GRINPLACE_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	cfg.PostgresTimeout = getEnvDuration("GRINPLACE_POSTGRES_TIMEOUT", cfg.PostgresTimeout)
	cfg.PostgresMaxLifetime = getEnvDuration("GRINPLACE_POSTGRES_MAX_LIFETIME", cfg.PostgresMaxLifetime)

	cfg.ObjectBackend = getEnv("GRINPLACE_OBJECT_BACKEND", cfg.ObjectBackend)
	cfg.FilesystemRoot = getEnv("GRINPLACE_FILESYSTEM_ROOT", cfg.FilesystemRoot)
	cfg.FilesystemBaseURL = getEnv("GRINPLACE_FILESYSTEM_BASE_URL", cfg.FilesystemBaseURL)

	if s3Bucket := getEnv("GRINPLACE_S3_BUCKET", getEnv("AWS_BUCKET_NAME", "")); s3Bucket != "" {
		cfg.S3Bucket = s3Bucket
		if os.Getenv("GRINPLACE_OBJECT_BACKEND") == "" {
			cfg.ObjectBackend = "s3"
		}
	}
	cfg.S3Endpoint = getEnv("GRINPLACE_S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3Region = getEnv("GRINPLACE_S3_REGION", getEnv("AWS_REGION", cfg.S3Region))
	cfg.S3AccessKey = getEnv("GRINPLACE_S3_ACCESS_KEY", getEnv("AWS_ACCESS_KEY_ID", ""))
	cfg.S3SecretKey = getEnv("GRINPLACE_S3_SECRET_KEY", getEnv("AWS_SECRET_ACCESS_KEY", ""))
	cfg.S3UsePathStyle = getEnvBool("GRINPLACE_S3_USE_PATH_STYLE", cfg.S3UsePathStyle)
	cfg.S3PublicBaseURL = getEnv("GRINPLACE_S3_PUBLIC_BASE_URL", cfg.S3PublicBaseURL)
	cfg.S3CreateBucket = getEnvBool("GRINPLACE_S3_CREATE_BUCKET", cfg.S3CreateBucket)

	cfg.RedisURL = getEnv("GRINPLACE_REDIS_URL", getEnv("REDIS_URL", ""))
	cfg.RedisPassword = getEnv("GRINPLACE_REDIS_PASSWORD", "")
	if redisDB := getEnvInt("GRINPLACE_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisPoolSize := getEnvInt("GRINPLACE_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}

	return cfg
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("GRINPLACE_LOG_LEVEL", "info")),
		LogJSON:            getEnvBool("GRINPLACE_LOG_JSON", true),
		MetricsEnabled:     getEnvBool("GRINPLACE_METRICS_ENABLED", true),
		StatsSchedule:      getEnv("GRINPLACE_STATS_SCHEDULE", observability.DefaultStatsSchedule),
		OTelEnabled:        getEnvBool("GRINPLACE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("GRINPLACE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("GRINPLACE_OTEL_SERVICE_NAME", "grinplace-api"),
		OTelServiceVersion: getEnv("GRINPLACE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("GRINPLACE_OTEL_INSECURE", true),
		OTelSampleRatio:    getEnvFloat("GRINPLACE_OTEL_SAMPLE_RATIO", 1),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid server port %q", c.Server.Port)
	}

	if c.Auth.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT secret is required in production")
		}
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}
	if c.Auth.HashWorkers < 1 {
		return fmt.Errorf("hash workers must be at least 1")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.Auth.AdminRoleName == "" {
		return fmt.Errorf("admin role name is required")
	}

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or memory)", c.Storage.Driver)
	}

	switch c.Storage.ObjectBackend {
	case "filesystem":
		if c.Storage.FilesystemRoot == "" {
			return fmt.Errorf("filesystem root is required for filesystem object storage")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 object storage")
		}
	default:
		return fmt.Errorf("invalid object backend: %s (must be s3 or filesystem)", c.Storage.ObjectBackend)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// DevelopmentSecret signs tokens when no secret is configured outside
// production. Tokens signed with it do not survive a restart.
func (c *Config) DevelopmentSecret() bool {
	return c.Auth.JWTSecret == ""
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
