package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Store     StoreConfig
	Mongo     MongoConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Query     QueryConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name           string
	Port           int
	Environment    string
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string
}

// StoreConfig selects the backing store
type StoreConfig struct {
	Backend string // "mongo", "postgres" or "memory"
}

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI            string
	Database       string
	MaxPoolSize    int
	MinPoolSize    int
	ConnectTimeout time.Duration
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	Schema      string
	SSLMode     string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// RateLimitConfig holds request limits, enforced only when Redis is enabled
type RateLimitConfig struct {
	GlobalLimit   int64
	ClientLimit   int64
	WindowSeconds int
}

// CacheConfig holds cache settings
type CacheConfig struct {
	Enabled  bool
	MediaTTL time.Duration
}

// QueryConfig tunes the federation engine
type QueryConfig struct {
	CollectionPrefix    string
	DefaultPageSize     int
	MaxPageSize         int
	RootReadConcurrency int
	Timeout             time.Duration
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof bool
	PprofPort   int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:           serviceName,
			Port:           getEnvInt("PORT", 8080),
			Environment:    getEnv("ENVIRONMENT", "development"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "text"),
			AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"*"}),
		},
		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", BackendMongo),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "10D"),
			MaxPoolSize:    getEnvInt("MONGODB_MAX_POOL_SIZE", 50),
			MinPoolSize:    getEnvInt("MONGODB_MIN_POOL_SIZE", 0),
			ConnectTimeout: getEnvDuration("MONGODB_CONNECT_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "chainquery"),
			User:        getEnv("POSTGRES_USER", "chainquery"),
			Password:    getEnv("POSTGRES_PASSWORD", "chainquery"),
			Schema:      getEnv("POSTGRES_SCHEMA", "public"),
			SSLMode:     getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			GlobalLimit:   int64(getEnvInt("RATE_LIMIT_GLOBAL", 1000)),
			ClientLimit:   int64(getEnvInt("RATE_LIMIT_PER_CLIENT", 120)),
			WindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
		Cache: CacheConfig{
			Enabled:  getEnvBool("CACHE_ENABLED", false),
			MediaTTL: getEnvDuration("CACHE_MEDIA_TTL", 5*time.Minute),
		},
		Query: QueryConfig{
			CollectionPrefix:    getEnv("QUERY_COLLECTION_PREFIX", "treeNodes"),
			DefaultPageSize:     getEnvInt("QUERY_DEFAULT_PAGE_SIZE", 10),
			MaxPageSize:         getEnvInt("QUERY_MAX_PAGE_SIZE", 100),
			RootReadConcurrency: getEnvInt("QUERY_ROOT_READ_CONCURRENCY", 4),
			Timeout:             getEnvDuration("QUERY_TIMEOUT", 10*time.Second),
		},
		Telemetry: TelemetryConfig{
			EnablePprof: getEnvBool("ENABLE_PPROF", false),
			PprofPort:   getEnvInt("PPROF_PORT", 6060),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	switch c.Store.Backend {
	case BackendMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongodb uri is required")
		}
		if c.Mongo.Database == "" {
			return fmt.Errorf("mongodb database is required")
		}
	case BackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			return fmt.Errorf("max_conns must be >= min_conns")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}

	if c.Query.CollectionPrefix == "" {
		return fmt.Errorf("collection prefix is required")
	}
	if c.Query.DefaultPageSize < 1 {
		return fmt.Errorf("default page size must be positive")
	}
	if c.Query.MaxPageSize < c.Query.DefaultPageSize {
		return fmt.Errorf("max page size must be >= default page size")
	}
	if c.Query.RootReadConcurrency < 1 {
		return fmt.Errorf("root read concurrency must be positive")
	}

	if c.Redis.Enabled && c.RateLimit.WindowSeconds < 1 {
		return fmt.Errorf("rate limit window must be positive")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// RedisAddr returns host:port of the Redis server
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
