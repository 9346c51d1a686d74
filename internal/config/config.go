package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"budgetly-be/internal/logger"
)

// Data backends
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port        string
	AppEnv      string // development or production
	DataBackend string // mongo, postgres or memory

	MongoURI    string
	MongoDB     string
	DatabaseURL string // PostgreSQL DSN
	RedisURL    string

	AnalyticsCacheTTL  time.Duration // 0 disables the analytics report cache
	AnalyticsCacheSize int           // max users held by the in-process cache

	JWTSecret string // Secret key for JWT token signing
	JWTTTL    int    // JWT token expiration time in hours

	RateLimitRPS       float64 // Rate limit for general API endpoints (requests per second)
	RateLimitBurst     int     // Burst size for rate limiting
	RateLimitAuthRPS   float64 // Rate limit for auth endpoints (stricter)
	RateLimitAuthBurst int     // Burst size for auth endpoints

	AccessLogPath string // empty disables the access log file
	LogLevel      string
}

// Load reads the environment, after merging a .env file when one exists
func Load(log *logger.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, using environment variables or defaults")
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		AppEnv:             getEnv("APP_ENV", "development"),
		DataBackend:        strings.ToLower(getEnv("DATA_BACKEND", BackendMongo)),
		MongoURI:           getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:            getEnv("MONGODB_DB", "budgetly"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		AnalyticsCacheTTL:  getEnvDuration("ANALYTICS_CACHE_TTL", 0),
		AnalyticsCacheSize: getEnvInt("ANALYTICS_CACHE_SIZE", 1000),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTTTL:             getEnvInt("JWT_TTL_HOURS", 24),
		RateLimitRPS:       getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 20),
		RateLimitAuthRPS:   getEnvFloat("RATE_LIMIT_AUTH_RPS", 5),
		RateLimitAuthBurst: getEnvInt("RATE_LIMIT_AUTH_BURST", 10),
		AccessLogPath:      getEnv("ACCESS_LOG_PATH", "access.log"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// AnalyticsCacheEnabled reports whether analytics reports are cached
func (c *Config) AnalyticsCacheEnabled() bool {
	return c.AnalyticsCacheTTL > 0
}

// Validate checks the configuration and reports every problem at once
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendMongo:
		if c.MongoURI == "" {
			problems = append(problems, "MONGODB_URI is required when using the mongo backend")
		}
		if c.MongoDB == "" {
			problems = append(problems, "MONGODB_DB cannot be empty when using the mongo backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required when using the postgres backend")
		}
	case BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s %s]",
			c.DataBackend, BackendMongo, BackendPostgres, BackendMemory))
	}

	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.JWTTTL < 1 {
		problems = append(problems, fmt.Sprintf("invalid JWT TTL %d: must be at least 1 hour", c.JWTTTL))
	}

	if c.AnalyticsCacheTTL < 0 {
		problems = append(problems, fmt.Sprintf("invalid analytics cache TTL %v: must not be negative", c.AnalyticsCacheTTL))
	}
	if c.AnalyticsCacheEnabled() && c.AnalyticsCacheSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid analytics cache size %d: must be at least 1", c.AnalyticsCacheSize))
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		problems = append(problems, "RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.RateLimitAuthRPS <= 0 || c.RateLimitAuthBurst < 1 {
		problems = append(problems, "RATE_LIMIT_AUTH_RPS and RATE_LIMIT_AUTH_BURST must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("5m") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
