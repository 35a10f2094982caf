package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	Port        string
	Environment string

	// Security configuration
	AllowedOrigins  string
	TrustedProxies  string
	EnableRateLimit bool
	MaxRequestSize  int64

	// Optional administrator created at startup
	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	// Merit workflow bootstrap values. The stored settings row overrides
	// these once the service is up.
	AllowScoreModificationAfterValidation bool
	SubmissionLockTTL                     time.Duration

	// Scheduler configuration
	SchedulerEnabled       bool
	RankingRefreshSpec     string
	ValidationReminderSpec string
	SchedulerConcurrency   int
}

// New creates a new configuration instance from environment variables
func New() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		// Security configuration
		AllowedOrigins:  getEnv("ALLOWED_ORIGINS", ""),
		TrustedProxies:  getEnv("TRUSTED_PROXIES", ""),
		EnableRateLimit: getEnv("ENABLE_RATE_LIMIT", "true") == "true",
		MaxRequestSize:  getEnvAsInt64("MAX_REQUEST_SIZE", 10*1024*1024), // 10MB default

		BootstrapAdminEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),

		AllowScoreModificationAfterValidation: getEnv("ALLOW_SCORE_MODIFICATION_AFTER_VALIDATION", "false") == "true",
		SubmissionLockTTL:                     time.Duration(getEnvAsInt("SUBMISSION_LOCK_TTL_SECONDS", 30)) * time.Second,

		SchedulerEnabled:       getEnv("SCHEDULER_ENABLED", "true") == "true",
		RankingRefreshSpec:     getEnv("SCHEDULER_RANKING_REFRESH_SPEC", "0 0 */6 * * *"),
		ValidationReminderSpec: getEnv("SCHEDULER_VALIDATION_REMINDER_SPEC", "0 0 8 * * *"),
		SchedulerConcurrency:   getEnvAsInt("SCHEDULER_CONCURRENCY", 4),
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HasRedis returns true if a redis connection is configured
func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}

// MissingRequired lists required variables that are not set.
func (c *Config) MissingRequired() []string {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	return missing
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetAllowedOrigins returns a slice of allowed CORS origins
func (c *Config) GetAllowedOrigins() []string {
	if c.AllowedOrigins == "" {
		return []string{}
	}
	return strings.Split(c.AllowedOrigins, ",")
}

// GetTrustedProxies returns a slice of trusted proxy IPs
func (c *Config) GetTrustedProxies() []string {
	if c.TrustedProxies == "" {
		return []string{} // No trusted proxies by default
	}
	return strings.Split(c.TrustedProxies, ",")
}
