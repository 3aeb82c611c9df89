// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"SERVER_TIMEOUT_SECONDS"`

	// Database Configuration
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// JWT Configuration
	JWTSecretKey          string        `mapstructure:"JWT_SECRET_KEY"`
	JWTAccessTokenExpiry  time.Duration `mapstructure:"JWT_ACCESS_TOKEN_EXPIRY_MINUTES"`
	JWTRefreshTokenExpiry time.Duration `mapstructure:"JWT_REFRESH_TOKEN_EXPIRY_DAYS"`
	OAuthStateTokenExpiry time.Duration `mapstructure:"OAUTH_STATE_TOKEN_EXPIRY_MINUTES"`
	CookieSecure          bool          `mapstructure:"COOKIE_SECURE"`
	CookieDomain          string        `mapstructure:"COOKIE_DOMAIN"`

	// OAuth Provider Configuration
	OAuthRedirectBase  string `mapstructure:"OAUTH_REDIRECT_BASE"`
	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	LineClientID       string `mapstructure:"LINE_CLIENT_ID"`
	LineClientSecret   string `mapstructure:"LINE_CLIENT_SECRET"`

	// Cron Jobs
	AccountPurgeJobSchedule  string `mapstructure:"ACCOUNT_PURGE_JOB_SCHEDULE"`
	AccountPurgeRetentionDay int    `mapstructure:"ACCOUNT_PURGE_RETENTION_DAYS"`

	// Elasticsearch Configuration (optional; empty disables product search indexing)
	ElasticsearchURL string `mapstructure:"ELASTICSEARCH_URL"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()

	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "taipei_market_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("JWT_ACCESS_TOKEN_EXPIRY_MINUTES", 60)
	v.SetDefault("JWT_REFRESH_TOKEN_EXPIRY_DAYS", 7)
	v.SetDefault("OAUTH_STATE_TOKEN_EXPIRY_MINUTES", 10)
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("COOKIE_DOMAIN", "")

	v.SetDefault("OAUTH_REDIRECT_BASE", "http://localhost:8080/api/v1/auth")
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("LINE_CLIENT_ID", "")
	v.SetDefault("LINE_CLIENT_SECRET", "")

	v.SetDefault("ACCOUNT_PURGE_JOB_SCHEDULE", "@daily")
	v.SetDefault("ACCOUNT_PURGE_RETENTION_DAYS", 30)

	v.SetDefault("ELASTICSEARCH_URL", "")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Convert duration fields expressed as plain integers.
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.JWTAccessTokenExpiry = time.Duration(v.GetInt("JWT_ACCESS_TOKEN_EXPIRY_MINUTES")) * time.Minute
	cfg.JWTRefreshTokenExpiry = time.Duration(v.GetInt("JWT_REFRESH_TOKEN_EXPIRY_DAYS")) * 24 * time.Hour
	cfg.OAuthStateTokenExpiry = time.Duration(v.GetInt("OAUTH_STATE_TOKEN_EXPIRY_MINUTES")) * time.Minute

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate catches configuration errors at startup instead of mid-request.
func (cfg *Config) validate() error {
	if strings.TrimSpace(cfg.JWTSecretKey) == "" {
		return fmt.Errorf("FATAL: JWT_SECRET_KEY is not set")
	}
	if len(cfg.JWTSecretKey) < 32 {
		return fmt.Errorf("FATAL: JWT_SECRET_KEY must be at least 32 bytes (got %d)", len(cfg.JWTSecretKey))
	}
	// A provider configured halfway is a deployment mistake, not a disabled provider.
	if (cfg.GoogleClientID == "") != (cfg.GoogleClientSecret == "") {
		return fmt.Errorf("FATAL: GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together")
	}
	if (cfg.LineClientID == "") != (cfg.LineClientSecret == "") {
		return fmt.Errorf("FATAL: LINE_CLIENT_ID and LINE_CLIENT_SECRET must be set together")
	}
	return nil
}

// GoogleConfigured reports whether Google OAuth credentials are present.
func (cfg *Config) GoogleConfigured() bool {
	return cfg.GoogleClientID != "" && cfg.GoogleClientSecret != ""
}

// LineConfigured reports whether LINE OAuth credentials are present.
func (cfg *Config) LineConfigured() bool {
	return cfg.LineClientID != "" && cfg.LineClientSecret != ""
}
