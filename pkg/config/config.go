package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the shared library configuration
type Config struct {
	Slack    SlackConfig    `json:"slack"`
	Database DatabaseConfig `json:"database"`
	Logging  LoggingConfig  `json:"logging"`
	Retry    RetryConfig    `json:"retry"`
}

// SlackConfig contains Slack notification configuration
type SlackConfig struct {
	Token          string `json:"token"`
	ProjectName    string `json:"project_name"`
	DefaultChannel string `json:"default_channel"`
	InfoChannel    string `json:"info_channel"`
	ErrorChannel   string `json:"error_channel"`
	IconEmoji      string `json:"icon_emoji"`
	LogDir         string `json:"log_dir"`
}

// DatabaseConfig contains database connection configuration
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
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Output string `json:"output"`
}

// RetryConfig contains default retry executor configuration
type RetryConfig struct {
	Retries      int           `json:"retries"`
	Timeout      time.Duration `json:"timeout"`
	InitialDelay time.Duration `json:"initial_delay"`
	Backoff      float64       `json:"backoff"`
}

// Load loads configuration from environment variables with sensible defaults.
// A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	// Missing .env is fine; explicit environment always wins.
	_ = godotenv.Load()

	config := &Config{
		Slack: SlackConfig{
			Token:          getEnvString("SLACK_TOKEN", ""),
			ProjectName:    getEnvString("SLACK_PROJECT_NAME", ""),
			DefaultChannel: getEnvString("SLACK_DEFAULT_CHANNEL", ""),
			InfoChannel:    getEnvString("SLACK_INFO_CHANNEL", ""),
			ErrorChannel:   getEnvString("SLACK_ERROR_CHANNEL", ""),
			IconEmoji:      getEnvString("SLACK_LOGGER_EMOJI", ""),
			LogDir:         getEnvString("SLACK_LOG_DIR", "logs"),
		},
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", ""),
			User:            getEnvString("DB_USER", ""),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
			Output: getEnvString("LOG_OUTPUT", "stdout"),
		},
		Retry: RetryConfig{
			Retries:      getEnvInt("RETRY_ATTEMPTS", 3),
			Timeout:      getEnvDuration("RETRY_TIMEOUT", 60*time.Second),
			InitialDelay: getEnvDuration("RETRY_INITIAL_DELAY", 10*time.Second),
			Backoff:      getEnvFloat("RETRY_BACKOFF", 2.0),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Retry.Retries < 1 {
		return fmt.Errorf("retry attempts must be at least 1")
	}

	if c.Retry.Backoff < 1 {
		return fmt.Errorf("retry backoff multiplier must be at least 1")
	}

	if c.Retry.Timeout <= 0 {
		return fmt.Errorf("retry timeout must be positive")
	}

	return nil
}

// DatabaseURL returns the database connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
