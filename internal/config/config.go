package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Gateway  GatewayConfig
	Secrets  SecretsConfig
	Logger   LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	Host        string
	MetricsPort int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// RedisConfig holds the idempotency store configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GatewayConfig holds SEP payment gateway configuration
type GatewayConfig struct {
	BaseURL     string // Base URL for SEP IPG (e.g., https://sep.shaparak.ir)
	TerminalID  string // Merchant terminal number registered with SEP
	CallbackURL string // Public URL SEP redirects the payer to after payment
	CellNumber  string // Optional payer cell number forwarded on token requests
	Timeout     int    // Request timeout in seconds (default: 30)

	VerifyMaxAttempts int // Attempts per verify/reverse call (default: 3)
	VerifyRetryDelay  int // Delay between attempts in seconds (default: 5)
}

// SecretsConfig selects where the terminal credential is read from
type SecretsConfig struct {
	Backend    string // "env" or "aws"
	AWSRegion  string
	AWSProfile string
	SecretName string // secret holding the terminal ID when Backend is "aws"
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort: getEnvAsInt("METRICS_PORT", 9090),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "payment_service"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Gateway: GatewayConfig{
			BaseURL:           getEnv("SEP_BASE_URL", "https://sep.shaparak.ir"),
			TerminalID:        getEnv("SEP_TERMINAL_ID", ""),
			CallbackURL:       getEnv("SEP_CALLBACK_URL", ""),
			CellNumber:        getEnv("SEP_CELL_NUMBER", ""),
			Timeout:           getEnvAsInt("SEP_TIMEOUT", 30),
			VerifyMaxAttempts: getEnvAsInt("SEP_VERIFY_MAX_ATTEMPTS", 3),
			VerifyRetryDelay:  getEnvAsInt("SEP_VERIFY_RETRY_DELAY", 5),
		},
		Secrets: SecretsConfig{
			Backend:    getEnv("SECRETS_BACKEND", "env"),
			AWSRegion:  getEnv("AWS_REGION", "eu-central-1"),
			AWSProfile: getEnv("AWS_PROFILE", ""),
			SecretName: getEnv("SEP_TERMINAL_SECRET_NAME", ""),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	// Validate required fields
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	if cfg.Gateway.CallbackURL == "" {
		return nil, fmt.Errorf("SEP_CALLBACK_URL is required")
	}
	switch cfg.Secrets.Backend {
	case "env":
		if cfg.Gateway.TerminalID == "" {
			return nil, fmt.Errorf("SEP_TERMINAL_ID is required when SECRETS_BACKEND is env")
		}
	case "aws":
		if cfg.Secrets.SecretName == "" {
			return nil, fmt.Errorf("SEP_TERMINAL_SECRET_NAME is required when SECRETS_BACKEND is aws")
		}
	default:
		return nil, fmt.Errorf("unsupported SECRETS_BACKEND: %s", cfg.Secrets.Backend)
	}

	return cfg, nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RequestTimeout returns the gateway timeout as a duration
func (c *GatewayConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// RetryDelay returns the verify/reverse retry delay as a duration
func (c *GatewayConfig) RetryDelay() time.Duration {
	return time.Duration(c.VerifyRetryDelay) * time.Second
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
