package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Gateway  GatewayConfig
	Payee    PayeeConfig
	Checkout CheckoutConfig
	Logger   LoggerConfig
	Auth     AuthConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// RedisConfig holds the connection settings for the reservation cache.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// GatewayConfig holds the payment gateway collaborator settings. The
// request timeout bounds each gateway call independently of the QR
// session's business-level expiry.
type GatewayConfig struct {
	BaseURL        string
	APIToken       string
	TimeoutSeconds int
}

// PayeeConfig holds the platform operator's payment identity. All fields
// may legitimately be empty on a misconfigured deployment; the payee
// resolver reports that as a configuration error at request time rather
// than refusing to boot.
type PayeeConfig struct {
	AdminAccountID     string
	AdminMerchantName  string
	AdminMerchantCity  string
	AdminAcquiringBank string
}

// CheckoutConfig holds the pipeline's timing and currency parameters.
type CheckoutConfig struct {
	ReservationTTLMinutes int
	QRTTLMinutes          int
	MaxPollAttempts       int
	Currency              string
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "bookstore"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Gateway: GatewayConfig{
			BaseURL:        getEnv("GATEWAY_BASE_URL", ""),
			APIToken:       getEnv("GATEWAY_API_TOKEN", ""),
			TimeoutSeconds: getEnvAsInt("GATEWAY_TIMEOUT_SECONDS", 10),
		},
		Payee: PayeeConfig{
			AdminAccountID:     getEnv("ADMIN_PAYEE_ACCOUNT_ID", ""),
			AdminMerchantName:  getEnv("ADMIN_PAYEE_MERCHANT_NAME", ""),
			AdminMerchantCity:  getEnv("ADMIN_PAYEE_MERCHANT_CITY", ""),
			AdminAcquiringBank: getEnv("ADMIN_PAYEE_ACQUIRING_BANK", ""),
		},
		Checkout: CheckoutConfig{
			ReservationTTLMinutes: getEnvAsInt("CHECKOUT_RESERVATION_TTL_MINUTES", 15),
			QRTTLMinutes:          getEnvAsInt("CHECKOUT_QR_TTL_MINUTES", 10),
			MaxPollAttempts:       getEnvAsInt("CHECKOUT_MAX_POLL_ATTEMPTS", 60),
			Currency:              getEnv("CHECKOUT_CURRENCY", "USD"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis port: %d", c.Redis.Port)
	}

	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway base URL is required")
	}

	if c.Gateway.TimeoutSeconds < 1 {
		return fmt.Errorf("gateway timeout must be at least 1 second")
	}

	if c.Checkout.ReservationTTLMinutes < 1 {
		return fmt.Errorf("reservation TTL must be at least 1 minute")
	}

	// The QR session must never outlive the reservation it points at.
	if c.Checkout.QRTTLMinutes < 1 || c.Checkout.QRTTLMinutes > c.Checkout.ReservationTTLMinutes {
		return fmt.Errorf("QR TTL must be between 1 minute and the reservation TTL")
	}

	if c.Checkout.MaxPollAttempts < 1 {
		return fmt.Errorf("max poll attempts must be at least 1")
	}

	if c.Checkout.Currency == "" {
		return fmt.Errorf("checkout currency is required")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Address returns the Redis address.
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Timeout returns the gateway request timeout as a duration.
func (c *GatewayConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ReservationTTL returns the reservation lifetime as a duration.
func (c *CheckoutConfig) ReservationTTL() time.Duration {
	return time.Duration(c.ReservationTTLMinutes) * time.Minute
}

// QRTTL returns the QR session lifetime as a duration.
func (c *CheckoutConfig) QRTTL() time.Duration {
	return time.Duration(c.QRTTLMinutes) * time.Minute
}

// AdminPayeeConfigured reports whether a platform payee account is set.
func (c *PayeeConfig) AdminPayeeConfigured() bool {
	return c.AdminAccountID != ""
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
