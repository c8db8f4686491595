package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Auth      AuthConfig
	AI        AIConfig
	Stripe    StripeConfig
	Batch     BatchConfig
	Metrics   MetricsConfig
	Tracing   TracingConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	CacheTTL time.Duration
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
}

// AuthConfig holds bearer-token verification configuration
type AuthConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
}

// AIConfig holds generative-image provider configuration
type AIConfig struct {
	APIKey      string
	Model       string
	CallTimeout time.Duration
}

// StripeConfig holds payment provider configuration
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	MonthlyAmount int64
	ProductName   string
	SuccessURL    string
	CancelURL     string
}

// BatchConfig holds batch processing limits
type BatchConfig struct {
	MaxImages int
}

// MetricsConfig holds the metrics listener configuration
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	JaegerEndpoint string
}

// RateLimitConfig holds per-caller rate limiting configuration
type RateLimitConfig struct {
	RPS   int
	Burst int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects configurations that cannot serve traffic
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwtSecret is required")
	}
	if c.AI.APIKey == "" {
		return fmt.Errorf("ai.apiKey is required")
	}
	if c.Batch.MaxImages < 1 {
		return fmt.Errorf("batch.maxImages must be at least 1")
	}
	return nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.readTimeout", "120s")
	viper.SetDefault("server.writeTimeout", "120s")
	viper.SetDefault("server.shutdownTimeout", "10s")
	viper.SetDefault("server.maxBodyBytes", 40*1024*1024) // 5 images at ~8MB base64

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "clearroom")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxConns", 25)
	viper.SetDefault("database.minConns", 5)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.cacheTTL", "60s")

	// Storage defaults
	viper.SetDefault("storage.enabled", true)
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.accessKeyID", "minioadmin")
	viper.SetDefault("storage.secretAccessKey", "minioadmin")
	viper.SetDefault("storage.bucketName", "clearroom-results")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.useSSL", false)

	// Auth defaults
	viper.SetDefault("auth.tokenExpiry", "24h")

	// AI defaults
	viper.SetDefault("ai.model", "gemini-2.5-flash-image")
	viper.SetDefault("ai.callTimeout", "60s")

	// Stripe defaults
	viper.SetDefault("stripe.currency", "try")
	viper.SetDefault("stripe.monthlyAmount", 10000) // 100.00 in minor units
	viper.SetDefault("stripe.productName", "ClearRoom Pro (Monthly)")
	viper.SetDefault("stripe.successURL", "https://clearroom.app?success=true")
	viper.SetDefault("stripe.cancelURL", "https://clearroom.app?canceled=true")

	// Batch defaults
	viper.SetDefault("batch.maxImages", 5)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.serviceName", "clearroom-api")
	viper.SetDefault("tracing.jaegerEndpoint", "http://localhost:14268/api/traces")

	// Rate limit defaults
	viper.SetDefault("ratelimit.rps", 5)
	viper.SetDefault("ratelimit.burst", 10)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}
