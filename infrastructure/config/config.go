package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverDynamoDB = "dynamodb"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Storage configuration
	StorageDriver  string
	CollectionName string
	SQLitePath     string

	// AWS configuration
	AWSRegion        string
	DynamoDBTable    string
	DynamoDBEndpoint string // local endpoint override, e.g. DynamoDB Local
	EventBusName     string

	// Lambda configuration
	IsLambda bool

	// Logging
	LogLevel        string
	SlowOperationMs int

	// Authentication
	JWTSecret          string
	JWTIssuer          string
	RateLimitPerMinute int // per client IP; 0 disables

	// HTTP
	AllowedOrigins []string

	// Metrics
	MetricsNamespace     string
	MetricsFlushInterval time.Duration

	// Feature flags
	EnableChangeEvents   bool
	EnableMetrics        bool
	EnableTracing        bool
	EnableCircuitBreaker bool
	EnableCORS           bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		StorageDriver:  getEnv("STORAGE_DRIVER", DriverMemory),
		CollectionName: getEnv("COLLECTION_NAME", "nodes"),
		SQLitePath:     getEnv("SQLITE_PATH", ""),

		AWSRegion:        getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable:    getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "")),
		DynamoDBEndpoint: getEnv("DYNAMODB_ENDPOINT", ""),
		EventBusName:     getEnv("EVENT_BUS_NAME", ""),

		IsLambda: getEnvBool("IS_LAMBDA", os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "nodes-backend"),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 100),
		AllowedOrigins:     getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		MetricsNamespace:     getEnv("METRICS_NAMESPACE", "NodesBackend"),
		MetricsFlushInterval: time.Duration(getEnvInt("METRICS_FLUSH_SECONDS", 60)) * time.Second,

		// Logging and features
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		SlowOperationMs:      getEnvInt("SLOW_OPERATION_MS", 500),
		EnableChangeEvents:   getEnvBool("ENABLE_CHANGE_EVENTS", false),
		EnableMetrics:        getEnvBool("ENABLE_METRICS", false),
		EnableTracing:        getEnvBool("ENABLE_TRACING", false),
		EnableCircuitBreaker: getEnvBool("ENABLE_CIRCUIT_BREAKER", true),
		EnableCORS:           getEnvBool("ENABLE_CORS", true),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the %s driver", DriverDynamoDB)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the %s driver", DriverSQLite)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.CollectionName == "" {
		return fmt.Errorf("COLLECTION_NAME must not be empty")
	}
	if c.EnableChangeEvents && c.EventBusName == "" {
		return fmt.Errorf("EVENT_BUS_NAME is required when change events are enabled")
	}
	if c.EnableMetrics && c.MetricsFlushInterval <= 0 {
		return fmt.Errorf("METRICS_FLUSH_SECONDS must be positive")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}

	return nil
}

// SlowOperationThreshold returns the duration above which collection calls are logged as slow
func (c *Config) SlowOperationThreshold() time.Duration {
	return time.Duration(c.SlowOperationMs) * time.Millisecond
}

// NeedsAWS reports whether any enabled component talks to AWS
func (c *Config) NeedsAWS() bool {
	return c.StorageDriver == DriverDynamoDB || c.EnableChangeEvents || c.EnableMetrics
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvList splits a comma-separated environment variable, dropping blanks
func getEnvList(key string, defaultValue []string) []string {
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
	return out
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
