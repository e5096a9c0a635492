package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"SERVER_ADDRESS", "ENVIRONMENT", "STORAGE_DRIVER", "COLLECTION_NAME", "SQLITE_PATH",
		"AWS_REGION", "TABLE_NAME", "DYNAMODB_TABLE", "DYNAMODB_ENDPOINT", "EVENT_BUS_NAME",
		"IS_LAMBDA", "AWS_LAMBDA_FUNCTION_NAME", "JWT_SECRET", "JWT_ISSUER", "METRICS_NAMESPACE",
		"METRICS_FLUSH_SECONDS", "LOG_LEVEL", "SLOW_OPERATION_MS", "ENABLE_CHANGE_EVENTS",
		"ENABLE_METRICS", "ENABLE_TRACING", "ENABLE_CIRCUIT_BREAKER", "ENABLE_CORS",
		"RATE_LIMIT_PER_MINUTE", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, "nodes", cfg.CollectionName)
	assert.Equal(t, 500*time.Millisecond, cfg.SlowOperationThreshold())
	assert.Equal(t, time.Minute, cfg.MetricsFlushInterval)
	assert.True(t, cfg.EnableCircuitBreaker)
	assert.True(t, cfg.EnableCORS)
	assert.False(t, cfg.IsLambda)
	assert.False(t, cfg.NeedsAWS())
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 100, cfg.RateLimitPerMinute)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_DRIVER", "dynamodb")
	t.Setenv("DYNAMODB_TABLE", "nodes-table")
	t.Setenv("DYNAMODB_ENDPOINT", "http://localhost:8000")
	t.Setenv("ENABLE_CHANGE_EVENTS", "true")
	t.Setenv("EVENT_BUS_NAME", "nodes-bus")
	t.Setenv("SLOW_OPERATION_MS", "250")
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "nodes-api")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "nodes-table", cfg.DynamoDBTable)
	assert.Equal(t, "http://localhost:8000", cfg.DynamoDBEndpoint)
	assert.True(t, cfg.EnableChangeEvents)
	assert.Equal(t, 250*time.Millisecond, cfg.SlowOperationThreshold())
	assert.True(t, cfg.IsLambda)
	assert.True(t, cfg.NeedsAWS())
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}

func TestLoadConfig_TableNameTakesPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_DRIVER", "dynamodb")
	t.Setenv("TABLE_NAME", "from-table-name")
	t.Setenv("DYNAMODB_TABLE", "from-dynamodb-table")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "from-table-name", cfg.DynamoDBTable)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Environment:          "development",
			StorageDriver:        DriverMemory,
			CollectionName:       "nodes",
			MetricsFlushInterval: time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "memory driver", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.StorageDriver = "mongo" }, wantErr: "unknown STORAGE_DRIVER"},
		{name: "dynamodb without table", mutate: func(c *Config) { c.StorageDriver = DriverDynamoDB }, wantErr: "DYNAMODB_TABLE"},
		{name: "sqlite without path", mutate: func(c *Config) { c.StorageDriver = DriverSQLite }, wantErr: "SQLITE_PATH"},
		{name: "sqlite with path", mutate: func(c *Config) {
			c.StorageDriver = DriverSQLite
			c.SQLitePath = "/tmp/nodes.db"
		}},
		{name: "empty collection", mutate: func(c *Config) { c.CollectionName = "" }, wantErr: "COLLECTION_NAME"},
		{name: "change events without bus", mutate: func(c *Config) { c.EnableChangeEvents = true }, wantErr: "EVENT_BUS_NAME"},
		{name: "metrics without interval", mutate: func(c *Config) {
			c.EnableMetrics = true
			c.MetricsFlushInterval = 0
		}, wantErr: "METRICS_FLUSH_SECONDS"},
		{name: "negative rate limit", mutate: func(c *Config) { c.RateLimitPerMinute = -1 }, wantErr: "RATE_LIMIT_PER_MINUTE"},
		{name: "production without secret", mutate: func(c *Config) { c.Environment = "production" }, wantErr: "JWT_SECRET"},
		{name: "production with secret", mutate: func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "secret"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
