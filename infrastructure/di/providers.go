package di

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nodes-backend/domain/core/entities"
	"nodes-backend/infrastructure/config"
	"nodes-backend/infrastructure/messaging/eventbridge"
	"nodes-backend/infrastructure/persistence/abstractions"
	"nodes-backend/infrastructure/persistence/decorators"
	"nodes-backend/infrastructure/persistence/dynamodb"
	"nodes-backend/infrastructure/persistence/memory"
	"nodes-backend/infrastructure/persistence/sqlite"
	"nodes-backend/interfaces/http/rest"
	"nodes-backend/interfaces/http/rest/handlers"
	"nodes-backend/pkg/auth"
	apperrors "nodes-backend/pkg/errors"
	"nodes-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "nodes-backend"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", serviceName)), nil
}

// ProvideAWSConfig creates AWS configuration. The default credential chain is
// only resolved when an enabled component talks to AWS.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	if !cfg.NeedsAWS() {
		return aws.Config{Region: cfg.AWSRegion}, nil
	}
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client for the dynamodb driver,
// pointed at DYNAMODB_ENDPOINT when set
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	if cfg.StorageDriver != config.DriverDynamoDB {
		return nil
	}
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client when change events are enabled
func ProvideEventBridgeClient(awsCfg aws.Config, cfg *config.Config) *awseventbridge.Client {
	if !cfg.EnableChangeEvents {
		return nil
	}
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client when metrics are enabled
func ProvideCloudWatchClient(awsCfg aws.Config, cfg *config.Config) *awscloudwatch.Client {
	if !cfg.EnableMetrics {
		return nil
	}
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideSQLiteDB opens the SQLite database for the sqlite driver. Other
// drivers get a nil handle.
func ProvideSQLiteDB(cfg *config.Config) (*sql.DB, func(), error) {
	if cfg.StorageDriver != config.DriverSQLite {
		return nil, func() {}, nil
	}

	db, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = db.Close() }, nil
}

// ProvideMetrics starts the CloudWatch metrics flusher when metrics are
// enabled. The cleanup stops it after a final flush.
func ProvideMetrics(cfg *config.Config, client *awscloudwatch.Client, logger *zap.Logger) (*observability.Metrics, func()) {
	if !cfg.EnableMetrics {
		return nil, func() {}
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace, client, logger.Named("metrics"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		metrics.Run(ctx, cfg.MetricsFlushInterval)
	}()

	return metrics, func() {
		cancel()
		<-done
	}
}

// ProvideTracer creates the X-Ray tracer when tracing is enabled
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	if !cfg.EnableTracing {
		return nil
	}
	return observability.NewTracer(serviceName)
}

// ProvideEventPublisher creates the change event publisher when change events are enabled
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) *eventbridge.Publisher {
	if !cfg.EnableChangeEvents {
		return nil
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger.Named("events"))
}

// ProvideNodeCollection builds the configured storage backend and stacks the
// enabled decorators around it
func ProvideNodeCollection(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	dynamoClient *awsdynamodb.Client,
	db *sql.DB,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
	publisher *eventbridge.Publisher,
) (abstractions.Collection[*entities.Node], error) {
	name := cfg.CollectionName

	var nodes abstractions.Collection[*entities.Node]
	switch cfg.StorageDriver {
	case config.DriverMemory:
		nodes = memory.NewCollection[*entities.Node](entities.NodeIDField)
	case config.DriverDynamoDB:
		nodes = dynamodb.NewCollection[*entities.Node](dynamoClient, cfg.DynamoDBTable, entities.NodeIDField, logger)
	case config.DriverSQLite:
		collection, err := sqlite.NewCollection[*entities.Node](ctx, db, name, entities.NodeIDField, logger)
		if err != nil {
			return nil, err
		}
		nodes = collection
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	if cfg.EnableCircuitBreaker {
		nodes = decorators.NewCircuitBreakerCollection[*entities.Node](nodes, name, decorators.DefaultCircuitBreakerConfig(), logger)
	}
	if metrics != nil {
		nodes = decorators.NewMetricsCollection[*entities.Node](nodes, name, metrics)
	}
	if tracer != nil {
		nodes = decorators.NewTracingCollection[*entities.Node](nodes, name, tracer)
	}
	if publisher != nil {
		nodes = decorators.NewChangeEventsCollection[*entities.Node](nodes, name, publisher, logger)
	}

	loggingConfig := decorators.DefaultLoggingConfig()
	loggingConfig.SlowThreshold = cfg.SlowOperationThreshold()
	nodes = decorators.NewLoggingCollection[*entities.Node](nodes, name, logger, loggingConfig)

	logger.Info("Node collection ready",
		zap.String("driver", cfg.StorageDriver),
		zap.String("collection", name),
		zap.Bool("circuitBreaker", cfg.EnableCircuitBreaker),
		zap.Bool("metrics", metrics != nil),
		zap.Bool("tracing", tracer != nil),
		zap.Bool("changeEvents", publisher != nil),
	)
	return nodes, nil
}

// ProvideErrorHandler creates the HTTP error handler; stack traces are exposed outside production
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *apperrors.ErrorHandler {
	return apperrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideRouter assembles the HTTP router configuration
func ProvideRouter(
	cfg *config.Config,
	nodeHandler *handlers.NodeHandler,
	errorHandler *apperrors.ErrorHandler,
	db *sql.DB,
	logger *zap.Logger,
) (*rest.Router, error) {
	routerConfig := rest.RouterConfig{
		EnableCORS:     cfg.EnableCORS,
		AllowedOrigins: cfg.AllowedOrigins,
	}

	if cfg.JWTSecret != "" {
		validator, err := auth.NewJWTValidator(auth.JWTConfig{
			SecretKey: cfg.JWTSecret,
			Issuer:    cfg.JWTIssuer,
		})
		if err != nil {
			return nil, err
		}
		routerConfig.Validator = validator
		if cfg.RateLimitPerMinute > 0 {
			routerConfig.Limiter = auth.NewSlidingWindowLimiter(cfg.RateLimitPerMinute, time.Minute)
		}
	} else {
		logger.Warn("JWT_SECRET not set; API routes are unauthenticated")
	}

	if cfg.EnableTracing && !cfg.IsLambda {
		routerConfig.TraceSegmentName = serviceName
	}
	if db != nil {
		routerConfig.Ready = db.PingContext
	}

	return rest.NewRouter(nodeHandler, errorHandler, routerConfig, logger), nil
}
