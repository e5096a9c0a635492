package decorators

import (
	"context"
	"errors"
	"time"

	"nodes-backend/infrastructure/persistence/abstractions"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggingConfig controls what information is logged
type LoggingConfig struct {
	LogLevel      zapcore.Level // Level for successful operations
	SlowThreshold time.Duration // Warn for operations slower than this
}

// DefaultLoggingConfig returns the default logging configuration
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogLevel:      zapcore.DebugLevel,
		SlowThreshold: 500 * time.Millisecond,
	}
}

// LoggingCollection logs every collection call with its duration and outcome
type LoggingCollection[T any] struct {
	inner  abstractions.Collection[T]
	logger *zap.Logger
	config LoggingConfig
}

// NewLoggingCollection creates a new logging decorator
func NewLoggingCollection[T any](
	inner abstractions.Collection[T],
	name string,
	logger *zap.Logger,
	config LoggingConfig,
) *LoggingCollection[T] {
	return &LoggingCollection[T]{
		inner:  inner,
		logger: logger.Named("collection").With(zap.String("collection", name)),
		config: config,
	}
}

func (c *LoggingCollection[T]) InsertOne(ctx context.Context, document T) error {
	start := time.Now()
	err := c.inner.InsertOne(ctx, document)
	c.log("InsertOne", nil, start, err)
	return err
}

func (c *LoggingCollection[T]) FindOne(ctx context.Context, filter abstractions.Filter) (T, error) {
	start := time.Now()
	doc, err := c.inner.FindOne(ctx, filter)
	c.log("FindOne", &filter, start, err)
	return doc, err
}

func (c *LoggingCollection[T]) ReplaceOne(ctx context.Context, filter abstractions.Filter, replacement T) error {
	start := time.Now()
	err := c.inner.ReplaceOne(ctx, filter, replacement)
	c.log("ReplaceOne", &filter, start, err)
	return err
}

func (c *LoggingCollection[T]) DeleteOne(ctx context.Context, filter abstractions.Filter) error {
	start := time.Now()
	err := c.inner.DeleteOne(ctx, filter)
	c.log("DeleteOne", &filter, start, err)
	return err
}

func (c *LoggingCollection[T]) log(operation string, filter *abstractions.Filter, start time.Time, err error) {
	duration := time.Since(start)
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.Duration("duration", duration),
	}
	if filter != nil {
		fields = append(fields, zap.Stringer("filter", *filter))
	}

	switch {
	case err == nil:
		if duration > c.config.SlowThreshold {
			c.logger.Warn("Slow collection operation", fields...)
			return
		}
		if ce := c.logger.Check(c.config.LogLevel, "Collection operation completed"); ce != nil {
			ce.Write(fields...)
		}
	case errors.Is(err, abstractions.ErrNoDocuments):
		c.logger.Debug("Collection operation found no documents", fields...)
	case errors.Is(err, abstractions.ErrDuplicateKey):
		c.logger.Info("Collection operation rejected duplicate key", append(fields, zap.Error(err))...)
	default:
		c.logger.Error("Collection operation failed", append(fields, zap.Error(err))...)
	}
}
