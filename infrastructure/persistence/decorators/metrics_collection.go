package decorators

import (
	"context"
	"errors"
	"time"

	"nodes-backend/infrastructure/persistence/abstractions"
)

// OperationRecorder receives one sample per collection call
type OperationRecorder interface {
	RecordOperation(collection, operation string, duration time.Duration, failed bool)
}

// MetricsCollection records latency and error counts for each call
type MetricsCollection[T any] struct {
	inner    abstractions.Collection[T]
	name     string
	recorder OperationRecorder
}

// NewMetricsCollection creates a new metrics decorator
func NewMetricsCollection[T any](inner abstractions.Collection[T], name string, recorder OperationRecorder) *MetricsCollection[T] {
	return &MetricsCollection[T]{inner: inner, name: name, recorder: recorder}
}

func (c *MetricsCollection[T]) InsertOne(ctx context.Context, document T) error {
	start := time.Now()
	err := c.inner.InsertOne(ctx, document)
	c.record("InsertOne", start, err)
	return err
}

func (c *MetricsCollection[T]) FindOne(ctx context.Context, filter abstractions.Filter) (T, error) {
	start := time.Now()
	doc, err := c.inner.FindOne(ctx, filter)
	c.record("FindOne", start, err)
	return doc, err
}

func (c *MetricsCollection[T]) ReplaceOne(ctx context.Context, filter abstractions.Filter, replacement T) error {
	start := time.Now()
	err := c.inner.ReplaceOne(ctx, filter, replacement)
	c.record("ReplaceOne", start, err)
	return err
}

func (c *MetricsCollection[T]) DeleteOne(ctx context.Context, filter abstractions.Filter) error {
	start := time.Now()
	err := c.inner.DeleteOne(ctx, filter)
	c.record("DeleteOne", start, err)
	return err
}

func (c *MetricsCollection[T]) record(operation string, start time.Time, err error) {
	failed := err != nil && !errors.Is(err, abstractions.ErrNoDocuments)
	c.recorder.RecordOperation(c.name, operation, time.Since(start), failed)
}
