package decorators

import (
	"context"

	"nodes-backend/infrastructure/persistence/abstractions"
)

// FunctionTracer runs a function inside a named trace span and annotates the
// span that is current in ctx
type FunctionTracer interface {
	TraceFunction(ctx context.Context, name string, fn func(context.Context) error) error
	AddAnnotation(ctx context.Context, key string, value string)
}

// TracingCollection wraps each call in a subsegment named after the collection
// and operation. Subsegments are annotated with both so traces can be
// filtered on them.
type TracingCollection[T any] struct {
	inner  abstractions.Collection[T]
	name   string
	tracer FunctionTracer
}

func NewTracingCollection[T any](inner abstractions.Collection[T], name string, tracer FunctionTracer) *TracingCollection[T] {
	return &TracingCollection[T]{inner: inner, name: name, tracer: tracer}
}

func (c *TracingCollection[T]) InsertOne(ctx context.Context, document T) error {
	return c.trace(ctx, "InsertOne", func(ctx context.Context) error {
		return c.inner.InsertOne(ctx, document)
	})
}

func (c *TracingCollection[T]) FindOne(ctx context.Context, filter abstractions.Filter) (T, error) {
	var doc T
	err := c.trace(ctx, "FindOne", func(ctx context.Context) error {
		var err error
		doc, err = c.inner.FindOne(ctx, filter)
		return err
	})
	return doc, err
}

func (c *TracingCollection[T]) ReplaceOne(ctx context.Context, filter abstractions.Filter, replacement T) error {
	return c.trace(ctx, "ReplaceOne", func(ctx context.Context) error {
		return c.inner.ReplaceOne(ctx, filter, replacement)
	})
}

func (c *TracingCollection[T]) DeleteOne(ctx context.Context, filter abstractions.Filter) error {
	return c.trace(ctx, "DeleteOne", func(ctx context.Context) error {
		return c.inner.DeleteOne(ctx, filter)
	})
}

func (c *TracingCollection[T]) trace(ctx context.Context, operation string, fn func(context.Context) error) error {
	return c.tracer.TraceFunction(ctx, c.name+"."+operation, func(ctx context.Context) error {
		c.tracer.AddAnnotation(ctx, "collection", c.name)
		c.tracer.AddAnnotation(ctx, "operation", operation)
		return fn(ctx)
	})
}
