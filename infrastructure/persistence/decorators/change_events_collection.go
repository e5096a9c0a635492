package decorators

import (
	"context"
	"time"

	"nodes-backend/infrastructure/messaging/eventbridge"
	"nodes-backend/infrastructure/persistence/abstractions"

	"go.uber.org/zap"
)

// ChangePublisher delivers change events
type ChangePublisher interface {
	Publish(ctx context.Context, event eventbridge.ChangeEvent) error
}

// ChangeEventsCollection announces successful writes. Events describe the
// request the store accepted; replace and delete calls that matched nothing
// are announced too. Publish failures are logged and never returned.
type ChangeEventsCollection[T any] struct {
	inner     abstractions.Collection[T]
	name      string
	publisher ChangePublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewChangeEventsCollection[T any](
	inner abstractions.Collection[T],
	name string,
	publisher ChangePublisher,
	logger *zap.Logger,
) *ChangeEventsCollection[T] {
	return &ChangeEventsCollection[T]{
		inner:     inner,
		name:      name,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (c *ChangeEventsCollection[T]) InsertOne(ctx context.Context, document T) error {
	if err := c.inner.InsertOne(ctx, document); err != nil {
		return err
	}
	c.publish(ctx, eventbridge.ChangeEvent{Type: eventbridge.DocumentInserted, Document: document})
	return nil
}

func (c *ChangeEventsCollection[T]) FindOne(ctx context.Context, filter abstractions.Filter) (T, error) {
	return c.inner.FindOne(ctx, filter)
}

func (c *ChangeEventsCollection[T]) ReplaceOne(ctx context.Context, filter abstractions.Filter, replacement T) error {
	if err := c.inner.ReplaceOne(ctx, filter, replacement); err != nil {
		return err
	}
	c.publish(ctx, eventbridge.ChangeEvent{
		Type:     eventbridge.DocumentReplaced,
		Filter:   filter.String(),
		Document: replacement,
	})
	return nil
}

func (c *ChangeEventsCollection[T]) DeleteOne(ctx context.Context, filter abstractions.Filter) error {
	if err := c.inner.DeleteOne(ctx, filter); err != nil {
		return err
	}
	c.publish(ctx, eventbridge.ChangeEvent{Type: eventbridge.DocumentDeleted, Filter: filter.String()})
	return nil
}

func (c *ChangeEventsCollection[T]) publish(ctx context.Context, event eventbridge.ChangeEvent) {
	event.Collection = c.name
	event.OccurredAt = c.now().UTC()

	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.Error("Failed to publish change event",
			zap.String("collection", c.name),
			zap.String("eventType", event.Type),
			zap.Error(err),
		)
	}
}
