package decorators

import (
	"context"
	"errors"
	"time"

	"nodes-backend/infrastructure/persistence/abstractions"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// CircuitBreakerConfig tunes the breaker guarding a collection
type CircuitBreakerConfig struct {
	MaxRequests      uint32        // Requests allowed through while half-open
	Interval         time.Duration // Closed-state window after which counts reset
	Timeout          time.Duration // How long the breaker stays open
	FailureThreshold uint32        // Consecutive failures that open the breaker
}

// DefaultCircuitBreakerConfig returns the default breaker configuration
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// CircuitBreakerCollection stops calling the inner collection after repeated
// backend failures. Absence, duplicate keys, bad filters and caller
// cancellation are outcomes, not failures, and never trip the breaker.
type CircuitBreakerCollection[T any] struct {
	inner   abstractions.Collection[T]
	breaker *gobreaker.CircuitBreaker
}

// NewCircuitBreakerCollection creates a new circuit breaker decorator
func NewCircuitBreakerCollection[T any](
	inner abstractions.Collection[T],
	name string,
	config CircuitBreakerConfig,
	logger *zap.Logger,
) *CircuitBreakerCollection[T] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: isBreakerSuccess,
	}

	return &CircuitBreakerCollection[T]{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (c *CircuitBreakerCollection[T]) InsertOne(ctx context.Context, document T) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.inner.InsertOne(ctx, document)
	})
	return err
}

func (c *CircuitBreakerCollection[T]) FindOne(ctx context.Context, filter abstractions.Filter) (T, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.FindOne(ctx, filter)
	})
	doc, _ := result.(T)
	return doc, err
}

func (c *CircuitBreakerCollection[T]) ReplaceOne(ctx context.Context, filter abstractions.Filter, replacement T) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.inner.ReplaceOne(ctx, filter, replacement)
	})
	return err
}

func (c *CircuitBreakerCollection[T]) DeleteOne(ctx context.Context, filter abstractions.Filter) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.inner.DeleteOne(ctx, filter)
	})
	return err
}

// State returns the current breaker state
func (c *CircuitBreakerCollection[T]) State() gobreaker.State {
	return c.breaker.State()
}

func isBreakerSuccess(err error) bool {
	return err == nil ||
		errors.Is(err, abstractions.ErrNoDocuments) ||
		errors.Is(err, abstractions.ErrDuplicateKey) ||
		errors.Is(err, abstractions.ErrUnsupportedFilter) ||
		errors.Is(err, context.Canceled)
}
