// Package decorators wraps a Collection with cross-cutting behavior.
//
// Every decorator implements abstractions.Collection[T] and delegates to an
// inner collection, so they stack in any order:
//
//	base := dynamodb.NewCollection[*entities.Node](client, table, "id", logger)
//	nodes := decorators.NewLoggingCollection[*entities.Node](
//	    decorators.NewCircuitBreakerCollection[*entities.Node](
//	        base, "nodes", decorators.DefaultCircuitBreakerConfig(), logger),
//	    "nodes", logger, decorators.DefaultLoggingConfig(),
//	)
//
// Values and errors from the inner collection are returned unchanged. The one
// exception is an open circuit breaker, which answers with gobreaker.ErrOpenState
// without calling through.
package decorators
