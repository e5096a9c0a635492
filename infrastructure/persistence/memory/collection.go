// Package memory provides an in-process document collection. It backs local
// development and doubles as a recording fake in tests.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"nodes-backend/infrastructure/persistence/abstractions"

	"github.com/goccy/go-json"
)

// Operation names a collection method
type Operation string

const (
	OpInsertOne  Operation = "InsertOne"
	OpFindOne    Operation = "FindOne"
	OpReplaceOne Operation = "ReplaceOne"
	OpDeleteOne  Operation = "DeleteOne"
)

// Call records one invocation. Document holds the argument exactly as passed
// for InsertOne and ReplaceOne.
type Call[T any] struct {
	Operation Operation
	Filter    abstractions.Filter
	Document  T
}

// Collection is a mutex-guarded, insertion-ordered document list. Documents
// are stored encoded so callers never share memory with stored state.
type Collection[T any] struct {
	mu       sync.Mutex
	keyField string
	docs     []storedDoc
	calls    []Call[T]
	failures map[Operation]error
}

type storedDoc struct {
	raw    []byte
	fields map[string]interface{}
}

// NewCollection creates an empty collection whose documents are unique on keyField
func NewCollection[T any](keyField string) *Collection[T] {
	return &Collection[T]{
		keyField: keyField,
		failures: make(map[Operation]error),
	}
}

// InsertOne stores a copy of document
func (c *Collection[T]) InsertOne(ctx context.Context, document T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, Call[T]{Operation: OpInsertOne, Document: document})
	if err := c.takeFailure(ctx, OpInsertOne); err != nil {
		return err
	}

	doc, err := encode(document)
	if err != nil {
		return err
	}
	if c.keyTaken(doc, -1) {
		return fmt.Errorf("%w: %s=%v", abstractions.ErrDuplicateKey, c.keyField, doc.fields[c.keyField])
	}

	c.docs = append(c.docs, doc)
	return nil
}

// FindOne returns a fresh copy of the first matching document
func (c *Collection[T]) FindOne(ctx context.Context, filter abstractions.Filter) (T, error) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, Call[T]{Operation: OpFindOne, Filter: filter})
	if err := c.takeFailure(ctx, OpFindOne); err != nil {
		return zero, err
	}

	idx, err := c.indexOf(filter)
	if err != nil {
		return zero, err
	}
	if idx < 0 {
		return zero, abstractions.ErrNoDocuments
	}

	var out T
	if err := json.Unmarshal(c.docs[idx].raw, &out); err != nil {
		return zero, fmt.Errorf("failed to decode document: %w", err)
	}
	return out, nil
}

// ReplaceOne swaps the first matching document for replacement. No match is a no-op.
func (c *Collection[T]) ReplaceOne(ctx context.Context, filter abstractions.Filter, replacement T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, Call[T]{Operation: OpReplaceOne, Filter: filter, Document: replacement})
	if err := c.takeFailure(ctx, OpReplaceOne); err != nil {
		return err
	}

	idx, err := c.indexOf(filter)
	if err != nil || idx < 0 {
		return err
	}

	doc, err := encode(replacement)
	if err != nil {
		return err
	}
	if c.keyTaken(doc, idx) {
		return fmt.Errorf("%w: %s=%v", abstractions.ErrDuplicateKey, c.keyField, doc.fields[c.keyField])
	}

	c.docs[idx] = doc
	return nil
}

// DeleteOne removes the first matching document. No match is a no-op.
func (c *Collection[T]) DeleteOne(ctx context.Context, filter abstractions.Filter) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, Call[T]{Operation: OpDeleteOne, Filter: filter})
	if err := c.takeFailure(ctx, OpDeleteOne); err != nil {
		return err
	}

	idx, err := c.indexOf(filter)
	if err != nil || idx < 0 {
		return err
	}

	c.docs = append(c.docs[:idx], c.docs[idx+1:]...)
	return nil
}

// Len returns the number of stored documents
func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

// Calls returns every recorded invocation in order
func (c *Collection[T]) Calls() []Call[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call[T](nil), c.calls...)
}

// CallsTo returns the recorded invocations of op
func (c *Collection[T]) CallsTo(op Operation) []Call[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Call[T]
	for _, call := range c.calls {
		if call.Operation == op {
			out = append(out, call)
		}
	}
	return out
}

// ResetCalls clears the call log, keeping stored documents
func (c *Collection[T]) ResetCalls() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

// FailNext makes the next call to op return err without touching stored state
func (c *Collection[T]) FailNext(op Operation, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[op] = err
}

func (c *Collection[T]) takeFailure(ctx context.Context, op Operation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := c.failures[op]; ok {
		delete(c.failures, op)
		return err
	}
	return nil
}

func (c *Collection[T]) indexOf(filter abstractions.Filter) (int, error) {
	if err := filter.Validate(); err != nil {
		return -1, err
	}
	want, err := normalize(filter.Value)
	if err != nil {
		return -1, err
	}
	for i, doc := range c.docs {
		if matches(doc.fields[filter.Field], filter.Operator, want) {
			return i, nil
		}
	}
	return -1, nil
}

// keyTaken reports whether another stored document (other than skip) shares doc's key
func (c *Collection[T]) keyTaken(doc storedDoc, skip int) bool {
	key, ok := doc.fields[c.keyField]
	if !ok || key == nil {
		return false
	}
	for i, existing := range c.docs {
		if i != skip && reflect.DeepEqual(existing.fields[c.keyField], key) {
			return true
		}
	}
	return false
}

func encode(document interface{}) (storedDoc, error) {
	raw, err := json.Marshal(document)
	if err != nil {
		return storedDoc{}, fmt.Errorf("failed to encode document: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return storedDoc{}, fmt.Errorf("document must encode to an object: %w", err)
	}
	if fields == nil {
		return storedDoc{}, fmt.Errorf("document must not be nil")
	}
	return storedDoc{raw: raw, fields: fields}, nil
}

// normalize puts a filter value in the same representation decoded documents use
func normalize(value interface{}) (interface{}, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", abstractions.ErrUnsupportedFilter, err)
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", abstractions.ErrUnsupportedFilter, err)
	}
	return out, nil
}

func matches(got interface{}, op abstractions.FilterOperator, want interface{}) bool {
	switch op {
	case abstractions.OpEqual:
		return reflect.DeepEqual(got, want)
	case abstractions.OpNotEqual:
		return !reflect.DeepEqual(got, want)
	}

	cmp, ok := compare(got, want)
	if !ok {
		return false
	}
	switch op {
	case abstractions.OpGreaterThan:
		return cmp > 0
	case abstractions.OpGreaterThanOrEqual:
		return cmp >= 0
	case abstractions.OpLessThan:
		return cmp < 0
	case abstractions.OpLessThanOrEqual:
		return cmp <= 0
	}
	return false
}

// compare orders two decoded values of the same scalar kind
func compare(a, b interface{}) (int, bool) {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

var _ abstractions.Collection[struct{}] = (*Collection[struct{}])(nil)
