package abstractions

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrNoDocuments is returned by FindOne when no document matches the filter.
	ErrNoDocuments = errors.New("no documents in result")

	// ErrDuplicateKey is returned by InsertOne when a document with the same key
	// already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrUnsupportedFilter is returned when a backend cannot evaluate a filter.
	ErrUnsupportedFilter = errors.New("unsupported filter")
)

// Collection provides single-document operations over a document store.
// Implementations decide what happens when a replace or delete matches nothing;
// the backends in this repository treat both as a no-op.
type Collection[T any] interface {
	// InsertOne persists one document
	InsertOne(ctx context.Context, document T) error

	// FindOne returns the first document matching the filter, or ErrNoDocuments
	FindOne(ctx context.Context, filter Filter) (T, error)

	// ReplaceOne replaces the first document matching the filter wholesale
	ReplaceOne(ctx context.Context, filter Filter, replacement T) error

	// DeleteOne removes the first document matching the filter
	DeleteOne(ctx context.Context, filter Filter) error
}

// Filter represents a single field comparison
type Filter struct {
	Field    string
	Operator FilterOperator
	Value    interface{}
}

// FilterOperator defines the type of comparison
type FilterOperator string

const (
	OpEqual              FilterOperator = "eq"
	OpNotEqual           FilterOperator = "ne"
	OpGreaterThan        FilterOperator = "gt"
	OpGreaterThanOrEqual FilterOperator = "gte"
	OpLessThan           FilterOperator = "lt"
	OpLessThanOrEqual    FilterOperator = "lte"
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Eq builds an equality filter
func Eq(field string, value interface{}) Filter {
	return Filter{Field: field, Operator: OpEqual, Value: value}
}

// ByID builds the identifier-equality filter used for every keyed lookup
func ByID(idField, id string) Filter {
	return Eq(idField, id)
}

// Validate checks the filter is something every backend can evaluate
func (f Filter) Validate() error {
	if !fieldNamePattern.MatchString(f.Field) {
		return fmt.Errorf("%w: invalid field name %q", ErrUnsupportedFilter, f.Field)
	}
	if !f.Operator.Valid() {
		return fmt.Errorf("%w: unknown operator %q", ErrUnsupportedFilter, f.Operator)
	}
	return nil
}

// IsKeyLookup reports whether the filter is an equality match on keyField
func (f Filter) IsKeyLookup(keyField string) bool {
	return f.Operator == OpEqual && f.Field == keyField
}

// String renders the filter for logs
func (f Filter) String() string {
	return fmt.Sprintf("%s %s %v", f.Field, f.Operator, f.Value)
}

// Valid reports whether op is a known operator
func (op FilterOperator) Valid() bool {
	switch op {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		return true
	}
	return false
}

// ValidFieldName reports whether name can be used as a document field or
// collection name
func ValidFieldName(name string) bool {
	return fieldNamePattern.MatchString(name)
}
