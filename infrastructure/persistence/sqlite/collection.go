// Package sqlite provides a SQLite-backed document collection. Each collection
// is a table of JSON documents with a unique expression index on the key field.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"nodes-backend/infrastructure/persistence/abstractions"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Open opens a SQLite database at path
func Open(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}

// Collection stores documents of type T as JSON text
type Collection[T any] struct {
	db       *sql.DB
	table    string
	keyField string
	logger   *zap.Logger
}

// NewCollection creates the backing table and key index if missing
func NewCollection[T any](ctx context.Context, db *sql.DB, name, keyField string, logger *zap.Logger) (*Collection[T], error) {
	if db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if !abstractions.ValidFieldName(name) {
		return nil, fmt.Errorf("invalid collection name %q", name)
	}
	if !abstractions.ValidFieldName(keyField) {
		return nil, fmt.Errorf("invalid key field %q", keyField)
	}

	c := &Collection[T]{db: db, table: name, keyField: keyField, logger: logger}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (doc TEXT NOT NULL)`, c.table),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s_%s_key ON %s (%s)`, c.table, c.keyField, c.table, c.path(c.keyField)),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("prepare collection %s: %w", name, err)
		}
	}
	return c, nil
}

// InsertOne stores the document
func (c *Collection[T]) InsertOne(ctx context.Context, document T) error {
	doc, err := c.encode(document)
	if err != nil {
		return err
	}

	_, err = c.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (doc) VALUES (json(?))`, c.table), doc)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %w", abstractions.ErrDuplicateKey, err)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// FindOne returns the first document in insertion order matching the filter
func (c *Collection[T]) FindOne(ctx context.Context, filter abstractions.Filter) (T, error) {
	var out T

	where, arg, err := c.where(filter)
	if err != nil {
		return out, err
	}

	var doc string
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE %s ORDER BY rowid LIMIT 1`, c.table, where)
	if err := c.db.QueryRowContext(ctx, query, arg).Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return out, abstractions.ErrNoDocuments
		}
		return out, fmt.Errorf("find document: %w", err)
	}

	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		var zero T
		return zero, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

// ReplaceOne overwrites the first matching document. No match is a no-op.
func (c *Collection[T]) ReplaceOne(ctx context.Context, filter abstractions.Filter, replacement T) error {
	where, arg, err := c.where(filter)
	if err != nil {
		return err
	}
	doc, err := c.encode(replacement)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		`UPDATE %[1]s SET doc = json(?) WHERE rowid = (SELECT rowid FROM %[1]s WHERE %[2]s ORDER BY rowid LIMIT 1)`,
		c.table, where,
	)
	result, err := c.db.ExecContext(ctx, query, doc, arg)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %w", abstractions.ErrDuplicateKey, err)
		}
		return fmt.Errorf("replace document: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		c.logger.Debug("Replace matched no document", zap.String("collection", c.table), zap.Stringer("filter", filter))
	}
	return nil
}

// DeleteOne removes the first matching document. No match is a no-op.
func (c *Collection[T]) DeleteOne(ctx context.Context, filter abstractions.Filter) error {
	where, arg, err := c.where(filter)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		`DELETE FROM %[1]s WHERE rowid = (SELECT rowid FROM %[1]s WHERE %[2]s ORDER BY rowid LIMIT 1)`,
		c.table, where,
	)
	if _, err := c.db.ExecContext(ctx, query, arg); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (c *Collection[T]) encode(document T) (string, error) {
	raw, err := json.Marshal(document)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	if len(raw) == 0 || raw[0] != '{' {
		return "", fmt.Errorf("document must encode to an object")
	}
	return string(raw), nil
}

func (c *Collection[T]) path(field string) string {
	return fmt.Sprintf(`json_extract(doc, '$.%s')`, field)
}

// where renders filter as a SQL predicate with a single bound argument
func (c *Collection[T]) where(filter abstractions.Filter) (string, interface{}, error) {
	if err := filter.Validate(); err != nil {
		return "", nil, err
	}

	var op string
	switch filter.Operator {
	case abstractions.OpEqual:
		op = "IS"
	case abstractions.OpNotEqual:
		op = "IS NOT"
	case abstractions.OpGreaterThan:
		op = ">"
	case abstractions.OpGreaterThanOrEqual:
		op = ">="
	case abstractions.OpLessThan:
		op = "<"
	case abstractions.OpLessThanOrEqual:
		op = "<="
	}

	arg, err := bindValue(filter.Value)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s %s ?", c.path(filter.Field), op), arg, nil
}

// bindValue converts a filter value to what json_extract yields for it
func bindValue(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil, string, int, int32, int64, float32, float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return nil, fmt.Errorf("%w: cannot compare against %T", abstractions.ErrUnsupportedFilter, value)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ abstractions.Collection[struct{}] = (*Collection[struct{}])(nil)
