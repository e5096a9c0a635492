package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"nodes-backend/infrastructure/persistence/abstractions"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// API is the subset of the DynamoDB client the collection uses
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Collection stores documents as items in a table whose partition key is keyField.
// Equality filters on the key use GetItem; any other filter scans the table.
type Collection[T any] struct {
	client    API
	tableName string
	keyField  string
	logger    *zap.Logger
}

// NewCollection creates a new DynamoDB-backed collection
func NewCollection[T any](client API, tableName, keyField string, logger *zap.Logger) *Collection[T] {
	return &Collection[T]{
		client:    client,
		tableName: tableName,
		keyField:  keyField,
		logger:    logger,
	}
}

// InsertOne puts the document, failing with ErrDuplicateKey if the key exists
func (c *Collection[T]) InsertOne(ctx context.Context, document T) error {
	item, err := attributevalue.MarshalMap(document)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	if _, ok := item[c.keyField]; !ok {
		return fmt.Errorf("document is missing key attribute %q", c.keyField)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name(c.keyField).AttributeNotExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(c.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("%w: %w", abstractions.ErrDuplicateKey, err)
		}
		return c.wrap("insert document", err)
	}

	c.logger.Debug("Document inserted", zap.String("table", c.tableName))
	return nil
}

// FindOne returns the first item matching the filter
func (c *Collection[T]) FindOne(ctx context.Context, filter abstractions.Filter) (T, error) {
	var out T

	item, err := c.locate(ctx, filter)
	if err != nil {
		return out, err
	}
	if item == nil {
		return out, abstractions.ErrNoDocuments
	}

	if err := attributevalue.UnmarshalMap(item, &out); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return out, nil
}

// ReplaceOne overwrites the first matching item. When the replacement carries a
// different key the old item is deleted and the new one put in one transaction.
func (c *Collection[T]) ReplaceOne(ctx context.Context, filter abstractions.Filter, replacement T) error {
	matched, err := c.locate(ctx, filter)
	if err != nil || matched == nil {
		return err
	}

	item, err := attributevalue.MarshalMap(replacement)
	if err != nil {
		return fmt.Errorf("failed to marshal replacement: %w", err)
	}
	newKey, ok := item[c.keyField]
	if !ok {
		return fmt.Errorf("replacement is missing key attribute %q", c.keyField)
	}
	oldKey := matched[c.keyField]

	if reflect.DeepEqual(oldKey, newKey) {
		return c.overwrite(ctx, item)
	}
	return c.move(ctx, map[string]types.AttributeValue{c.keyField: oldKey}, item)
}

// DeleteOne removes the first matching item
func (c *Collection[T]) DeleteOne(ctx context.Context, filter abstractions.Filter) error {
	var key map[string]types.AttributeValue

	if filter.IsKeyLookup(c.keyField) {
		if err := filter.Validate(); err != nil {
			return err
		}
		av, err := attributevalue.Marshal(filter.Value)
		if err != nil {
			return fmt.Errorf("%w: %v", abstractions.ErrUnsupportedFilter, err)
		}
		key = map[string]types.AttributeValue{c.keyField: av}
	} else {
		matched, err := c.locate(ctx, filter)
		if err != nil || matched == nil {
			return err
		}
		key = map[string]types.AttributeValue{c.keyField: matched[c.keyField]}
	}

	_, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       key,
	})
	if err != nil {
		return c.wrap("delete document", err)
	}

	c.logger.Debug("Document deleted", zap.String("table", c.tableName))
	return nil
}

// overwrite puts item over an existing item with the same key. If the item
// vanished since it was located the replace is dropped, as for no match.
func (c *Collection[T]) overwrite(ctx context.Context, item map[string]types.AttributeValue) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.Name(c.keyField).AttributeExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(c.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil
		}
		return c.wrap("replace document", err)
	}
	return nil
}

// move deletes oldKey and puts item atomically
func (c *Collection[T]) move(ctx context.Context, oldKey, item map[string]types.AttributeValue) error {
	exists, err := expression.NewBuilder().
		WithCondition(expression.Name(c.keyField).AttributeExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}
	notExists, err := expression.NewBuilder().
		WithCondition(expression.Name(c.keyField).AttributeNotExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = c.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Delete: &types.Delete{
					TableName:                aws.String(c.tableName),
					Key:                      oldKey,
					ConditionExpression:      exists.Condition(),
					ExpressionAttributeNames: exists.Names(),
				},
			},
			{
				Put: &types.Put{
					TableName:                aws.String(c.tableName),
					Item:                     item,
					ConditionExpression:      notExists.Condition(),
					ExpressionAttributeNames: notExists.Names(),
				},
			},
		},
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			reasons := canceled.CancellationReasons
			if len(reasons) > 1 && aws.ToString(reasons[1].Code) == "ConditionalCheckFailed" {
				return fmt.Errorf("%w: %w", abstractions.ErrDuplicateKey, err)
			}
			if len(reasons) > 0 && aws.ToString(reasons[0].Code) == "ConditionalCheckFailed" {
				return nil
			}
		}
		return c.wrap("replace document", err)
	}
	return nil
}

// locate returns the first item matching filter, or nil
func (c *Collection[T]) locate(ctx context.Context, filter abstractions.Filter) (map[string]types.AttributeValue, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	if filter.IsKeyLookup(c.keyField) {
		av, err := attributevalue.Marshal(filter.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", abstractions.ErrUnsupportedFilter, err)
		}
		result, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:      aws.String(c.tableName),
			Key:            map[string]types.AttributeValue{c.keyField: av},
			ConsistentRead: aws.Bool(true),
		})
		if err != nil {
			return nil, c.wrap("get document", err)
		}
		return result.Item, nil
	}

	cond, err := condition(filter)
	if err != nil {
		return nil, err
	}
	expr, err := expression.NewBuilder().WithFilter(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(c.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	}
	for {
		result, err := c.client.Scan(ctx, input)
		if err != nil {
			return nil, c.wrap("scan documents", err)
		}
		if len(result.Items) > 0 {
			return result.Items[0], nil
		}
		if len(result.LastEvaluatedKey) == 0 {
			return nil, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

func condition(filter abstractions.Filter) (expression.ConditionBuilder, error) {
	name := expression.Name(filter.Field)
	value := expression.Value(filter.Value)

	switch filter.Operator {
	case abstractions.OpEqual:
		return name.Equal(value), nil
	case abstractions.OpNotEqual:
		return name.NotEqual(value), nil
	case abstractions.OpGreaterThan:
		return name.GreaterThan(value), nil
	case abstractions.OpGreaterThanOrEqual:
		return name.GreaterThanEqual(value), nil
	case abstractions.OpLessThan:
		return name.LessThan(value), nil
	case abstractions.OpLessThanOrEqual:
		return name.LessThanEqual(value), nil
	}
	return expression.ConditionBuilder{}, fmt.Errorf("%w: unknown operator %q", abstractions.ErrUnsupportedFilter, filter.Operator)
}

func (c *Collection[T]) wrap(operation string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		c.logger.Warn("DynamoDB request failed",
			zap.String("operation", operation),
			zap.String("table", c.tableName),
			zap.String("code", apiErr.ErrorCode()),
			zap.String("fault", apiErr.ErrorFault().String()),
		)
	}
	return fmt.Errorf("failed to %s: %w", operation, err)
}

var _ abstractions.Collection[struct{}] = (*Collection[struct{}])(nil)
var _ API = (*dynamodb.Client)(nil)
