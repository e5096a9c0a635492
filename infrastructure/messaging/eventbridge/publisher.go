package eventbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Source is the EventBridge source attached to every change event
const Source = "nodes-backend.collections"

// Change event types
const (
	DocumentInserted = "DocumentInserted"
	DocumentReplaced = "DocumentReplaced"
	DocumentDeleted  = "DocumentDeleted"
)

// maxEntriesPerRequest is the PutEvents batch limit
const maxEntriesPerRequest = 10

// API is the subset of the EventBridge client the publisher uses
type API interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// ChangeEvent describes a write accepted by a collection
type ChangeEvent struct {
	Type       string      `json:"type"`
	Collection string      `json:"collection"`
	Filter     string      `json:"filter,omitempty"`
	Document   interface{} `json:"document,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// Publisher sends change events to an EventBridge bus
type Publisher struct {
	client       API
	eventBusName string
	logger       *zap.Logger
}

// NewPublisher creates a new EventBridge publisher
func NewPublisher(client API, eventBusName string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		logger:       logger,
	}
}

// Publish sends a single event
func (p *Publisher) Publish(ctx context.Context, event ChangeEvent) error {
	return p.PublishBatch(ctx, []ChangeEvent{event})
}

// PublishBatch sends events in PutEvents-sized chunks, stopping at the first failed chunk
func (p *Publisher) PublishBatch(ctx context.Context, events []ChangeEvent) error {
	for i := 0; i < len(events); i += maxEntriesPerRequest {
		end := i + maxEntriesPerRequest
		if end > len(events) {
			end = len(events)
		}
		if err := p.publishBatch(ctx, events[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishBatch(ctx context.Context, events []ChangeEvent) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(events))
	for _, event := range events {
		detail, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(Source),
			DetailType:   aws.String(event.Type),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.OccurredAt),
		})
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to publish events to EventBridge: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil && i < len(events) {
				p.logger.Error("Failed to publish event",
					zap.String("eventType", events[i].Type),
					zap.String("errorCode", aws.ToString(entry.ErrorCode)),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return fmt.Errorf("%d events failed to publish", result.FailedEntryCount)
	}

	p.logger.Debug("Events published to EventBridge",
		zap.Int("count", len(entries)),
		zap.String("eventBus", p.eventBusName),
	)
	return nil
}

var _ API = (*eventbridge.Client)(nil)
