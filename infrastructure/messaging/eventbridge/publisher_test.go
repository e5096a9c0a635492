package eventbridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockEventBridge struct {
	mock.Mock
}

func (m *mockEventBridge) PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*eventbridge.PutEventsOutput)
	return out, args.Error(1)
}

func TestPublisher_Publish(t *testing.T) {
	client := new(mockEventBridge)
	publisher := NewPublisher(client, "nodes-bus", zap.NewNop())
	occurred := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	var sent *eventbridge.PutEventsInput
	client.On("PutEvents", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*eventbridge.PutEventsInput) }).
		Return(&eventbridge.PutEventsOutput{}, nil)

	err := publisher.Publish(context.Background(), ChangeEvent{
		Type:       DocumentDeleted,
		Collection: "nodes",
		Filter:     "id eq abc",
		OccurredAt: occurred,
	})
	require.NoError(t, err)

	require.Len(t, sent.Entries, 1)
	entry := sent.Entries[0]
	assert.Equal(t, "nodes-bus", aws.ToString(entry.EventBusName))
	assert.Equal(t, Source, aws.ToString(entry.Source))
	assert.Equal(t, DocumentDeleted, aws.ToString(entry.DetailType))
	assert.Equal(t, occurred, aws.ToTime(entry.Time))

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, "nodes", detail["collection"])
	assert.Equal(t, "id eq abc", detail["filter"])
	assert.NotContains(t, detail, "document")
}

func TestPublisher_PublishBatchChunks(t *testing.T) {
	client := new(mockEventBridge)
	publisher := NewPublisher(client, "nodes-bus", zap.NewNop())

	var sizes []int
	client.On("PutEvents", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			sizes = append(sizes, len(args.Get(1).(*eventbridge.PutEventsInput).Entries))
		}).
		Return(&eventbridge.PutEventsOutput{}, nil)

	events := make([]ChangeEvent, 23)
	for i := range events {
		events[i] = ChangeEvent{Type: DocumentInserted, Collection: "nodes"}
	}

	require.NoError(t, publisher.PublishBatch(context.Background(), events))
	assert.Equal(t, []int{10, 10, 3}, sizes)
}

func TestPublisher_ClientError(t *testing.T) {
	client := new(mockEventBridge)
	publisher := NewPublisher(client, "nodes-bus", zap.NewNop())
	boom := errors.New("throttled")
	client.On("PutEvents", mock.Anything, mock.Anything).Return(nil, boom)

	err := publisher.Publish(context.Background(), ChangeEvent{Type: DocumentInserted})
	assert.ErrorIs(t, err, boom)
}

func TestPublisher_FailedEntries(t *testing.T) {
	client := new(mockEventBridge)
	publisher := NewPublisher(client, "nodes-bus", zap.NewNop())
	client.On("PutEvents", mock.Anything, mock.Anything).Return(&eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries: []types.PutEventsResultEntry{
			{ErrorCode: aws.String("InternalFailure"), ErrorMessage: aws.String("try again")},
		},
	}, nil)

	err := publisher.Publish(context.Background(), ChangeEvent{Type: DocumentReplaced})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 events failed to publish")
}
