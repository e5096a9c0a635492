package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCloudWatch struct {
	mock.Mock
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*cloudwatch.PutMetricDataOutput)
	return out, args.Error(1)
}

func TestMetrics_RecordOperation(t *testing.T) {
	client := new(mockCloudWatch)
	metrics := NewMetrics("Nodes", client, zap.NewNop())
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	metrics.now = func() time.Time { return now }

	metrics.RecordOperation("nodes", "FindOne", 1500*time.Microsecond, true)
	require.Equal(t, 2, metrics.Pending())

	var sent *cloudwatch.PutMetricDataInput
	client.On("PutMetricData", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*cloudwatch.PutMetricDataInput) }).
		Return(&cloudwatch.PutMetricDataOutput{}, nil)

	require.NoError(t, metrics.Flush(context.Background()))

	assert.Equal(t, "Nodes", aws.ToString(sent.Namespace))
	require.Len(t, sent.MetricData, 2)

	latency := sent.MetricData[0]
	assert.Equal(t, "OperationLatency", aws.ToString(latency.MetricName))
	assert.Equal(t, types.StandardUnitMilliseconds, latency.Unit)
	assert.InDelta(t, 1.5, aws.ToFloat64(latency.Value), 0.0001)
	assert.Equal(t, now, aws.ToTime(latency.Timestamp))
	require.Len(t, latency.Dimensions, 2)
	assert.Equal(t, "nodes", aws.ToString(latency.Dimensions[0].Value))
	assert.Equal(t, "FindOne", aws.ToString(latency.Dimensions[1].Value))

	errorsDatum := sent.MetricData[1]
	assert.Equal(t, "OperationErrors", aws.ToString(errorsDatum.MetricName))
	assert.Equal(t, 1.0, aws.ToFloat64(errorsDatum.Value))

	assert.Equal(t, 0, metrics.Pending())
}

func TestMetrics_FlushEmptyBufferSendsNothing(t *testing.T) {
	client := new(mockCloudWatch)
	metrics := NewMetrics("Nodes", client, zap.NewNop())

	require.NoError(t, metrics.Flush(context.Background()))

	client.AssertNotCalled(t, "PutMetricData", mock.Anything, mock.Anything)
}

func TestMetrics_FlushSplitsLargeBuffers(t *testing.T) {
	client := new(mockCloudWatch)
	metrics := NewMetrics("Nodes", client, zap.NewNop())

	var sizes []int
	client.On("PutMetricData", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			sizes = append(sizes, len(args.Get(1).(*cloudwatch.PutMetricDataInput).MetricData))
		}).
		Return(&cloudwatch.PutMetricDataOutput{}, nil)

	for i := 0; i < 300; i++ {
		metrics.RecordOperation("nodes", "InsertOne", time.Millisecond, false)
	}

	require.NoError(t, metrics.Flush(context.Background()))
	assert.Equal(t, []int{500, 100}, sizes)
}

func TestMetrics_FlushError(t *testing.T) {
	client := new(mockCloudWatch)
	metrics := NewMetrics("Nodes", client, zap.NewNop())
	boom := errors.New("throttled")
	client.On("PutMetricData", mock.Anything, mock.Anything).Return(nil, boom)

	metrics.RecordOperation("nodes", "InsertOne", time.Millisecond, false)

	assert.ErrorIs(t, metrics.Flush(context.Background()), boom)
	assert.Equal(t, 2, metrics.Pending(), "unsent datums stay buffered")
}

func TestMetrics_FlushRetriesUnsentChunks(t *testing.T) {
	client := new(mockCloudWatch)
	metrics := NewMetrics("Nodes", client, zap.NewNop())
	boom := errors.New("throttled")

	var sizes []int
	record := func(args mock.Arguments) {
		sizes = append(sizes, len(args.Get(1).(*cloudwatch.PutMetricDataInput).MetricData))
	}
	client.On("PutMetricData", mock.Anything, mock.Anything).Run(record).Return(&cloudwatch.PutMetricDataOutput{}, nil).Once()
	client.On("PutMetricData", mock.Anything, mock.Anything).Run(record).Return(nil, boom).Once()
	client.On("PutMetricData", mock.Anything, mock.Anything).Run(record).Return(&cloudwatch.PutMetricDataOutput{}, nil)

	for i := 0; i < 300; i++ {
		metrics.RecordOperation("nodes", "InsertOne", time.Millisecond, false)
	}

	require.ErrorIs(t, metrics.Flush(context.Background()), boom)
	assert.Equal(t, 100, metrics.Pending())

	metrics.RecordOperation("nodes", "FindOne", time.Millisecond, false)
	require.NoError(t, metrics.Flush(context.Background()))

	assert.Equal(t, []int{500, 100, 102}, sizes)
	assert.Equal(t, 0, metrics.Pending())
}

func TestMetrics_RunFlushesOnShutdown(t *testing.T) {
	client := new(mockCloudWatch)
	metrics := NewMetrics("Nodes", client, zap.NewNop())
	client.On("PutMetricData", mock.Anything, mock.Anything).Return(&cloudwatch.PutMetricDataOutput{}, nil)

	metrics.RecordOperation("nodes", "DeleteOne", time.Millisecond, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		metrics.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Equal(t, 0, metrics.Pending())
	client.AssertNumberOfCalls(t, "PutMetricData", 1)
}
