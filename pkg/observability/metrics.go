package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

const (
	// maxDatumsPerRequest stays well under the PutMetricData limit
	maxDatumsPerRequest = 500
	defaultFlushSize    = 100
	maxBufferedDatums   = 10000
)

// MetricsClient is the subset of the CloudWatch client Metrics uses
type MetricsClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Metrics buffers operation datums and ships them to CloudWatch in batches
type Metrics struct {
	namespace string
	client    MetricsClient
	logger    *zap.Logger

	mu      sync.Mutex
	buffer  []types.MetricDatum
	dropped int
	flushCh chan struct{}
	now     func() time.Time
}

// NewMetrics creates metrics publishing under namespace
func NewMetrics(namespace string, client MetricsClient, logger *zap.Logger) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
		flushCh:   make(chan struct{}, 1),
		now:       time.Now,
	}
}

// RecordOperation records latency and outcome of one collection call
func (m *Metrics) RecordOperation(collection, operation string, duration time.Duration, failed bool) {
	dims := []types.Dimension{
		{Name: aws.String("Collection"), Value: aws.String(collection)},
		{Name: aws.String("Operation"), Value: aws.String(operation)},
	}
	ts := aws.Time(m.now())

	errorCount := 0.0
	if failed {
		errorCount = 1
	}

	m.add(
		types.MetricDatum{
			MetricName: aws.String("OperationLatency"),
			Dimensions: dims,
			Timestamp:  ts,
			Unit:       types.StandardUnitMilliseconds,
			Value:      aws.Float64(float64(duration.Microseconds()) / 1000),
		},
		types.MetricDatum{
			MetricName: aws.String("OperationErrors"),
			Dimensions: dims,
			Timestamp:  ts,
			Unit:       types.StandardUnitCount,
			Value:      aws.Float64(errorCount),
		},
	)
}

func (m *Metrics) add(datums ...types.MetricDatum) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.buffer)+len(datums) > maxBufferedDatums {
		m.dropped += len(datums)
		return
	}
	m.buffer = append(m.buffer, datums...)

	if len(m.buffer) >= defaultFlushSize {
		select {
		case m.flushCh <- struct{}{}:
		default:
		}
	}
}

// Pending returns the number of buffered datums
func (m *Metrics) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffer)
}

// Flush sends all buffered datums. Chunks that could not be sent go back to
// the front of the buffer for the next flush.
func (m *Metrics) Flush(ctx context.Context) error {
	m.mu.Lock()
	pending := m.buffer
	dropped := m.dropped
	m.buffer = nil
	m.dropped = 0
	m.mu.Unlock()

	if dropped > 0 {
		m.logger.Warn("Metric buffer overflowed", zap.Int("dropped", dropped))
	}

	for start := 0; start < len(pending); start += maxDatumsPerRequest {
		end := start + maxDatumsPerRequest
		if end > len(pending) {
			end = len(pending)
		}
		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: pending[start:end],
		})
		if err != nil {
			m.requeue(pending[start:])
			return fmt.Errorf("failed to put metric data: %w", err)
		}
	}
	return nil
}

// requeue puts unsent datums ahead of anything recorded since the flush began,
// dropping the oldest beyond maxBufferedDatums
func (m *Metrics) requeue(unsent []types.MetricDatum) {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged := make([]types.MetricDatum, 0, len(unsent)+len(m.buffer))
	merged = append(merged, unsent...)
	merged = append(merged, m.buffer...)
	if over := len(merged) - maxBufferedDatums; over > 0 {
		merged = merged[over:]
		m.dropped += over
	}
	m.buffer = merged
}

// Run flushes on every tick and whenever the buffer fills, until ctx is done.
// A final flush is attempted with a short timeout on exit.
func (m *Metrics) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := m.Flush(flushCtx); err != nil {
				m.logger.Error("Final metrics flush failed", zap.Error(err))
			}
			cancel()
			return
		case <-ticker.C:
		case <-m.flushCh:
		}
		if err := m.Flush(ctx); err != nil {
			m.logger.Error("Metrics flush failed", zap.Error(err))
		}
	}
}
