package worker

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository/mocks"
	"github.com/jwalitptl/wellness-api/pkg/logger"
	"github.com/jwalitptl/wellness-api/pkg/messaging"
	"github.com/jwalitptl/wellness-api/pkg/metrics"
)

type mockBroker struct{ mock.Mock }

func (m *mockBroker) Publish(ctx context.Context, topic string, message interface{}) error {
	return m.Called(ctx, topic, message).Error(0)
}

func (m *mockBroker) Close() error { return nil }

func newProcessor(repo *mocks.OutboxRepository, broker *mockBroker) (*OutboxProcessor, *metrics.Metrics) {
	m := metrics.New("wellness", "test", prometheus.NewRegistry())
	p := NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
		MaxAttempts:   3,
	}, logger.NewLogger(&logger.Config{Output: io.Discard}), m)
	return p, m
}

func TestProcessBatchPublishes(t *testing.T) {
	repo := &mocks.OutboxRepository{}
	broker := &mockBroker{}
	p, m := newProcessor(repo, broker)

	ev := &model.OutboxEvent{
		ID:          primitive.NewObjectID(),
		EventType:   model.EventVisitCompleted,
		AggregateID: "v1",
		Payload:     model.JSONMap{"id": "v1"},
	}
	repo.On("GetPendingEvents", mock.Anything, 10).Return([]*model.OutboxEvent{ev}, nil)
	repo.On("MarkProcessed", mock.Anything, ev.ID).Return(nil)

	var published messaging.Message
	broker.On("Publish", mock.Anything, model.EventVisitCompleted, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(2).(messaging.Message) }).
		Return(nil)

	require.NoError(t, p.ProcessBatch(context.Background()))
	assert.Equal(t, ev.ID.Hex(), published.ID)
	assert.JSONEq(t, `{"id":"v1"}`, string(published.Payload))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxEventsProcessed))
	repo.AssertExpectations(t)
}

func TestProcessBatchRetriesThenFails(t *testing.T) {
	repo := &mocks.OutboxRepository{}
	broker := &mockBroker{}
	p, m := newProcessor(repo, broker)

	first := &model.OutboxEvent{ID: primitive.NewObjectID(), EventType: model.EventUserInvited, Attempts: 0}
	last := &model.OutboxEvent{ID: primitive.NewObjectID(), EventType: model.EventUserInvited, Attempts: 2}
	repo.On("GetPendingEvents", mock.Anything, 10).Return([]*model.OutboxEvent{first, last}, nil)
	repo.On("MarkFailed", mock.Anything, first.ID, assert.AnError.Error(), false).Return(nil)
	repo.On("MarkFailed", mock.Anything, last.ID, assert.AnError.Error(), true).Return(nil)
	broker.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	require.NoError(t, p.ProcessBatch(context.Background()))
	broker.AssertNumberOfCalls(t, "Publish", 4)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OutboxEventsFailed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OutboxRetries.WithLabelValues(model.EventUserInvited)))
	repo.AssertExpectations(t)
}

func TestProcessBatchStoreError(t *testing.T) {
	repo := &mocks.OutboxRepository{}
	p, _ := newProcessor(repo, &mockBroker{})
	repo.On("GetPendingEvents", mock.Anything, 10).Return(nil, assert.AnError)

	assert.ErrorIs(t, p.ProcessBatch(context.Background()), assert.AnError)
}

func TestRetry(t *testing.T) {
	calls := 0
	err := retry(3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return assert.AnError
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

