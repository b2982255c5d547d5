package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/wellness-api/pkg/messaging"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

func TestPublishSetsTopicAndKey(t *testing.T) {
	w := new(mockWriter)
	logger := zerolog.Nop()
	b := newBroker(w, "wellness.", &logger)

	var written []kafka.Message
	w.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { written = args.Get(1).([]kafka.Message) }).
		Return(nil)

	msg := messaging.Message{ID: "evt-1", Type: "visit.completed", Payload: json.RawMessage(`{"a":1}`)}
	require.NoError(t, b.Publish(context.Background(), "visit.completed", msg))

	require.Len(t, written, 1)
	assert.Equal(t, "wellness.visit.completed", written[0].Topic)
	assert.Equal(t, []byte("evt-1"), written[0].Key)
	assert.JSONEq(t, `{"id":"evt-1","type":"visit.completed","payload":{"a":1}}`, string(written[0].Value))
	w.AssertExpectations(t)
}

func TestPublishError(t *testing.T) {
	w := new(mockWriter)
	logger := zerolog.Nop()
	b := newBroker(w, "", &logger)

	w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("leader not available"))

	err := b.Publish(context.Background(), "user.invited", map[string]string{"email": "a@b.c"})
	assert.ErrorContains(t, err, "leader not available")
}

func TestNewKafkaBrokerRequiresBrokers(t *testing.T) {
	logger := zerolog.Nop()
	_, err := NewKafkaBroker(Config{}, &logger)
	assert.Error(t, err)
}
