package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type orderPlaced struct {
	ID string `json:"id"`
}

func (orderPlaced) EventName() string      { return "order.placed" }
func (orderPlaced) Topic() string          { return "orders" }
func (e orderPlaced) PartitionKey() string { return e.ID }

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	// Arrange
	writer := new(mockWriter)
	var sent []kafka.Message
	writer.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]kafka.Message) }).
		Return(nil).Once()
	pub := NewKafkaPublisher(writer, "default", zap.NewNop())

	// Act
	err := pub.Publish(context.Background(), &orderPlaced{ID: "o-1"})

	// Assert
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "orders", sent[0].Topic)
	assert.Equal(t, []byte("o-1"), sent[0].Key)
	assert.JSONEq(t, `{"id":"o-1"}`, string(sent[0].Value))
	assert.Equal(t, EventTypeHeader, sent[0].Headers[0].Key)
	assert.Equal(t, "order.placed", string(sent[0].Headers[0].Value))
	writer.AssertExpectations(t)
}

func TestKafkaPublisher_DefaultTopicAndError(t *testing.T) {
	writer := new(mockWriter)
	var sent []kafka.Message
	writer.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]kafka.Message) }).
		Return(errors.New("broker down")).Once()
	pub := NewKafkaPublisher(writer, "default", zap.NewNop())

	err := pub.Publish(context.Background(), map[string]string{"a": "b"})

	assert.EqualError(t, err, "broker down")
	require.Len(t, sent, 1)
	assert.Equal(t, "default", sent[0].Topic)
	assert.Nil(t, sent[0].Key)
}

func TestKafkaPublisher_PublishToOverridesEventTopic(t *testing.T) {
	writer := new(mockWriter)
	var sent []kafka.Message
	writer.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]kafka.Message) }).
		Return(nil).Twice()
	pub := NewKafkaPublisher(writer, "default", zap.NewNop())

	require.NoError(t, pub.PublishTo(context.Background(), "orders.v2", orderPlaced{ID: "o-1"}))
	require.Len(t, sent, 1)
	assert.Equal(t, "orders.v2", sent[0].Topic)
	assert.Equal(t, []byte("o-1"), sent[0].Key)

	require.NoError(t, pub.PublishTo(context.Background(), "", orderPlaced{ID: "o-2"}))
	require.Len(t, sent, 1)
	assert.Equal(t, "orders", sent[0].Topic)
	writer.AssertExpectations(t)
}

func TestInMemoryEventBus(t *testing.T) {
	bus := NewInMemoryEventBus("orders")
	sub := bus.Subscribe(1)

	require.NoError(t, bus.Publish(context.Background(), orderPlaced{ID: "o-1"}))
	msg := <-sub
	assert.Equal(t, "order.placed", msg.EventType)
	assert.Equal(t, "o-1", msg.Key)
	assert.JSONEq(t, `{"id":"o-1"}`, string(msg.Value))

	// buffer lleno: se descarta sin bloquear
	require.NoError(t, bus.Publish(context.Background(), orderPlaced{ID: "o-2"}))
	require.NoError(t, bus.Publish(context.Background(), orderPlaced{ID: "o-3"}))
	assert.JSONEq(t, `{"id":"o-2"}`, string((<-sub).Value))

	bus.Close()
	_, open := <-sub
	assert.False(t, open)
	assert.NoError(t, bus.Publish(context.Background(), orderPlaced{ID: "o-4"}))
	assert.NotPanics(t, bus.Close)
}

type recordingHandler struct {
	mu   sync.Mutex
	msgs []Message
}

func (h *recordingHandler) HandleMessage(ctx context.Context, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
}

func (h *recordingHandler) received() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.msgs...)
}

type mockReader struct {
	mock.Mock
}

func (m *mockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	args := m.Called(ctx)
	return args.Get(0).(kafka.Message), args.Error(1)
}

func TestConsumerAdapter_Run(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := new(mockReader)
	reader.On("ReadMessage", mock.Anything).Return(kafka.Message{
		Key:     []byte("o-1"),
		Value:   []byte(`{"id":"o-1"}`),
		Headers: []kafka.Header{{Key: EventTypeHeader, Value: []byte("order.placed")}},
	}, nil).Once()
	reader.On("ReadMessage", mock.Anything).Return(kafka.Message{}, errors.New("rebalance")).Once()
	reader.On("ReadMessage", mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(kafka.Message{}, context.Canceled)

	handler := &recordingHandler{}

	// Act
	NewConsumerAdapter(reader, handler, zap.NewNop()).Run(ctx)

	// Assert
	got := handler.received()
	require.Len(t, got, 1)
	assert.Equal(t, Message{EventType: "order.placed", Key: "o-1", Value: []byte(`{"id":"o-1"}`)}, got[0])
}

func TestConsumeChan_StopsOnClose(t *testing.T) {
	bus := NewInMemoryEventBus("orders")
	sub := bus.Subscribe(4)
	handler := &recordingHandler{}

	require.NoError(t, bus.Publish(context.Background(), orderPlaced{ID: "o-1"}))
	require.NoError(t, bus.Publish(context.Background(), orderPlaced{ID: "o-2"}))
	bus.Close()

	ConsumeChan(context.Background(), sub, handler)

	got := handler.received()
	require.Len(t, got, 2)
	assert.Equal(t, "o-2", got[1].Key)
}
