package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sharedEventsInfra "github.com/jamaynor/maynor-kernel/internal/shared/infra/events"
	taskDomain "github.com/jamaynor/maynor-kernel/internal/task/domain"
	"github.com/jamaynor/maynor-kernel/tests/mocks"
)

func TestTaskConsumer_EvictsOnChange(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	key := taskDomain.TaskCacheKeyByID(id)
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		event     any
		wantEvict bool
	}{
		{name: "created", event: taskDomain.TaskCreated{ID: id, Title: "t", Status: taskDomain.StatusPending, OccurredOn: now}, wantEvict: false},
		{name: "updated", event: taskDomain.TaskUpdated{ID: id, Title: "t2", OccurredOn: now}, wantEvict: true},
		{name: "completed", event: taskDomain.TaskCompleted{ID: id, OccurredOn: now}, wantEvict: true},
		{name: "failed", event: taskDomain.TaskFailed{ID: id, Reason: "x", OccurredOn: now}, wantEvict: true},
		{name: "deleted", event: taskDomain.TaskDeleted{ID: id, OccurredOn: now}, wantEvict: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			cache := mocks.NewDummyCache()
			require.NoError(t, cache.Set(ctx, key, map[string]string{"id": id.String()}, 60))
			msg, err := sharedEventsInfra.NewMessage(tt.event)
			require.NoError(t, err)

			// Act
			NewTaskConsumer(cache, zap.NewNop()).HandleMessage(ctx, msg)

			// Assert
			assert.Equal(t, !tt.wantEvict, cache.Has(key))
		})
	}
}

func TestTaskConsumer_IgnoresUnknownAndBroken(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	key := taskDomain.TaskCacheKeyByID(id)
	cache := mocks.NewDummyCache()
	require.NoError(t, cache.Set(ctx, key, "cached", 60))
	consumer := NewTaskConsumer(cache, zap.NewNop())

	consumer.HandleMessage(ctx, sharedEventsInfra.Message{EventType: "user.created", Value: []byte(`{}`)})
	consumer.HandleMessage(ctx, sharedEventsInfra.Message{EventType: taskDomain.EventTaskDeleted, Value: []byte(`not json`)})

	assert.True(t, cache.Has(key))
}

func TestTaskConsumer_OverInMemoryBus(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	id := uuid.New()
	key := taskDomain.TaskCacheKeyByID(id)
	cache := mocks.NewDummyCache()
	require.NoError(t, cache.Set(ctx, key, "cached", 60))

	bus := sharedEventsInfra.NewInMemoryEventBus(taskDomain.TaskTopic)
	sub := bus.Subscribe(8)
	done := make(chan struct{})
	go func() {
		sharedEventsInfra.ConsumeChan(ctx, sub, NewTaskConsumer(cache, zap.NewNop()))
		close(done)
	}()

	// Act
	require.NoError(t, bus.Publish(ctx, &taskDomain.TaskCompleted{ID: id}))
	bus.Close()
	<-done

	// Assert
	assert.False(t, cache.Has(key))
}

func TestTaskConsumer_NilCache(t *testing.T) {
	msg, err := sharedEventsInfra.NewMessage(taskDomain.TaskDeleted{ID: uuid.New()})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		NewTaskConsumer(nil, zap.NewNop()).HandleMessage(context.Background(), msg)
	})
}
