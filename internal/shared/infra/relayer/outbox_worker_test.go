package relayer

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
	sharedEvents "github.com/jamaynor/maynor-kernel/shared/events"
	sharedBus "github.com/jamaynor/maynor-kernel/shared/platform/bus"
	"github.com/jamaynor/maynor-kernel/tests/mocks"
)

type invoiceIssued struct {
	ID    string `json:"id"`
	Total int    `json:"total"`
}

const invoiceIssuedType = "invoice.issued"

func testRegistry() sharedEvents.Registry {
	return sharedEvents.Registry{
		invoiceIssuedType: {Type: reflect.TypeOf(invoiceIssued{}), Topic: "invoice"},
	}
}

func pendingEvent(eventType string) sharedDomain.OutboxEvent {
	return sharedDomain.OutboxEvent{
		ID:          uuid.New(),
		EventType:   eventType,
		AggregateID: "inv-1",
		Payload:     json.RawMessage(`{"id":"inv-1","total":30}`),
	}
}

func TestOutboxWorker_ProcessBatch_Success(t *testing.T) {
	// ARRANGE
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)
	archive := new(mocks.MockArchive)

	evt := pendingEvent(invoiceIssuedType)

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{evt}, nil).Once()
	publisher.On("Publish", mock.Anything, &invoiceIssued{ID: "inv-1", Total: 30}).Return(nil).Once()
	repo.On("MarkOutboxProcessed", mock.Anything, evt.ID).Return(nil).Once()
	archive.On("Archive", mock.Anything, []sharedDomain.OutboxEvent{evt}).Return(nil).Once()

	worker := NewOutboxWorker(repo, publisher, testRegistry(), 0, 10, zap.NewNop(), WithArchive(archive))

	// ACT
	n := worker.ProcessBatch(context.Background())

	// ASSERT
	assert.Equal(t, 1, n)
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
	archive.AssertExpectations(t)
}

func TestOutboxWorker_ProcessBatch_UsesRegistryTopic(t *testing.T) {
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockTopicPublisher)

	evt := pendingEvent(invoiceIssuedType)

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{evt}, nil).Once()
	publisher.On("PublishTo", mock.Anything, "invoice", &invoiceIssued{ID: "inv-1", Total: 30}).Return(nil).Once()
	repo.On("MarkOutboxProcessed", mock.Anything, evt.ID).Return(nil).Once()

	worker := NewOutboxWorker(repo, publisher, testRegistry(), 0, 10, zap.NewNop())

	assert.Equal(t, 1, worker.ProcessBatch(context.Background()))
	publisher.AssertExpectations(t)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestOutboxWorker_ProcessBatch_NoTopicFallsBackToPublish(t *testing.T) {
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockTopicPublisher)
	registry := sharedEvents.Registry{
		invoiceIssuedType: {Type: reflect.TypeOf(invoiceIssued{})},
	}

	evt := pendingEvent(invoiceIssuedType)

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{evt}, nil).Once()
	publisher.On("Publish", mock.Anything, &invoiceIssued{ID: "inv-1", Total: 30}).Return(nil).Once()
	repo.On("MarkOutboxProcessed", mock.Anything, evt.ID).Return(nil).Once()

	worker := NewOutboxWorker(repo, publisher, registry, 0, 10, zap.NewNop())

	assert.Equal(t, 1, worker.ProcessBatch(context.Background()))
	publisher.AssertExpectations(t)
	publisher.AssertNotCalled(t, "PublishTo", mock.Anything, mock.Anything, mock.Anything)
}

func TestOutboxWorker_ProcessBatch_PublisherFailsStopsBatch(t *testing.T) {
	// ARRANGE
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	first, second := pendingEvent(invoiceIssuedType), pendingEvent(invoiceIssuedType)

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{first, second}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("kafka is down")).Once()

	worker := NewOutboxWorker(repo, publisher, testRegistry(), 0, 10, zap.NewNop())

	// ACT
	n := worker.ProcessBatch(context.Background())

	// ASSERT
	assert.Zero(t, n)
	publisher.AssertNumberOfCalls(t, "Publish", 1)
	repo.AssertNotCalled(t, "MarkOutboxProcessed", mock.Anything, mock.Anything)
}

func TestOutboxWorker_ProcessBatch_UnknownEventTypeIsSkipped(t *testing.T) {
	// ARRANGE
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	unknown := pendingEvent("unregistered.event")
	known := pendingEvent(invoiceIssuedType)

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{unknown, known}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.AnythingOfType("*relayer.invoiceIssued")).Return(nil).Once()
	repo.On("MarkOutboxProcessed", mock.Anything, known.ID).Return(nil).Once()

	worker := NewOutboxWorker(repo, publisher, testRegistry(), 0, 10, zap.NewNop())

	// ACT
	n := worker.ProcessBatch(context.Background())

	// ASSERT
	assert.Equal(t, 1, n)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "MarkOutboxProcessed", mock.Anything, unknown.ID)
}

func TestOutboxWorker_ProcessBatch_FetchFails(t *testing.T) {
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)
	repo.On("FetchPendingOutbox", mock.Anything, 10).Return(nil, errors.New("db down")).Once()

	worker := NewOutboxWorker(repo, publisher, testRegistry(), 0, 10, zap.NewNop())

	assert.Zero(t, worker.ProcessBatch(context.Background()))
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestOutboxWorker_ArchiveFailureDoesNotUnmark(t *testing.T) {
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)
	archive := new(mocks.MockArchive)
	evt := pendingEvent(invoiceIssuedType)

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{evt}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("MarkOutboxProcessed", mock.Anything, evt.ID).Return(nil).Once()
	archive.On("Archive", mock.Anything, mock.Anything).Return(errors.New("clickhouse down")).Once()

	worker := NewOutboxWorker(repo, publisher, testRegistry(), 0, 10, zap.NewNop(), WithArchive(archive))

	assert.Equal(t, 1, worker.ProcessBatch(context.Background()))
	repo.AssertExpectations(t)
}

func TestOutboxWorker_StartStopsOnCancel(t *testing.T) {
	repo := new(mocks.MockOutboxRepository)
	repo.On("FetchPendingOutbox", mock.Anything, 10).Return(nil, nil).Maybe()

	worker := NewOutboxWorker(repo, new(mocks.MockPublisher), testRegistry(), 1, 10, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()
	cancel()
	<-done
}

// Verificación estática de que los mocks cumplen las interfaces.
var _ sharedDomain.OutboxRepository = (*mocks.MockOutboxRepository)(nil)
var (
	_ sharedBus.EventPublisher = (*mocks.MockPublisher)(nil)
	_ sharedBus.TopicPublisher = (*mocks.MockTopicPublisher)(nil)
)
var _ Archive = (*mocks.MockArchive)(nil)
