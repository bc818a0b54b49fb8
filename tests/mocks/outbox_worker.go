package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
)

// MockOutboxRepository simula el acceso a la tabla outbox.
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	events, _ := args.Get(0).([]sharedDomain.OutboxEvent)
	return events, args.Error(1)
}

func (m *MockOutboxRepository) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPublisher simula un publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event any) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockTopicPublisher simula un publisher que acepta el topic del relayer.
type MockTopicPublisher struct {
	MockPublisher
}

func (m *MockTopicPublisher) PublishTo(ctx context.Context, topic string, event any) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

// MockArchive simula el archivo analítico del relayer.
type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Archive(ctx context.Context, events []sharedDomain.OutboxEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}
