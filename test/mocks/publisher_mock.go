package mocks

import (
	"context"
	"sync"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
)

// MockStaffEventPublisher implements ports.StaffEventPublisher for testing
// the outbox relay without a RabbitMQ connection.
type MockStaffEventPublisher struct {
	mu sync.RWMutex

	PublishedEvents  []ports.StaffRegisteredEvent
	PublishError     error
	PublishCallCount int
}

var _ ports.StaffEventPublisher = (*MockStaffEventPublisher)(nil)

func NewMockStaffEventPublisher() *MockStaffEventPublisher {
	return &MockStaffEventPublisher{
		PublishedEvents: make([]ports.StaffRegisteredEvent, 0),
	}
}

func (m *MockStaffEventPublisher) PublishStaffRegistered(ctx context.Context, evt ports.StaffRegisteredEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishCallCount++
	if m.PublishError != nil {
		return m.PublishError
	}
	m.PublishedEvents = append(m.PublishedEvents, evt)
	return nil
}

// GetPublishedEvents returns a copy of the events published so far.
func (m *MockStaffEventPublisher) GetPublishedEvents() []ports.StaffRegisteredEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]ports.StaffRegisteredEvent, len(m.PublishedEvents))
	copy(events, m.PublishedEvents)
	return events
}

func (m *MockStaffEventPublisher) GetPublishCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PublishCallCount
}
