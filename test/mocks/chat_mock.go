package mocks

import (
	"context"
	"sync"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
)

// MockChatRepository implements ports.ChatRepository in memory with
// per-method error injection.
type MockChatRepository struct {
	mu sync.RWMutex

	messages  []domain.ChatMessage
	summaries []domain.ChatSummary

	RecentCalls []int

	RecentError      error
	TranscriptError  error
	AppendError      error
	SummariesError   error
	SaveSummaryError error
	// FailAppendRole restricts AppendError to messages with this role.
	FailAppendRole domain.ChatRole
}

var _ ports.ChatRepository = (*MockChatRepository)(nil)

func NewMockChatRepository() *MockChatRepository {
	return &MockChatRepository{}
}

func (m *MockChatRepository) Seed(msgs ...domain.ChatMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msgs...)
}

func (m *MockChatRepository) Recent(ctx context.Context, patientID string, limit int) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	m.RecentCalls = append(m.RecentCalls, limit)
	m.mu.Unlock()

	if m.RecentError != nil {
		return nil, m.RecentError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.ChatMessage, 0, limit)
	for i := len(m.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if m.messages[i].PatientID == patientID {
			out = append(out, m.messages[i])
		}
	}
	return out, nil
}

func (m *MockChatRepository) Transcript(ctx context.Context, patientID string) ([]domain.ChatMessage, error) {
	if m.TranscriptError != nil {
		return nil, m.TranscriptError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.ChatMessage, 0)
	for _, msg := range m.messages {
		if msg.PatientID == patientID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *MockChatRepository) Append(ctx context.Context, msg domain.ChatMessage) error {
	if m.AppendError != nil && (m.FailAppendRole == "" || m.FailAppendRole == msg.Role) {
		return m.AppendError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *MockChatRepository) Summaries(ctx context.Context, patientID string) ([]domain.ChatSummary, error) {
	if m.SummariesError != nil {
		return nil, m.SummariesError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.ChatSummary, 0)
	for i := len(m.summaries) - 1; i >= 0; i-- {
		if m.summaries[i].PatientID == patientID {
			out = append(out, m.summaries[i])
		}
	}
	return out, nil
}

func (m *MockChatRepository) SaveSummary(ctx context.Context, summary domain.ChatSummary) error {
	if m.SaveSummaryError != nil {
		return m.SaveSummaryError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, summary)
	return nil
}
