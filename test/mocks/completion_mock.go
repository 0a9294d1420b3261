package mocks

import (
	"context"
	"sync"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
)

// MockCompletionClient implements ports.CompletionClient. It answers with
// Reply unless CompleteError is set and records every request.
type MockCompletionClient struct {
	mu sync.Mutex

	Reply         string
	CompleteError error
	Requests      []ports.CompletionRequest
}

var _ ports.CompletionClient = (*MockCompletionClient)(nil)

func NewMockCompletionClient(reply string) *MockCompletionClient {
	return &MockCompletionClient{Reply: reply}
}

func (m *MockCompletionClient) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if m.CompleteError != nil {
		return "", m.CompleteError
	}
	return m.Reply, nil
}

// LastRequest returns the most recent request, or false if none was made.
func (m *MockCompletionClient) LastRequest() (ports.CompletionRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return ports.CompletionRequest{}, false
	}
	return m.Requests[len(m.Requests)-1], true
}
