package ports

import (
	"context"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
)

const (
	CompletionPurposeChat    = "chat"
	CompletionPurposeSummary = "summary"
)

type CompletionMessage struct {
	Role    domain.ChatRole
	Content string
}

type CompletionRequest struct {
	Purpose     string
	System      string
	Messages    []CompletionMessage
	MaxTokens   int
	Temperature float32
}

// CompletionClient forwards a conversation to a language-model service.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
