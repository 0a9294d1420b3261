package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
)

const requestTimeout = 30 * time.Second

var errNoChoices = errors.New("completion returned no choices")

// OpenAIClient sends conversations to the OpenAI chat completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
	cb     *gobreaker.CircuitBreaker
	log    *zap.Logger
}

var _ ports.CompletionClient = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client for model. baseURL overrides the API
// endpoint when not empty. cb may be nil.
func NewOpenAIClient(apiKey, model, baseURL string, cb *gobreaker.CircuitBreaker, log *zap.Logger) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		cb:     cb,
		log:    log,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	call := func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    messages,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, errNoChoices
		}
		return resp.Choices[0].Message.Content, nil
	}

	var (
		out interface{}
		err error
	)
	if c.cb != nil {
		out, err = c.cb.Execute(call)
	} else {
		out, err = call()
	}
	if err != nil {
		c.log.Warn("completion request failed",
			zap.String("purpose", req.Purpose),
			zap.String("model", c.model),
			zap.Error(err),
		)
		return "", fmt.Errorf("openai %s completion: %w", req.Purpose, err)
	}
	return out.(string), nil
}
