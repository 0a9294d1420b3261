package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/validation"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/metrics"
)

const (
	DefaultChatHistoryLimit = 10

	// ChatFallbackReply is shown when the completion service fails.
	ChatFallbackReply = "申し訳ございません。現在サービスに問題が発生しています。しばらく後にお試しください。"

	emptyChatReply    = "すみません、回答を生成できませんでした。"
	emptySummaryReply = "要約を生成できませんでした。"

	chatSystemPrompt = `あなたは経験豊富な歯科医師です。患者からの歯科に関する相談に対して、専門的で分かりやすいアドバイスを提供してください。

重要な注意点：
- 診断は行わず、一般的な情報提供とアドバイスに留めてください
- 緊急性がある症状の場合は、すぐに歯科医院を受診するよう促してください
- 薬の処方や具体的な治療の指示は避けてください
- 丁寧で親しみやすい口調で回答してください
- 回答は日本語で行ってください`

	summarySystemPrompt = `以下の患者とAI歯科医師の会話履歴を要約してください。以下の点に注意してください：

- 患者の主な症状や悩み
- 提供されたアドバイスの要点
- 今後の推奨事項
- 緊急性や重要な注意点

要約は歯科衛生士が読みやすい形式で、患者の状態を理解しやすいようまとめてください。`

	chatMaxTokens      = 1000
	chatTemperature    = 0.7
	summaryMaxTokens   = 500
	summaryTemperature = 0.3
)

type ChatService struct {
	chat         ports.ChatRepository
	completion   ports.CompletionClient
	historyLimit int
	metrics      *metrics.Collector
	log          *zap.Logger
	now          func() time.Time
}

var _ ports.ChatService = (*ChatService)(nil)

func NewChatService(
	chat ports.ChatRepository,
	completion ports.CompletionClient,
	historyLimit int,
	collector *metrics.Collector,
	log *zap.Logger,
) *ChatService {
	if historyLimit <= 0 {
		historyLimit = DefaultChatHistoryLimit
	}
	return &ChatService{
		chat:         chat,
		completion:   completion,
		historyLimit: historyLimit,
		metrics:      collector,
		log:          log,
		now:          time.Now,
	}
}

// Send relays a patient's message to the completion service with the recent
// conversation as context, and records both sides of the exchange.
//
// The user message is stored before the completion call, so a completion
// failure never loses it; the caller then gets ChatFallbackReply.
func (s *ChatService) Send(ctx context.Context, in validation.ChatRequest) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	content := strings.TrimSpace(in.Message)

	recent, err := s.chat.Recent(ctx, in.PatientID, s.historyLimit)
	if err != nil {
		s.log.Warn("chat history unavailable, continuing without context",
			zap.String("patient_id", in.PatientID), zap.Error(err))
		recent = nil
	}

	messages := make([]ports.CompletionMessage, 0, len(recent)+1)
	for i := len(recent) - 1; i >= 0; i-- {
		messages = append(messages, ports.CompletionMessage{Role: recent[i].Role, Content: recent[i].Content})
	}
	messages = append(messages, ports.CompletionMessage{Role: domain.ChatRoleUser, Content: content})

	userMsg := domain.ChatMessage{
		ID:        uuid.NewString(),
		PatientID: in.PatientID,
		Role:      domain.ChatRoleUser,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.chat.Append(ctx, userMsg); err != nil {
		return "", domain.External("save user message", err)
	}

	reply, err := s.completion.Complete(ctx, ports.CompletionRequest{
		Purpose:     ports.CompletionPurposeChat,
		System:      chatSystemPrompt,
		Messages:    messages,
		MaxTokens:   chatMaxTokens,
		Temperature: chatTemperature,
	})
	s.metrics.Completion(ports.CompletionPurposeChat, err)
	switch {
	case err != nil:
		s.log.Error("chat completion failed", zap.String("patient_id", in.PatientID), zap.Error(err))
		if s.metrics != nil {
			s.metrics.ChatFallbacks.Inc()
		}
		reply = ChatFallbackReply
	case strings.TrimSpace(reply) == "":
		reply = emptyChatReply
	}

	assistantMsg := domain.ChatMessage{
		ID:        uuid.NewString(),
		PatientID: in.PatientID,
		Role:      domain.ChatRoleAssistant,
		Content:   reply,
		CreatedAt: s.now(),
	}
	if err := s.chat.Append(ctx, assistantMsg); err != nil {
		s.log.Error("failed to save assistant message", zap.String("patient_id", in.PatientID), zap.Error(err))
	}

	return reply, nil
}

func (s *ChatService) Transcript(ctx context.Context, patientID string) ([]domain.ChatMessage, error) {
	msgs, err := s.chat.Transcript(ctx, patientID)
	if err != nil {
		return nil, domain.External("load transcript", err)
	}
	return msgs, nil
}

func (s *ChatService) Summaries(ctx context.Context, patientID string) ([]domain.ChatSummary, error) {
	summaries, err := s.chat.Summaries(ctx, patientID)
	if err != nil {
		return nil, domain.External("load summaries", err)
	}
	return summaries, nil
}

// GenerateSummary asks the completion service to condense a patient's whole
// transcript for the hygienist and stores the result under the actor's name.
func (s *ChatService) GenerateSummary(ctx context.Context, actor *domain.Session, patientID string) (*domain.ChatSummary, error) {
	if !actor.IsStaff() {
		return nil, domain.ErrForbidden
	}

	transcript, err := s.Transcript(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if len(transcript) == 0 {
		var errs validation.Errors
		errs.Add("transcript", "has no messages to summarize")
		return nil, errs.Err()
	}

	lines := make([]string, 0, len(transcript))
	for _, m := range transcript {
		speaker := "AI歯科医師"
		if m.Role == domain.ChatRoleUser {
			speaker = "患者"
		}
		lines = append(lines, speaker+": "+m.Content)
	}

	text, err := s.completion.Complete(ctx, ports.CompletionRequest{
		Purpose: ports.CompletionPurposeSummary,
		System:  summarySystemPrompt,
		Messages: []ports.CompletionMessage{
			{Role: domain.ChatRoleUser, Content: strings.Join(lines, "\n\n")},
		},
		MaxTokens:   summaryMaxTokens,
		Temperature: summaryTemperature,
	})
	s.metrics.Completion(ports.CompletionPurposeSummary, err)
	if err != nil {
		return nil, domain.External("generate summary", err)
	}
	if strings.TrimSpace(text) == "" {
		text = emptySummaryReply
	}

	summary := domain.ChatSummary{
		ID:          uuid.NewString(),
		PatientID:   patientID,
		SummaryText: text,
		GeneratedAt: s.now(),
		GeneratedBy: actor.Staff.ID,
	}
	if err := s.chat.SaveSummary(ctx, summary); err != nil {
		return nil, domain.External("save summary", err)
	}

	s.log.Info("chat summary generated",
		zap.String("patient_id", patientID),
		zap.String("staff_id", actor.Staff.ID),
	)
	return &summary, nil
}
