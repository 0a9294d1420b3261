package completion

import (
	"context"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
)

const (
	CannedChatReply    = "こちらは開発環境用のダミーレスポンスです。実際のAI相談機能を使用するには、OpenAI APIキーを設定してください。"
	CannedSummaryReply = "開発環境用のダミー要約です。実際の要約機能を使用するには、OpenAI APIキーを設定してください。"
)

// CannedClient answers without calling any service. It is used when no API
// key is configured.
type CannedClient struct{}

var _ ports.CompletionClient = CannedClient{}

func (CannedClient) Complete(_ context.Context, req ports.CompletionRequest) (string, error) {
	if req.Purpose == ports.CompletionPurposeSummary {
		return CannedSummaryReply, nil
	}
	return CannedChatReply, nil
}
