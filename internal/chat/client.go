package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hannasage/music-central/pkg/httpclient"
)

// チャットメッセージのロール。OpenAI互換APIの値に合わせる。
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyCompletion はLLMの応答に本文が含まれていないことを表す。
var ErrEmptyCompletion = errors.New("LLMの応答に本文が含まれていません")

// Message はLLMとやり取りする1メッセージ。
type Message struct {
	// Role は発言者のロール（system, user, assistant）。
	Role string `json:"role"`
	// Content は本文。
	Content string `json:"content"`
}

// LLMClient はOpenAI互換のチャット補完APIクライアント。
type LLMClient struct {
	// api はチャット補完APIとの通信用HTTPクライアント。
	api *httpclient.Client
	// model は使用するモデル名。
	model string
	// maxTokens は応答の最大トークン数。
	maxTokens int
	// limiter は分あたりのリクエスト数を制限するレートリミッター。
	limiter *rate.Limiter
}

// NewLLMClient は新しいチャット補完APIクライアントを生成する。
// requestsPerMinuteが0以下の場合はレート制限を行わない。
func NewLLMClient(baseURL, apiKey, model string, maxTokens, requestsPerMinute int) *LLMClient {
	opts := []httpclient.Option{httpclient.WithTimeout(30 * time.Second)}
	if apiKey != "" {
		opts = append(opts, httpclient.WithHeader("Authorization", "Bearer "+apiKey))
	}

	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return &LLMClient{
		api:       httpclient.New(baseURL, opts...),
		model:     model,
		maxTokens: maxTokens,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// completionRequest はチャット補完APIへのリクエストボディ。
type completionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// completionResponse はチャット補完APIのレスポンスボディ。
type completionResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// Complete はメッセージ列を送信してアシスタントの応答本文を返す。
// レートリミッターの待機中にコンテキストが中断された場合はエラーを返す。
func (c *LLMClient) Complete(ctx context.Context, messages []Message) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("レート制限の待機に失敗: %w", err)
	}

	req := completionRequest{Model: c.model, Messages: messages, MaxTokens: c.maxTokens}
	var resp completionResponse
	if err := c.api.PostJSON(ctx, "/chat/completions", req, &resp); err != nil {
		return "", fmt.Errorf("チャット補完リクエストに失敗: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", ErrEmptyCompletion
	}
	return reply, nil
}
