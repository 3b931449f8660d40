package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIError は2xx以外のHTTPレスポンスを表すエラー。
// 呼び出し側はStatusCodeを見て404等のハンドリングを行える。
type APIError struct {
	// StatusCode はレスポンスのHTTPステータスコード。
	StatusCode int
	// Body はレスポンスボディ（診断用）。
	Body string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("HTTPエラー: status=%d, body=%s", e.StatusCode, e.Body)
}

// defaultTimeout はHTTPリクエストの既定のタイムアウト。
const defaultTimeout = 30 * time.Second

// Client は外部APIとの通信用HTTPクライアント。
// ベースURL、タイムアウト、固定ヘッダーの設定を持つ。
type Client struct {
	// httpClient は実際の送受信を担うクライアント。
	httpClient *http.Client
	// baseURL は接続先APIのベースURL。
	baseURL string
	// headers は全リクエストに付与する固定ヘッダー（APIキー等）。
	headers map[string]string
}

// Option はClientの生成時オプション。
type Option func(*Client)

// WithHeader は全リクエストに付与する固定ヘッダーを追加する。
// 外部APIのAPIキー認証等に使用する。
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithTimeout はHTTPリクエストのタイムアウトを設定する。
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New は新しい外部API通信用HTTPクライアントを生成する。
// baseURLには接続先APIのベースURL（例: "https://api.example.com/v1"）を指定する。
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    baseURL,
		headers:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostJSON はbodyをJSONとしてPOSTし、レスポンスをresultへデコードする。
func (c *Client) PostJSON(ctx context.Context, path string, body any, result any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, result)
}

// GetJSON は指定パスをGETし、レスポンスをresultへデコードする。
func (c *Client) GetJSON(ctx context.Context, path string, result any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, result)
}

// encodeBody はリクエストボディをJSONへシリアライズする。
// bodyがnilの場合はボディ無しを表すnilを返す。
func encodeBody(body any) (io.Reader, error) {
	if body == nil {
		return nil, nil
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
	}
	return bytes.NewReader(jsonBody), nil
}

// doJSON はJSONリクエストの送信からレスポンスのデコードまでを行う。
// 2xx以外のレスポンスは*APIErrorとして返す。
func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	bodyReader, err := encodeBody(body)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("リクエストの送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("レスポンスのデコードに失敗: %w", err)
		}
	}
	return nil
}
