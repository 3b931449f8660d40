package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hannasage/music-central/pkg/httpclient"
)

// ErrAlbumNotFound は指定IDのアルバムが存在しないことを表す。
var ErrAlbumNotFound = errors.New("アルバムが見つかりません")

// Client は外部アルバムデータAPIのクライアント。
// コレクションの追加・編集はデータAPI側の管轄であり、
// このクライアントは読み取り専用のアクセスのみを行う。
type Client struct {
	// api はデータAPIとの通信に使用するHTTPクライアント。
	api *httpclient.Client
}

// NewClient は新しいアルバムデータAPIクライアントを生成する。
// apiKeyが空でない場合、全リクエストにX-API-Keyヘッダーを付与する。
func NewClient(baseURL, apiKey string) *Client {
	var opts []httpclient.Option
	if apiKey != "" {
		opts = append(opts, httpclient.WithHeader("X-API-Key", apiKey))
	}
	return &Client{api: httpclient.New(baseURL, opts...)}
}

// albumListResponse は一覧エンドポイントのレスポンス構造。
type albumListResponse struct {
	// Albums は全アルバムのリスト。
	Albums []Album `json:"albums"`
}

// ListAlbums はコレクションの全アルバムを取得する。
func (c *Client) ListAlbums(ctx context.Context) ([]Album, error) {
	var resp albumListResponse
	if err := c.api.GetJSON(ctx, "/albums", &resp); err != nil {
		return nil, fmt.Errorf("アルバム一覧の取得に失敗: %w", err)
	}
	return resp.Albums, nil
}

// GetAlbum は指定IDのアルバムを取得する。
// 存在しない場合はErrAlbumNotFoundを返す。
func (c *Client) GetAlbum(ctx context.Context, id string) (*Album, error) {
	var album Album
	if err := c.api.GetJSON(ctx, "/albums/"+id, &album); err != nil {
		var apiErr *httpclient.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrAlbumNotFound
		}
		return nil, fmt.Errorf("アルバムの取得に失敗: %w", err)
	}
	return &album, nil
}
