package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hannasage/music-central/internal/catalog"
)

// historyLimit はLLMへ渡す履歴メッセージ数の上限。
const historyLimit = 20

// ErrEmptyMessage は空のメッセージが送信されたことを表す。
var ErrEmptyMessage = errors.New("メッセージが空です")

// Completer はチャット補完の呼び出し先。
type Completer interface {
	// Complete はメッセージ列からアシスタントの応答本文を生成する。
	Complete(ctx context.Context, messages []Message) (string, error)
}

// AlbumSource はシステムプロンプトに使うアルバム一覧の取得先。
type AlbumSource interface {
	// ListAlbums は全アルバムを返す。
	ListAlbums(ctx context.Context) ([]catalog.Album, error)
}

// Assistant はコレクションを踏まえた音楽推薦チャットを提供する。
type Assistant struct {
	// store はチャットの永続化ストア。
	store *Store
	// llm はチャット補完の呼び出し先。
	llm Completer
	// albums はシステムプロンプトに使うアルバムの取得先。
	albums AlbumSource
}

// NewAssistant は新しい推薦チャットアシスタントを生成する。
func NewAssistant(store *Store, llm Completer, albums AlbumSource) *Assistant {
	return &Assistant{store: store, llm: llm, albums: albums}
}

// Reply はチャット応答の結果を表す。
type Reply struct {
	// ConversationID は応答が属する会話のID。
	ConversationID string `json:"conversationId"`
	// Message はアシスタントの応答本文。
	Message string `json:"message"`
}

// Chat はユーザーのメッセージに対する応答を生成する。
// conversationIDが空の場合は新しい会話を開始する。履歴はhistoryLimit件まで
// LLMへ引き継ぎ、ユーザーとアシスタント両方の発言を永続化する。
func (a *Assistant) Chat(ctx context.Context, conversationID, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	// 応答が得られるまで新しい会話は永続化しない
	var history []StoredMessage
	newConversation := conversationID == ""
	if newConversation {
		conversationID = uuid.New().String()
	} else {
		if _, err := a.store.GetConversation(ctx, conversationID); err != nil {
			return nil, err
		}
		var err error
		history, err = a.store.RecentMessages(ctx, conversationID, historyLimit)
		if err != nil {
			return nil, err
		}
	}

	albums, err := a.albums.ListAlbums(ctx)
	if err != nil {
		// コレクションが取得できなくてもプロンプトなしで応答は返せる
		log.Printf("[Chat] アルバム一覧の取得に失敗: %v", err)
		albums = nil
	}

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: systemPrompt(albums)})
	for _, h := range history {
		messages = append(messages, Message{Role: h.Role, Content: h.Content})
	}
	messages = append(messages, Message{Role: RoleUser, Content: message})

	sentAt := time.Now().UTC()
	reply, err := a.llm.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("アシスタント応答の生成に失敗: %w", err)
	}

	if newConversation {
		conv := &Conversation{ID: conversationID, CreatedAt: sentAt}
		if err := a.store.CreateConversation(ctx, conv); err != nil {
			return nil, err
		}
	}

	userMsg := &StoredMessage{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           RoleUser,
		Content:        message,
		CreatedAt:      sentAt,
	}
	assistantMsg := &StoredMessage{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           RoleAssistant,
		Content:        reply,
		CreatedAt:      time.Now().UTC(),
	}
	if err := a.store.AppendMessages(ctx, userMsg, assistantMsg); err != nil {
		return nil, err
	}

	return &Reply{ConversationID: conversationID, Message: reply}, nil
}
