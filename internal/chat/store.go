package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrConversationNotFound は指定IDの会話が存在しないことを表す。
var ErrConversationNotFound = errors.New("会話が見つかりません")

// Conversation は一連のチャットのまとまりを表すレコード。
type Conversation struct {
	// ID は会話の一意識別子（UUID）。
	ID string `db:"id" json:"id"`
	// CreatedAt は会話の作成日時。
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// StoredMessage は永続化されたチャットメッセージのレコード。
type StoredMessage struct {
	// ID はメッセージの一意識別子（UUID）。
	ID string `db:"id" json:"id"`
	// ConversationID は所属する会話のID。
	ConversationID string `db:"conversation_id" json:"conversationId"`
	// Role は発言者のロール（user, assistant）。
	Role string `db:"role" json:"role"`
	// Content は本文。
	Content string `db:"content" json:"content"`
	// CreatedAt はメッセージの作成日時。
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Store はチャットの会話とメッセージの永続化を担うストア。
type Store struct {
	// db は背後のデータベース接続。
	db *sqlx.DB
}

// NewStore は新しいチャットストアを生成する。
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// CreateConversation は新しい会話を作成する。
func (s *Store) CreateConversation(ctx context.Context, conv *Conversation) error {
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO chat_conversations (id, created_at) VALUES (?, ?)",
		conv.ID, conv.CreatedAt,
	); err != nil {
		return fmt.Errorf("会話の作成に失敗: %w", err)
	}
	return nil
}

// GetConversation は指定IDの会話を取得する。
// 存在しない場合はErrConversationNotFoundを返す。
func (s *Store) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	err := s.db.GetContext(ctx, &conv,
		"SELECT * FROM chat_conversations WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("会話の取得に失敗: %w", err)
	}
	return &conv, nil
}

// AppendMessages は会話にメッセージを追記する。
// 複数件は同一トランザクションで書き込む。
func (s *Store) AppendMessages(ctx context.Context, messages ...*StoredMessage) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗: %w", err)
	}
	defer tx.Rollback()

	for _, msg := range messages {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_messages (id, conversation_id, role, content, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt,
		); err != nil {
			return fmt.Errorf("メッセージの追記に失敗: %w", err)
		}
	}
	return tx.Commit()
}

// RecentMessages は指定会話の直近limit件を古い順で返す。
func (s *Store) RecentMessages(ctx context.Context, conversationID string, limit int) ([]StoredMessage, error) {
	messages := make([]StoredMessage, 0)
	err := s.db.SelectContext(ctx, &messages, `
		SELECT * FROM chat_messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("メッセージ履歴の取得に失敗: %w", err)
	}

	// 新しい順で取得したものを古い順へ並べ替える
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
