package battle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	// StatusActive は進行中のセッション状態を表す。
	StatusActive = "active"
	// StatusCompleted は全ラウンドの投票が終わったセッション状態を表す。
	StatusCompleted = "completed"
)

var (
	// ErrSessionNotFound は指定IDのセッションが存在しないことを表す。
	ErrSessionNotFound = errors.New("対戦セッションが見つかりません")
	// ErrRoundNotFound は指定のラウンドが存在しないことを表す。
	ErrRoundNotFound = errors.New("対戦ラウンドが見つかりません")
)

// Session は対戦セッションのレコード。
type Session struct {
	// ID はセッションの一意識別子（UUID）。
	ID string `db:"id" json:"id"`
	// Status はセッションの状態（active, completed）。
	Status string `db:"status" json:"status"`
	// CurrentRound は現在のラウンド番号（1始まり）。
	CurrentRound int `db:"current_round" json:"currentRound"`
	// TotalRounds は総ラウンド数。
	TotalRounds int `db:"total_rounds" json:"totalRounds"`
	// CreatedAt はセッションの作成日時。
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	// UpdatedAt はセッションの更新日時。
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Round は対戦ラウンドのレコード。
type Round struct {
	// ID はラウンドの一意識別子（UUID）。
	ID string `db:"id" json:"id"`
	// SessionID は所属するセッションのID。
	SessionID string `db:"session_id" json:"sessionId"`
	// RoundNumber はラウンド番号（1始まり）。
	RoundNumber int `db:"round_number" json:"roundNumber"`
	// AlbumAID は対戦カードの一方のアルバムID。
	AlbumAID string `db:"album_a_id" json:"albumAId"`
	// AlbumBID は対戦カードのもう一方のアルバムID。
	AlbumBID string `db:"album_b_id" json:"albumBId"`
	// WinnerID は勝者のアルバムID。未投票の場合はnil。
	WinnerID *string `db:"winner_id" json:"winnerId"`
	// CreatedAt はラウンドの作成日時。
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Store は対戦ゲームの永続化を担うストア。
type Store struct {
	// db は背後のデータベース接続。
	db *sqlx.DB
}

// NewStore は新しい対戦ゲームストアを生成する。
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// CreateSession はセッションとその先頭ラウンドを同一トランザクションで作成する。
func (s *Store) CreateSession(ctx context.Context, session *Session, firstRound *Round) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO battle_sessions (id, status, current_round, total_rounds, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.Status, session.CurrentRound, session.TotalRounds,
		session.CreatedAt, session.UpdatedAt,
	); err != nil {
		return fmt.Errorf("セッションの作成に失敗: %w", err)
	}

	if err := insertRound(ctx, tx, firstRound); err != nil {
		return err
	}
	return tx.Commit()
}

// insertRound はラウンドレコードを挿入する共通処理。
func insertRound(ctx context.Context, tx *sqlx.Tx, round *Round) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO battle_rounds (id, session_id, round_number, album_a_id, album_b_id, winner_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		round.ID, round.SessionID, round.RoundNumber, round.AlbumAID, round.AlbumBID,
		round.WinnerID, round.CreatedAt,
	); err != nil {
		return fmt.Errorf("ラウンドの作成に失敗: %w", err)
	}
	return nil
}

// GetSession は指定IDのセッションを取得する。
// 存在しない場合はErrSessionNotFoundを返す。
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	var session Session
	err := s.db.GetContext(ctx, &session,
		"SELECT * FROM battle_sessions WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("セッションの取得に失敗: %w", err)
	}
	return &session, nil
}

// GetRound は指定セッションの指定番号のラウンドを取得する。
// 存在しない場合はErrRoundNotFoundを返す。
func (s *Store) GetRound(ctx context.Context, sessionID string, number int) (*Round, error) {
	var round Round
	err := s.db.GetContext(ctx, &round,
		"SELECT * FROM battle_rounds WHERE session_id = ? AND round_number = ?",
		sessionID, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("ラウンドの取得に失敗: %w", err)
	}
	return &round, nil
}

// ListRounds は指定セッションの全ラウンドをラウンド番号順で返す。
func (s *Store) ListRounds(ctx context.Context, sessionID string) ([]Round, error) {
	rounds := make([]Round, 0)
	err := s.db.SelectContext(ctx, &rounds,
		"SELECT * FROM battle_rounds WHERE session_id = ? ORDER BY round_number",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("ラウンド一覧の取得に失敗: %w", err)
	}
	return rounds, nil
}

// RecordVoteAndAdvance は勝者の記録、次ラウンドの作成、セッションの進行を
// 同一トランザクションで行う。
func (s *Store) RecordVoteAndAdvance(ctx context.Context, roundID, winnerID string, next *Round) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE battle_rounds SET winner_id = ? WHERE id = ?",
		winnerID, roundID,
	); err != nil {
		return fmt.Errorf("勝者の記録に失敗: %w", err)
	}

	if err := insertRound(ctx, tx, next); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE battle_sessions SET current_round = ?, updated_at = ? WHERE id = ?",
		next.RoundNumber, time.Now().UTC(), next.SessionID,
	); err != nil {
		return fmt.Errorf("セッションの進行に失敗: %w", err)
	}
	return tx.Commit()
}

// RecordVoteAndComplete は最終ラウンドの勝者の記録とセッションの終了を
// 同一トランザクションで行う。
func (s *Store) RecordVoteAndComplete(ctx context.Context, roundID, winnerID, sessionID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE battle_rounds SET winner_id = ? WHERE id = ?",
		winnerID, roundID,
	); err != nil {
		return fmt.Errorf("勝者の記録に失敗: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE battle_sessions SET status = ?, updated_at = ? WHERE id = ?",
		StatusCompleted, time.Now().UTC(), sessionID,
	); err != nil {
		return fmt.Errorf("セッションの終了に失敗: %w", err)
	}
	return tx.Commit()
}
