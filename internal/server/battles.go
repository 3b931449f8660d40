package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hannasage/music-central/internal/battle"
)

// startBattleRequest は対戦セッション開始リクエストのJSON構造。
type startBattleRequest struct {
	// TotalRounds は対戦のラウンド数。省略時は既定値を使う。
	TotalRounds int `json:"totalRounds"`
}

// handleStartBattle は対戦セッションの開始を処理するハンドラを返す。
func (s *Server) handleStartBattle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req startBattleRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
				return
			}
		}

		state, err := s.battles.Start(c.Request.Context(), req.TotalRounds)
		if err != nil {
			if errors.Is(err, battle.ErrNotEnoughAlbums) {
				c.JSON(http.StatusConflict, gin.H{"error": "対戦に必要なアルバムが足りません"})
				return
			}
			log.Printf("[Server] 対戦セッションの開始に失敗: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "対戦セッションの開始に失敗しました"})
			return
		}

		c.JSON(http.StatusCreated, state)
	}
}

// handleGetBattle は対戦セッションの現在状態取得を処理するハンドラを返す。
func (s *Server) handleGetBattle() gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := s.battles.Current(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, battle.ErrSessionNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "対戦セッションが見つかりません"})
				return
			}
			log.Printf("[Server] 対戦セッションの取得に失敗: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "対戦セッションの取得に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, state)
	}
}

// voteRequest は対戦投票リクエストのJSON構造。
type voteRequest struct {
	// WinnerID は勝者として選んだアルバムのID。
	WinnerID string `json:"winnerId" binding:"required"`
}

// handleVoteBattle は対戦への投票を処理するハンドラを返す。
// 最終ラウンドへの投票でセッションは完了し、好みプロフィールを返す。
func (s *Server) handleVoteBattle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req voteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		result, err := s.battles.Vote(c.Request.Context(), c.Param("id"), req.WinnerID)
		if err != nil {
			switch {
			case errors.Is(err, battle.ErrSessionNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "対戦セッションが見つかりません"})
			case errors.Is(err, battle.ErrSessionCompleted):
				c.JSON(http.StatusConflict, gin.H{"error": "対戦セッションはすでに完了しています"})
			case errors.Is(err, battle.ErrInvalidWinner):
				c.JSON(http.StatusBadRequest, gin.H{"error": "winnerIdには現在の対戦カードのアルバムを指定してください"})
			case errors.Is(err, battle.ErrNotEnoughAlbums):
				c.JSON(http.StatusConflict, gin.H{"error": "対戦に必要なアルバムが足りません"})
			default:
				log.Printf("[Server] 対戦への投票に失敗: %v", err)
				c.JSON(http.StatusBadGateway, gin.H{"error": "対戦への投票に失敗しました"})
			}
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
