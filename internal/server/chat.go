package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hannasage/music-central/internal/chat"
)

// chatRequest はAIチャットリクエストのJSON構造。
type chatRequest struct {
	// Message はユーザーからの質問文。
	Message string `json:"message" binding:"required"`
	// ConversationID は継続する会話のID。省略時は新しい会話を開始する。
	ConversationID string `json:"conversationId"`
}

// handleChat はAIアシスタントとの対話を処理するハンドラを返す。
func (s *Server) handleChat() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		reply, err := s.assistant.Chat(c.Request.Context(), req.ConversationID, req.Message)
		if err != nil {
			switch {
			case errors.Is(err, chat.ErrEmptyMessage):
				c.JSON(http.StatusBadRequest, gin.H{"error": "messageを入力してください"})
			case errors.Is(err, chat.ErrConversationNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "会話が見つかりません"})
			default:
				log.Printf("[Server] アシスタント応答の生成に失敗: %v", err)
				c.JSON(http.StatusBadGateway, gin.H{"error": "AIアシスタントとの通信に失敗しました"})
			}
			return
		}

		c.JSON(http.StatusOK, reply)
	}
}
