package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hannasage/music-central/internal/notify"
)

// notificationListResponse は通知一覧のJSONレスポンス構造。
type notificationListResponse struct {
	// Notifications は保持中の全通知（挿入順）。
	Notifications []notify.Notification `json:"notifications"`
	// UnacknowledgedCount は未確認の通知件数。
	UnacknowledgedCount int `json:"unacknowledgedCount"`
	// Total は保持中の通知の総数。
	Total int `json:"total"`
}

// handleListNotifications は通知一覧取得を処理するハンドラを返す。
// 一覧と件数は同一スナップショットから計算するため、返り値の中で矛盾しない。
func (s *Server) handleListNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		notifications := s.notifications.ListPending()

		unacknowledged := 0
		for _, n := range notifications {
			if !n.Acknowledged {
				unacknowledged++
			}
		}

		c.JSON(http.StatusOK, notificationListResponse{
			Notifications:       notifications,
			UnacknowledgedCount: unacknowledged,
			Total:               len(notifications),
		})
	}
}

// acknowledgeRequest は通知確認リクエストのJSON構造。
// NotificationIDsによる個別確認とAcknowledgeAllによる一括確認は排他であり、
// どちらか一方だけを指定する。
type acknowledgeRequest struct {
	// NotificationIDs は確認済みにする通知のID一覧。
	NotificationIDs []string `json:"notificationIds"`
	// AcknowledgeAll は全通知を一括で確認済みにするフラグ。
	AcknowledgeAll bool `json:"acknowledgeAll"`
}

// handleAcknowledgeNotifications は通知の確認を処理するハンドラを返す。
// 存在しないIDは黙って読み飛ばし、確認できた件数だけを返す。
func (s *Server) handleAcknowledgeNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req acknowledgeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		hasIDs := req.NotificationIDs != nil
		if hasIDs == req.AcknowledgeAll {
			c.JSON(http.StatusBadRequest, gin.H{"error": "notificationIdsとacknowledgeAllはどちらか一方だけを指定してください"})
			return
		}

		if req.AcknowledgeAll {
			count := s.notifications.AcknowledgeAll()
			c.JSON(http.StatusOK, gin.H{"success": true, "acknowledgedCount": count})
			return
		}

		count := 0
		for _, id := range req.NotificationIDs {
			if s.notifications.Acknowledge(id) {
				count++
			}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "acknowledgedCount": count})
	}
}

// handleClearNotifications は確認済み通知の掃除を処理するハンドラを返す。
func (s *Server) handleClearNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		count := s.notifications.ClearAcknowledged()
		c.JSON(http.StatusOK, gin.H{"success": true, "clearedCount": count})
	}
}

// enqueueNotificationRequest は通知発行リクエストのJSON構造。
type enqueueNotificationRequest struct {
	// Severity は通知の重大度（info, warning, critical）。
	Severity string `json:"severity" binding:"required"`
	// Message は通知の本文。
	Message string `json:"message" binding:"required"`
}

// handleEnqueueNotification は通知の発行を処理するハンドラを返す。
// バックエンドの各機能が管理者へ伝えるべき出来事を報告する内部向けの
// エンドポイントで、発行と同時に全購読者へ配信される。
func (s *Server) handleEnqueueNotification() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req enqueueNotificationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		severity, err := notify.ParseSeverity(req.Severity)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "severityはinfo, warning, criticalのいずれかを指定してください"})
			return
		}

		created := s.notifications.Enqueue(severity, req.Message)
		c.JSON(http.StatusCreated, created)
	}
}

// handleStreamNotifications は通知のSSE配信を処理するハンドラを返す。
// 接続確認イベントと未確認critical通知の追い付き分を先頭に流し、以降は
// 新規通知を発生順に配信し続ける。クライアントの切断で購読を解除する。
func (s *Server) handleStreamNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, events := s.notifications.Subscribe()
		defer s.notifications.Unsubscribe(id)

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Writer.Flush()

		ctx := c.Request.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				c.SSEvent(string(ev.Type), ev.Data)
				c.Writer.Flush()
			}
		}
	}
}
