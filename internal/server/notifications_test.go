package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sse"

	"github.com/hannasage/music-central/internal/notify"
)

// enqueueNotification は内部エンドポイント経由で通知を発行するヘルパー関数。
func enqueueNotification(t *testing.T, s *Server, token, severity, message string) notify.Notification {
	t.Helper()

	body := map[string]string{"severity": severity, "message": message}
	w := doRequest(s.router, http.MethodPost, "/api/v1/internal/notifications", token, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("通知の発行に失敗: status=%d, body=%s", w.Code, w.Body.String())
	}

	var created notify.Notification
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("JSONのデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return created
}

// TestHandleEnqueueNotification は通知発行ハンドラのテスト。
func TestHandleEnqueueNotification(t *testing.T) {
	t.Parallel()

	t.Run("正常に通知を発行できる", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t, nil)
		token := adminToken(t)

		body := map[string]string{"severity": "warning", "message": "レート制限に近づいています"}
		w := doRequest(s.router, http.MethodPost, "/api/v1/internal/notifications", token, body)

		if w.Code != http.StatusCreated {
			t.Errorf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
		}

		result := parseJSON(t, w)
		if result["id"] == nil || result["id"] == "" {
			t.Error("idが空です")
		}
		if result["severity"] != "warning" {
			t.Errorf("severity: got %v, want warning", result["severity"])
		}
		if result["message"] != "レート制限に近づいています" {
			t.Errorf("message: got %v", result["message"])
		}
		if result["acknowledged"] != false {
			t.Errorf("acknowledged: got %v, want false", result["acknowledged"])
		}
		if result["createdAt"] == nil {
			t.Error("createdAtが設定されていません")
		}
	})

	t.Run("重大度が不正な場合はBadRequest", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t, nil)
		token := adminToken(t)

		body := map[string]string{"severity": "fatal", "message": "未知の重大度"}
		w := doRequest(s.router, http.MethodPost, "/api/v1/internal/notifications", token, body)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}

		result := parseJSON(t, w)
		if result["error"] == nil {
			t.Error("エラーメッセージが含まれていません")
		}
	})

	t.Run("メッセージが未指定の場合はBadRequest", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t, nil)
		token := adminToken(t)

		body := map[string]string{"severity": "info"}
		w := doRequest(s.router, http.MethodPost, "/api/v1/internal/notifications", token, body)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestHandleListNotifications は通知一覧取得ハンドラのテスト。
func TestHandleListNotifications(t *testing.T) {
	t.Parallel()

	t.Run("通知がない場合は空の一覧を返す", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t, nil)
		token := adminToken(t)

		w := doRequest(s.router, http.MethodGet, "/api/v1/admin/notifications", token, nil)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		var result notificationListResponse
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("JSONのデコードに失敗: %v", err)
		}
		if len(result.Notifications) != 0 {
			t.Errorf("通知件数: got %d, want 0", len(result.Notifications))
		}
		if result.UnacknowledgedCount != 0 {
			t.Errorf("未確認件数: got %d, want 0", result.UnacknowledgedCount)
		}
		if result.Total != 0 {
			t.Errorf("総数: got %d, want 0", result.Total)
		}
	})

	t.Run("発行済み通知を発行順に返す", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t, nil)
		token := adminToken(t)

		enqueueNotification(t, s, token, "info", "通知1")
		enqueueNotification(t, s, token, "critical", "通知2")
		acked := enqueueNotification(t, s, token, "warning", "通知3")

		ack := doRequest(s.router, http.MethodPost, "/api/v1/admin/notifications/acknowledge", token,
			map[string]any{"notificationIds": []string{acked.ID}})
		if ack.Code != http.StatusOK {
			t.Fatalf("事前確認に失敗: status=%d", ack.Code)
		}

		w := doRequest(s.router, http.MethodGet, "/api/v1/admin/notifications", token, nil)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		var result notificationListResponse
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("JSONのデコードに失敗: %v", err)
		}
		if result.Total != 3 {
			t.Errorf("総数: got %d, want 3", result.Total)
		}
		if result.UnacknowledgedCount != 2 {
			t.Errorf("未確認件数: got %d, want 2", result.UnacknowledgedCount)
		}

		messages := make([]string, 0, len(result.Notifications))
		for _, n := range result.Notifications {
			messages = append(messages, n.Message)
		}
		if got := strings.Join(messages, ","); got != "通知1,通知2,通知3" {
			t.Errorf("通知の順序: got %s, want 通知1,通知2,通知3", got)
		}
		if !result.Notifications[2].Acknowledged {
			t.Error("確認済みフラグが反映されていません")
		}
	})
}

// TestHandleAcknowledgeNotifications は通知確認ハンドラのテスト。
func TestHandleAcknowledgeNotifications(t *testing.T) {
	t.Parallel()

	t.Run("IDを指定して確認できる", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t, nil)
		token := adminToken(t)

		target := enqueueNotification(t, s, token, "critical", "対象の通知")
		enqueueNotification(t, s, token, "info", "対象外の通知")

		w := doRequest(s.router, http.MethodPost, "/api/v1/admin/notifications/acknowledge", token,
			map[string]any{"notificationIds": []string{target.ID}})

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
		}

		result := parseJSON(t, w)
		if result["success"] != true {
			t.Errorf("success: got %v, want true", result["success"])
		}
		if result["acknowledgedCount"] != float64(1) {
			t.Errorf("acknowledgedCount: got %v, want 1", result["acknowledgedCount"])
		}

		if got := s.notifications.UnacknowledgedCount(); got != 1 {
			t.Errorf("未確認件数: got %d, want 1", got)
		}
	})

	t.Run("存在しないIDは読み飛ばして件数に含めない", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t, nil)
		token := adminToken(t)

		target := enqueueNotification(t, s, token, "info", "存在する通知")

		w := doRequest(s.router, http.MethodPost, "/api/v1/admin/notifications/acknowledge", token,
			map[string]any{"notificationIds": []string{target.ID, "no-such-id"}})

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		result := parseJSON(t, w)
		if result["acknowledgedCount"] != float64(1) {
			t.Errorf("acknowledgedCount: got %v, want 1", result["acknowledgedCount"])
		}
	})

	t.Run("空のID配列は0件で成功する", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t, nil)
		token := adminToken(t)

		enqueueNotification(t, s, token, "info", "確認されない通知")

		w := doRequest(s.router, http.MethodPost, "/api/v1/admin/notifications/acknowledge", token,
			map[string]any{"notificationIds": []string{}})

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
		}

		result := parseJSON(t, w)
		if result["acknowledgedCount"] != float64(0) {
			t.Errorf("acknowledgedCount: got %v, want 0", result["acknowledgedCount"])
		}
	})

	t.Run("acknowledgeAllで未確認の全件を確認できる", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t, nil)
		token := adminToken(t)

		acked := enqueueNotification(t, s, token, "info", "確認済みの通知")
		enqueueNotification(t, s, token, "warning", "未確認の通知1")
		enqueueNotification(t, s, token, "critical", "未確認の通知2")

		pre := doRequest(s.router, http.MethodPost, "/api/v1/admin/notifications/acknowledge", token,
			map[string]any{"notificationIds": []string{acked.ID}})
		if pre.Code != http.StatusOK {
			t.Fatalf("事前確認に失敗: status=%d", pre.Code)
		}

		w := doRequest(s.router, http.MethodPost, "/api/v1/admin/notifications/acknowledge", token,
			map[string]any{"acknowledgeAll": true})

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		// 確認済みだった1件は件数に含まれない
		result := parseJSON(t, w)
		if result["acknowledgedCount"] != float64(2) {
			t.Errorf("acknowledgedCount: got %v, want 2", result["acknowledgedCount"])
		}

		if got := s.notifications.UnacknowledgedCount(); got != 0 {
			t.Errorf("未確認件数: got %d, want 0", got)
		}
	})

	t.Run("IDと一括確認を同時に指定した場合はBadRequest", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t, nil)
		token := adminToken(t)

		w := doRequest(s.router, http.MethodPost, "/api/v1/admin/notifications/acknowledge", token,
			map[string]any{"notificationIds": []string{"id-1"}, "acknowledgeAll": true})

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("どちらも指定しない場合はBadRequest", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t, nil)
		token := adminToken(t)

		w := doRequest(s.router, http.MethodPost, "/api/v1/admin/notifications/acknowledge", token,
			map[string]any{})

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}

		result := parseJSON(t, w)
		if result["error"] == nil {
			t.Error("エラーメッセージが含まれていません")
		}
	})
}

// TestHandleClearNotifications は確認済み通知の掃除ハンドラのテスト。
func TestHandleClearNotifications(t *testing.T) {
	t.Parallel()

	t.Run("確認済みの通知だけを削除する", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t, nil)
		token := adminToken(t)

		first := enqueueNotification(t, s, token, "info", "確認済み1")
		second := enqueueNotification(t, s, token, "warning", "確認済み2")
		enqueueNotification(t, s, token, "critical", "未確認")

		ack := doRequest(s.router, http.MethodPost, "/api/v1/admin/notifications/acknowledge", token,
			map[string]any{"notificationIds": []string{first.ID, second.ID}})
		if ack.Code != http.StatusOK {
			t.Fatalf("事前確認に失敗: status=%d", ack.Code)
		}

		w := doRequest(s.router, http.MethodDelete, "/api/v1/admin/notifications", token, nil)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		result := parseJSON(t, w)
		if result["success"] != true {
			t.Errorf("success: got %v, want true", result["success"])
		}
		if result["clearedCount"] != float64(2) {
			t.Errorf("clearedCount: got %v, want 2", result["clearedCount"])
		}

		list := s.notifications.ListPending()
		if len(list) != 1 {
			t.Fatalf("残存通知件数: got %d, want 1", len(list))
		}
		if list[0].Message != "未確認" {
			t.Errorf("残存通知: got %s, want 未確認", list[0].Message)
		}
	})

	t.Run("確認済みがない場合は0件で成功する", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t, nil)
		token := adminToken(t)

		enqueueNotification(t, s, token, "info", "未確認の通知")

		w := doRequest(s.router, http.MethodDelete, "/api/v1/admin/notifications", token, nil)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		result := parseJSON(t, w)
		if result["clearedCount"] != float64(0) {
			t.Errorf("clearedCount: got %v, want 0", result["clearedCount"])
		}
	})
}

// readSSEEvent はストリームから次のSSEイベントを1件読み取るヘルパー関数。
func readSSEEvent(t *testing.T, br *bufio.Reader) (name, data string) {
	t.Helper()

	for {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("ストリームの読み取りに失敗: %v", err)
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "" && (name != "" || data != ""):
			return name, data
		}
	}
}

// TestHandleStreamNotifications は通知SSEストリーム配信のテスト。
func TestHandleStreamNotifications(t *testing.T) {
	t.Parallel()

	t.Run("接続確認イベントと未確認criticalの追い付きを先頭に配信する", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t, nil)
		token := adminToken(t)

		// 追い付き配信の対象は未確認のcriticalのみ
		first := enqueueNotification(t, s, token, "critical", "ディスク残量が5%未満です")
		enqueueNotification(t, s, token, "info", "デイリーバッチが完了しました")
		second := enqueueNotification(t, s, token, "critical", "外部APIへの接続に失敗しました")
		acked := enqueueNotification(t, s, token, "critical", "確認済みの障害")

		ack := doRequest(s.router, http.MethodPost, "/api/v1/admin/notifications/acknowledge", token,
			map[string]any{"notificationIds": []string{acked.ID}})
		if ack.Code != http.StatusOK {
			t.Fatalf("事前確認に失敗: status=%d", ack.Code)
		}

		// 一定時間後のクライアント切断までに配信された内容を検証する
		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/notifications/stream", nil).WithContext(ctx)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
			t.Errorf("Content-Type: got %s, want text/event-stream", ct)
		}

		events, err := sse.Decode(w.Body)
		if err != nil {
			t.Fatalf("SSEイベントのデコードに失敗: %v", err)
		}
		if len(events) != 3 {
			t.Fatalf("イベント数: got %d, want 3, body=%s", len(events), w.Body.String())
		}

		// 先頭は必ず接続確認イベント
		if events[0].Event != "connected" {
			t.Errorf("先頭イベント: got %s, want connected", events[0].Event)
		}
		if data, ok := events[0].Data.(string); !ok || !strings.Contains(data, "subscriberId") {
			t.Errorf("接続確認イベントに購読者IDが含まれていません: %v", events[0].Data)
		}

		// 未確認criticalの追い付き配信が発行順に続く
		for i, want := range []notify.Notification{first, second} {
			ev := events[i+1]
			if ev.Event != "notification" {
				t.Errorf("イベント名[%d]: got %s, want notification", i, ev.Event)
			}

			var got notify.Notification
			if err := json.Unmarshal([]byte(ev.Data.(string)), &got); err != nil {
				t.Fatalf("イベントデータのデコードに失敗: %v, data=%v", err, ev.Data)
			}
			if got.ID != want.ID {
				t.Errorf("追い付き通知[%d]: got %s, want %s（%s）", i, got.ID, want.ID, want.Message)
			}
			if got.Severity != notify.SeverityCritical {
				t.Errorf("追い付き通知[%d]の重大度: got %s, want %s", i, got.Severity, notify.SeverityCritical)
			}
		}
	})

	t.Run("接続後に発行された通知をリアルタイムに配信する", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t, nil)
		token := adminToken(t)

		srv := httptest.NewServer(s.router)
		t.Cleanup(srv.Close)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/admin/notifications/stream", nil)
		if err != nil {
			t.Fatalf("リクエストの作成に失敗: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatalf("ストリームへの接続に失敗: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", resp.StatusCode, http.StatusOK)
		}

		br := bufio.NewReader(resp.Body)

		// 接続確認イベントの受信で購読の確立を待つ
		name, _ := readSSEEvent(t, br)
		if name != "connected" {
			t.Errorf("先頭イベント: got %s, want connected", name)
		}

		// 接続後に発行した通知は重大度を問わずリアルタイムに届く
		live := enqueueNotification(t, s, token, "warning", "レート制限に近づいています")

		name, data := readSSEEvent(t, br)
		if name != "notification" {
			t.Errorf("イベント名: got %s, want notification", name)
		}

		var got notify.Notification
		if err := json.Unmarshal([]byte(data), &got); err != nil {
			t.Fatalf("イベントデータのデコードに失敗: %v, data=%s", err, data)
		}
		if got.ID != live.ID {
			t.Errorf("リアルタイム通知: got %s, want %s", got.ID, live.ID)
		}
		if got.Message != live.Message {
			t.Errorf("リアルタイム通知の本文: got %s, want %s", got.Message, live.Message)
		}
	})
}
