package notify

import (
	"fmt"
	"time"
)

// Severity は通知の重大度を表す。
type Severity string

const (
	// SeverityInfo は情報レベルの通知を表す。
	SeverityInfo Severity = "info"
	// SeverityWarning は警告レベルの通知を表す。
	SeverityWarning Severity = "warning"
	// SeverityCritical は管理者の即時対応を要する重大レベルの通知を表す。
	SeverityCritical Severity = "critical"
)

// ParseSeverity は文字列を検証してSeverityに変換する。
// 未知の値の場合はエラーを返す。
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return Severity(s), nil
	}
	return "", fmt.Errorf("未知の重大度です: %q", s)
}

// Notification は管理者の対応を要するイベントの記録を表す。
// IDとCreatedAtは作成時に採番・記録され、以後変更されない。
type Notification struct {
	// ID は通知の一意識別子（UUID）。
	ID string `json:"id"`
	// Severity は通知の重大度。
	Severity Severity `json:"severity"`
	// Message は人間が読むための通知本文。
	Message string `json:"message"`
	// CreatedAt は通知の作成日時（UTC）。
	CreatedAt time.Time `json:"createdAt"`
	// Acknowledged は管理者が確認済みかどうかのフラグ。作成時はfalse。
	Acknowledged bool `json:"acknowledged"`
}

// EventType はストリーム配信されるイベントの種類を表す。
type EventType string

const (
	// EventTypeConnected は購読開始直後に送られる接続確認イベントを表す。
	EventTypeConnected EventType = "connected"
	// EventTypeNotification は通知レコードを運ぶイベントを表す。
	EventTypeNotification EventType = "notification"
)

// Event は購読者へ配信されるイベントの封筒。
// TypeはSSEのイベント名としてそのまま使用され、Dataは配信時にJSONへ
// シリアライズされる。
type Event struct {
	// Type はイベントの種類。
	Type EventType
	// Data はイベントのペイロード。
	Data any
}

// connectedData は接続確認イベントのペイロード。
type connectedData struct {
	// SubscriberID は払い出された購読者ID。
	SubscriberID string `json:"subscriberId"`
	// Message は接続確認メッセージ。
	Message string `json:"message"`
}
