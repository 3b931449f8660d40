package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store は通知レコードのプロセス内レジストリ。
// 全ての操作はミューテックスで保護され、複数のリクエストハンドラから
// 並行に呼び出しても一貫した状態を観測できる。レコードは挿入順に保持され、
// 確認済みになっても掃除されるまでは一覧に残り続ける。
type Store struct {
	// mu は全フィールドへの並行アクセスを保護するミューテックス。
	mu sync.Mutex
	// records は挿入順の通知レコード。
	records []*Notification
	// index はIDからレコードへの索引。
	index map[string]*Notification
	// hub は新規通知の配信先となる購読者ハブ。
	hub *Hub
}

// NewStore は新しい通知ストアを生成する。
// hubには新規通知の配信先となるハブを渡す。
func NewStore(hub *Hub) *Store {
	return &Store{
		index: make(map[string]*Notification),
		hub:   hub,
	}
}

// Enqueue は未確認の通知レコードを新規作成して追加し、そのコピーを返す。
// 副作用として、現在の全購読者へ通知イベントを配信する。レコードの追加と
// 配信は同一のロック区間で行うため、並行するEnqueue同士でも購読者は
// 作成順どおりにイベントを受信する。
func (s *Store) Enqueue(severity Severity, message string) Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := &Notification{
		ID:        uuid.New().String(),
		Severity:  severity,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	s.records = append(s.records, n)
	s.index[n.ID] = n

	s.hub.Broadcast(Event{Type: EventTypeNotification, Data: *n})
	return *n
}

// ListPending は保持中の全レコードを挿入順で返す。確認済みレコードも
// 掃除されるまでは含まれる。返り値は内部状態のコピーであり、
// 呼び出し側で自由に扱ってよい。
func (s *Store) ListPending() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Notification, 0, len(s.records))
	for _, n := range s.records {
		out = append(out, *n)
	}
	return out
}

// UnacknowledgedCount は未確認レコードの件数を返す。
func (s *Store) UnacknowledgedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, n := range s.records {
		if !n.Acknowledged {
			count++
		}
	}
	return count
}

// Acknowledge は指定IDのレコードを確認済みにする。
// 既に確認済みの場合もtrueを返す。IDが存在しない場合のみfalseを返す。
func (s *Store) Acknowledge(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.index[id]
	if !ok {
		return false
	}
	n.Acknowledged = true
	return true
}

// AcknowledgeAll は全ての未確認レコードを確認済みにし、
// 状態が変化した件数を返す。
func (s *Store) AcknowledgeAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, n := range s.records {
		if !n.Acknowledged {
			n.Acknowledged = true
			changed++
		}
	}
	return changed
}

// ClearAcknowledged は確認済みレコードを全て削除し、削除した件数を返す。
// 未確認レコードがこの操作で削除されることはない。
func (s *Store) ClearAcknowledged() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]*Notification, 0, len(s.records))
	removed := 0
	for _, n := range s.records {
		if n.Acknowledged {
			delete(s.index, n.ID)
			removed++
			continue
		}
		kept = append(kept, n)
	}
	s.records = kept
	return removed
}

// Subscribe は新しい購読者をハブに登録し、購読者IDとイベント受信チャネルを
// 返す。登録はEnqueueと相互排他であり、チャネルの先頭には接続確認イベントと、
// 登録時点で未確認だったcritical通知（挿入順）が積まれている。以降のEnqueueに
// よるイベントはその後ろに続くため、通知の取りこぼしも重複もない。
func (s *Store) Subscribe() (string, <-chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var catchUp []Event
	for _, n := range s.records {
		if n.Severity == SeverityCritical && !n.Acknowledged {
			catchUp = append(catchUp, Event{Type: EventTypeNotification, Data: *n})
		}
	}
	return s.hub.Subscribe(catchUp...)
}

// Unsubscribe は購読者をハブから外す。存在しないIDには何もしない。
func (s *Store) Unsubscribe(id string) {
	s.hub.Unsubscribe(id)
}
