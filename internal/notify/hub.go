package notify

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// DefaultSubscriberBuffer は購読者ごとのイベントバッファの既定サイズ。
const DefaultSubscriberBuffer = 64

// Sink は購読者へイベントを届ける送信口の抽象。
// 配信エンジンを特定のトランスポートから切り離すため、
// 送信とクローズの二つの能力のみを公開する。
type Sink interface {
	// Send はイベントを送信する。送信できない場合はブロックせずにfalseを返す。
	Send(Event) bool
	// Close は送信口を閉じる。複数回呼んでも安全。
	Close()
}

// channelSink はGoチャネルを背後に持つSinkの実装。
// バッファが満杯、またはクローズ済みの場合、Sendはfalseを返す。
type channelSink struct {
	// mu はclosedフラグとチャネル操作の整合を守るミューテックス。
	mu sync.Mutex
	// ch はイベントを運ぶバッファ付きチャネル。
	ch chan Event
	// closed はクローズ済みフラグ。
	closed bool
}

// newChannelSink は指定容量のバッファを持つchannelSinkを生成する。
func newChannelSink(capacity int) *channelSink {
	return &channelSink{ch: make(chan Event, capacity)}
}

// Events はイベントの受信側チャネルを返す。
// チャネルはSinkがクローズされた時点で閉じられる。
func (s *channelSink) Events() <-chan Event {
	return s.ch
}

// Send はイベントをチャネルへ投入する。
// クローズ済み、またはバッファ満杯の場合はfalseを返す。
func (s *channelSink) Send(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

// Close はチャネルを閉じる。複数回呼んでも安全。
func (s *channelSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// subscriberState は購読者の接続状態を表す。
type subscriberState string

const (
	// stateConnecting は登録処理中の状態。
	stateConnecting subscriberState = "connecting"
	// stateConnected はイベント配信中の状態。
	stateConnected subscriberState = "connected"
	// stateClosed は購読解除により終了した状態。
	stateClosed subscriberState = "closed"
	// stateErrored は配信失敗により終了した状態。
	stateErrored subscriberState = "errored"
)

// subscriber はハブに登録された購読者のエントリ。
type subscriber struct {
	// id は購読者の一意識別子（UUID）。
	id string
	// sink はイベントの送信口。ハブがライフサイクルを所有する。
	sink *channelSink
	// state は購読者の接続状態。ハブのミューテックス保持中のみ変更する。
	state subscriberState
}

// Hub は購読者レジストリとイベント配信エンジン。
// 全購読者へのブロードキャストと、送信に失敗した購読者の自動除去を行う。
// 全てのメソッドは並行に呼び出して安全である。
type Hub struct {
	// mu は購読者マップへの並行アクセスを保護するミューテックス。
	mu sync.Mutex
	// subs は購読者IDからエントリへのマップ。
	subs map[string]*subscriber
	// buffer は購読開始後に受信できるイベントのバッファサイズ。
	buffer int
}

// NewHub は新しいハブを生成する。
// bufferが0以下の場合はDefaultSubscriberBufferを使用する。
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{
		subs:   make(map[string]*subscriber),
		buffer: buffer,
	}
}

// Subscribe は新しい購読者を登録し、購読者IDとイベント受信チャネルを返す。
// チャネルの先頭には接続確認イベントと、引数で渡されたキャッチアップ
// イベントが順に積まれている。チャネルの容量はキャッチアップ分に加えて
// bufferサイズ分の余裕を持つため、登録時点での投入は失敗しない。
func (h *Hub) Subscribe(catchUp ...Event) (string, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &subscriber{
		id:    uuid.New().String(),
		sink:  newChannelSink(len(catchUp) + 1 + h.buffer),
		state: stateConnecting,
	}

	sub.sink.Send(Event{
		Type: EventTypeConnected,
		Data: connectedData{SubscriberID: sub.id, Message: "通知ストリームに接続しました"},
	})
	for _, ev := range catchUp {
		sub.sink.Send(ev)
	}

	sub.state = stateConnected
	h.subs[sub.id] = sub
	log.Printf("[Notify] 購読者を登録しました: subscriber_id=%s, catch_up=%d", sub.id, len(catchUp))
	return sub.id, sub.sink.Events()
}

// Unsubscribe は購読者を登録から外し、送信口を閉じる。
// 存在しないIDに対しては何もしない。
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[id]
	if !ok {
		return
	}
	sub.state = stateClosed
	sub.sink.Close()
	delete(h.subs, id)
	log.Printf("[Notify] 購読者を解除しました: subscriber_id=%s", id)
}

// Broadcast は現在の全購読者へイベントを配信する。
// 配信先リストのスナップショットを取ってから送信するため、
// 配信中のSubscribe/Unsubscribeと衝突しない。送信に失敗した購読者は
// 壊れたものとみなして登録から除去する。除去によって残りの購読者への
// 配信が妨げられることはない。
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	targets := make([]*subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	var failed []string
	for _, sub := range targets {
		if !sub.sink.Send(ev) {
			failed = append(failed, sub.id)
		}
	}
	for _, id := range failed {
		h.removeErrored(id)
	}
}

// removeErrored は配信に失敗した購読者を登録から外し、送信口を閉じる。
// 既に解除済みの場合は何もしない。
func (h *Hub) removeErrored(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[id]
	if !ok {
		return
	}
	sub.state = stateErrored
	sub.sink.Close()
	delete(h.subs, id)
	log.Printf("[Notify] 配信に失敗した購読者を除去しました: subscriber_id=%s", id)
}

// Len は現在登録されている購読者数を返す。
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
