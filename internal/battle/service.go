package battle

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hannasage/music-central/internal/catalog"
)

const (
	// DefaultTotalRounds は総ラウンド数が未指定のときに使う既定値。
	DefaultTotalRounds = 5
	// MaxTotalRounds は1セッションで許容する総ラウンド数の上限。
	MaxTotalRounds = 10
)

var (
	// ErrSessionCompleted は終了済みセッションへの投票を表す。
	ErrSessionCompleted = errors.New("対戦セッションはすでに終了しています")
	// ErrInvalidWinner は現在の対戦カードに含まれないアルバムへの投票を表す。
	ErrInvalidWinner = errors.New("勝者は現在の対戦カードのアルバムから選んでください")
	// ErrNotEnoughAlbums は対戦に必要なアルバム数が不足していることを表す。
	ErrNotEnoughAlbums = errors.New("対戦に必要なアルバムが不足しています")
)

// AlbumSource は対戦カードの生成に使うアルバム一覧の取得先。
type AlbumSource interface {
	// ListAlbums は全アルバムを返す。
	ListAlbums(ctx context.Context) ([]catalog.Album, error)
}

// Service は対戦ゲームのビジネスロジックを提供する。
type Service struct {
	// store は対戦ゲームの永続化ストア。
	store *Store
	// albums は対戦カードに使うアルバムの取得先。
	albums AlbumSource
}

// NewService は新しい対戦ゲームサービスを生成する。
func NewService(store *Store, albums AlbumSource) *Service {
	return &Service{store: store, albums: albums}
}

// Matchup は1ラウンド分の対戦カード。
type Matchup struct {
	// Round は対戦カードのラウンド情報。
	Round Round `json:"round"`
	// AlbumA は対戦カードの一方のアルバム。
	AlbumA catalog.Album `json:"albumA"`
	// AlbumB は対戦カードのもう一方のアルバム。
	AlbumB catalog.Album `json:"albumB"`
}

// SessionState はセッションの現在の状態を表す。
type SessionState struct {
	// Session はセッション本体。
	Session Session `json:"session"`
	// Current は進行中セッションの現在の対戦カード。終了済みの場合はnil。
	Current *Matchup `json:"current,omitempty"`
	// Profile は終了済みセッションの音楽プロファイル。進行中の場合はnil。
	Profile *Profile `json:"profile,omitempty"`
}

// VoteResult は投票後のセッション状態を表す。
type VoteResult struct {
	// Session は投票反映後のセッション。
	Session Session `json:"session"`
	// Next は次ラウンドの対戦カード。セッションが終了した場合はnil。
	Next *Matchup `json:"next,omitempty"`
	// Profile は全ラウンド終了時に集計される音楽プロファイル。
	Profile *Profile `json:"profile,omitempty"`
}

// Profile は対戦結果から集計した音楽の好みプロファイル。
type Profile struct {
	// TopGenres は勝者アルバムに多く現れたジャンルの上位。
	TopGenres []string `json:"topGenres"`
	// TopVibes は勝者アルバムに多く現れたバイブスの上位。
	TopVibes []string `json:"topVibes"`
	// FavoriteDecade は勝者アルバムが最も集中した年代。判定不能の場合は空。
	FavoriteDecade string `json:"favoriteDecade,omitempty"`
	// WinnerIDs はラウンド順に並んだ勝者アルバムのID。
	WinnerIDs []string `json:"winnerIds"`
}

// Start は新しい対戦セッションを開始し、最初の対戦カードを返す。
// totalRoundsが0以下の場合はDefaultTotalRounds、上限を超える場合は
// MaxTotalRoundsに丸める。
func (s *Service) Start(ctx context.Context, totalRounds int) (*SessionState, error) {
	if totalRounds <= 0 {
		totalRounds = DefaultTotalRounds
	}
	if totalRounds > MaxTotalRounds {
		totalRounds = MaxTotalRounds
	}

	albums, err := s.albums.ListAlbums(ctx)
	if err != nil {
		return nil, fmt.Errorf("アルバム一覧の取得に失敗: %w", err)
	}
	if len(albums) < 2 {
		return nil, ErrNotEnoughAlbums
	}

	now := time.Now().UTC()
	session := &Session{
		ID:           uuid.New().String(),
		Status:       StatusActive,
		CurrentRound: 1,
		TotalRounds:  totalRounds,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	round := newRound(session.ID, 1, albums)
	if err := s.store.CreateSession(ctx, session, round); err != nil {
		return nil, err
	}

	matchup, err := buildMatchup(*round, albums)
	if err != nil {
		return nil, err
	}
	return &SessionState{Session: *session, Current: matchup}, nil
}

// Vote は現在のラウンドに勝者を記録し、次の対戦カードまたは最終結果を返す。
func (s *Service) Vote(ctx context.Context, sessionID, winnerID string) (*VoteResult, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != StatusActive {
		return nil, ErrSessionCompleted
	}

	round, err := s.store.GetRound(ctx, sessionID, session.CurrentRound)
	if err != nil {
		return nil, err
	}
	if winnerID != round.AlbumAID && winnerID != round.AlbumBID {
		return nil, ErrInvalidWinner
	}

	if session.CurrentRound >= session.TotalRounds {
		return s.completeSession(ctx, session, round, winnerID)
	}
	return s.advanceSession(ctx, session, round, winnerID)
}

// advanceSession は勝者を記録して次のラウンドへ進める。
func (s *Service) advanceSession(ctx context.Context, session *Session, round *Round, winnerID string) (*VoteResult, error) {
	albums, err := s.albums.ListAlbums(ctx)
	if err != nil {
		return nil, fmt.Errorf("アルバム一覧の取得に失敗: %w", err)
	}
	if len(albums) < 2 {
		return nil, ErrNotEnoughAlbums
	}

	next := newRound(session.ID, session.CurrentRound+1, albums)
	if err := s.store.RecordVoteAndAdvance(ctx, round.ID, winnerID, next); err != nil {
		return nil, err
	}

	updated, err := s.store.GetSession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	matchup, err := buildMatchup(*next, albums)
	if err != nil {
		return nil, err
	}
	return &VoteResult{Session: *updated, Next: matchup}, nil
}

// completeSession は最終ラウンドの勝者を記録してセッションを終了し、
// プロファイルを集計する。
func (s *Service) completeSession(ctx context.Context, session *Session, round *Round, winnerID string) (*VoteResult, error) {
	if err := s.store.RecordVoteAndComplete(ctx, round.ID, winnerID, session.ID); err != nil {
		return nil, err
	}
	updated, err := s.store.GetSession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	profile, err := s.Profile(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	return &VoteResult{Session: *updated, Profile: profile}, nil
}

// Current は指定セッションの現在の状態を返す。
// 進行中なら現在の対戦カード、終了済みならプロファイルを含む。
func (s *Service) Current(ctx context.Context, sessionID string) (*SessionState, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state := &SessionState{Session: *session}
	if session.Status == StatusCompleted {
		profile, err := s.Profile(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		state.Profile = profile
		return state, nil
	}

	round, err := s.store.GetRound(ctx, sessionID, session.CurrentRound)
	if err != nil {
		return nil, err
	}
	albums, err := s.albums.ListAlbums(ctx)
	if err != nil {
		return nil, fmt.Errorf("アルバム一覧の取得に失敗: %w", err)
	}
	matchup, err := buildMatchup(*round, albums)
	if err != nil {
		return nil, err
	}
	state.Current = matchup
	return state, nil
}

// Profile は投票済みラウンドの勝者から音楽の好みプロファイルを集計する。
func (s *Service) Profile(ctx context.Context, sessionID string) (*Profile, error) {
	rounds, err := s.store.ListRounds(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	albums, err := s.albums.ListAlbums(ctx)
	if err != nil {
		return nil, fmt.Errorf("アルバム一覧の取得に失敗: %w", err)
	}
	byID := albumsByID(albums)

	genres := make(map[string]int)
	vibes := make(map[string]int)
	decades := make(map[int]int)
	winnerIDs := make([]string, 0, len(rounds))
	for _, round := range rounds {
		if round.WinnerID == nil {
			continue
		}
		winnerIDs = append(winnerIDs, *round.WinnerID)
		album, ok := byID[*round.WinnerID]
		if !ok {
			continue
		}
		for _, genre := range album.Genres {
			genres[genre]++
		}
		for _, vibe := range album.Vibes {
			vibes[vibe]++
		}
		if album.Year > 0 {
			decades[album.Year/10*10]++
		}
	}

	return &Profile{
		TopGenres:      topNames(genres, 3),
		TopVibes:       topNames(vibes, 3),
		FavoriteDecade: favoriteDecade(decades),
		WinnerIDs:      winnerIDs,
	}, nil
}

// newRound はアルバム一覧から無作為に2枚選んだ新しいラウンドを生成する。
func newRound(sessionID string, number int, albums []catalog.Album) *Round {
	a, b := pickPair(albums)
	return &Round{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		RoundNumber: number,
		AlbumAID:    a.ID,
		AlbumBID:    b.ID,
		CreatedAt:   time.Now().UTC(),
	}
}

// pickPair はアルバム一覧から相異なる2枚を無作為に選ぶ。
// 呼び出し側で要素数が2以上であることを保証する。
func pickPair(albums []catalog.Album) (catalog.Album, catalog.Album) {
	i := rand.IntN(len(albums))
	j := rand.IntN(len(albums) - 1)
	if j >= i {
		j++
	}
	return albums[i], albums[j]
}

// albumsByID はアルバム一覧をID引きのマップへ変換する。
func albumsByID(albums []catalog.Album) map[string]catalog.Album {
	byID := make(map[string]catalog.Album, len(albums))
	for _, album := range albums {
		byID[album.ID] = album
	}
	return byID
}

// buildMatchup はラウンドのアルバムIDをアルバム情報に解決して対戦カードを組み立てる。
func buildMatchup(round Round, albums []catalog.Album) (*Matchup, error) {
	byID := albumsByID(albums)
	a, okA := byID[round.AlbumAID]
	b, okB := byID[round.AlbumBID]
	if !okA || !okB {
		return nil, fmt.Errorf("対戦カードのアルバムが見つかりません: round_id=%s", round.ID)
	}
	return &Matchup{Round: round, AlbumA: a, AlbumB: b}, nil
}

// topNames は出現回数の多い順に名前を最大n件返す。同数の場合は名前順とする。
func topNames(counts map[string]int, n int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

// favoriteDecade は最多の年代を「1990s」の形式で返す。同数の場合は古い年代を優先する。
func favoriteDecade(decades map[int]int) string {
	best, bestCount := 0, 0
	for decade, count := range decades {
		if count > bestCount || (count == bestCount && count > 0 && decade < best) {
			best, bestCount = decade, count
		}
	}
	if bestCount == 0 {
		return ""
	}
	return fmt.Sprintf("%ds", best)
}
