package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Album は外部アルバムデータAPIが保持するアルバムのレコードを表す。
type Album struct {
	// ID はアルバムの一意識別子。
	ID string `json:"id"`
	// Title はアルバムのタイトル。
	Title string `json:"title"`
	// Artist はアーティスト名。
	Artist string `json:"artist"`
	// Year はリリース年。
	Year int `json:"year"`
	// Genres はアルバムに付与されたジャンルのリスト。
	Genres []string `json:"genres"`
	// Vibes はアルバムの雰囲気を表すタグのリスト。
	Vibes []string `json:"vibes"`
	// Featured はトップページで紹介するアルバムかどうか。
	Featured bool `json:"featured"`
	// CoverArtURL はジャケット画像のURL。
	CoverArtURL string `json:"coverArtUrl"`
	// SpotifyURL はSpotifyのアルバムページURL。
	SpotifyURL string `json:"spotifyUrl"`
	// AppleMusicURL はApple MusicのアルバムページURL。
	AppleMusicURL string `json:"appleMusicUrl"`
	// CreatedAt はコレクションへの追加日時。
	CreatedAt time.Time `json:"createdAt"`
}

// SortKey はアルバム一覧のソート方法を表す。
type SortKey string

const (
	// SortByNewest はコレクションへの追加が新しい順を表す。
	SortByNewest SortKey = "newest"
	// SortByTitle はタイトルの昇順を表す。
	SortByTitle SortKey = "title"
	// SortByArtist はアーティスト名の昇順を表す。
	SortByArtist SortKey = "artist"
	// SortByYear はリリース年の降順を表す。
	SortByYear SortKey = "year"
)

// ParseSortKey は文字列を検証してSortKeyに変換する。
// 空文字列はSortByNewestとして扱い、未知の値はエラーを返す。
func ParseSortKey(s string) (SortKey, error) {
	if s == "" {
		return SortByNewest, nil
	}
	switch SortKey(s) {
	case SortByNewest, SortByTitle, SortByArtist, SortByYear:
		return SortKey(s), nil
	}
	return "", fmt.Errorf("未知のソートキーです: %q", s)
}

// SortAlbums は指定キーでソートした新しいスライスを返す。
// 引数のスライスは変更しない。同順位のアルバムはタイトル昇順で安定させる。
func SortAlbums(albums []Album, key SortKey) []Album {
	sorted := make([]Album, len(albums))
	copy(sorted, albums)

	less := func(a, b Album) bool {
		switch key {
		case SortByTitle:
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		case SortByArtist:
			ai, bi := strings.ToLower(a.Artist), strings.ToLower(b.Artist)
			if ai != bi {
				return ai < bi
			}
		case SortByYear:
			if a.Year != b.Year {
				return a.Year > b.Year
			}
		default: // SortByNewest
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})
	return sorted
}

// Pagination はページング結果のメタデータ。
type Pagination struct {
	// Page は現在のページ番号（1始まり）。
	Page int `json:"page"`
	// PerPage は1ページあたりの件数。
	PerPage int `json:"perPage"`
	// Total は全体の件数。
	Total int `json:"total"`
	// TotalPages は総ページ数。
	TotalPages int `json:"totalPages"`
	// HasMore は次のページが存在するかどうか。
	HasMore bool `json:"hasMore"`
}

// Paginate はアルバム一覧から指定ページを切り出して返す。
// pageとperPageは1以上であること。範囲外のページでは空のスライスと
// メタデータのみを返す。
func Paginate(albums []Album, page, perPage int) ([]Album, Pagination) {
	total := len(albums)
	totalPages := (total + perPage - 1) / perPage

	p := Pagination{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	}

	start := (page - 1) * perPage
	if start >= total {
		return []Album{}, p
	}
	end := start + perPage
	if end > total {
		end = total
	}

	items := make([]Album, end-start)
	copy(items, albums[start:end])
	return items, p
}

// GenreCount はジャンル名とそのジャンルに属するアルバム数の組。
type GenreCount struct {
	// Name はジャンル名。
	Name string `json:"name"`
	// Count はそのジャンルに属するアルバム数。
	Count int `json:"count"`
}

// AggregateGenres は全アルバムのジャンルを集計して返す。
// 件数の降順、同数の場合はジャンル名の昇順で並べる。
func AggregateGenres(albums []Album) []GenreCount {
	counts := make(map[string]int)
	for _, album := range albums {
		for _, genre := range album.Genres {
			counts[genre]++
		}
	}

	result := make([]GenreCount, 0, len(counts))
	for name, count := range counts {
		result = append(result, GenreCount{Name: name, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// Featured は紹介フラグの付いたアルバムのみを返す。
func Featured(albums []Album) []Album {
	result := make([]Album, 0)
	for _, album := range albums {
		if album.Featured {
			result = append(result, album)
		}
	}
	return result
}
