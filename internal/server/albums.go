package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hannasage/music-central/internal/catalog"
)

const (
	// defaultPerPage は1ページあたりのアルバム件数の既定値。
	defaultPerPage = 24
	// maxPerPage は1ページあたりのアルバム件数の上限。
	maxPerPage = 100
)

// albumListResponse はアルバム一覧のJSONレスポンス構造。
type albumListResponse struct {
	// Albums は現在ページのアルバム一覧。
	Albums []catalog.Album `json:"albums"`
	// Pagination はページング情報。
	Pagination catalog.Pagination `json:"pagination"`
}

// parsePositiveInt はクエリ文字列を正の整数として解釈する。
func parsePositiveInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, errors.New("正の整数を指定してください")
	}
	return v, nil
}

// handleListAlbums はアルバム一覧取得を処理するハンドラを返す。
// ソートとページングはアルバムデータAPIから取得した全件に対して行う。
func (s *Server) handleListAlbums() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := parsePositiveInt(c.Query("page"), 1)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pageには正の整数を指定してください"})
			return
		}

		perPage, err := parsePositiveInt(c.Query("perPage"), defaultPerPage)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "perPageには正の整数を指定してください"})
			return
		}
		if perPage > maxPerPage {
			perPage = maxPerPage
		}

		sortKey, err := catalog.ParseSortKey(c.Query("sort"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sortにはnewest, title, artist, yearのいずれかを指定してください"})
			return
		}

		albums, err := s.albums.ListAlbums(c.Request.Context())
		if err != nil {
			log.Printf("[Server] アルバム一覧の取得に失敗: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "アルバムデータAPIとの通信に失敗しました"})
			return
		}

		sorted := catalog.SortAlbums(albums, sortKey)
		paged, pagination := catalog.Paginate(sorted, page, perPage)

		c.JSON(http.StatusOK, albumListResponse{
			Albums:     paged,
			Pagination: pagination,
		})
	}
}

// handleFeaturedAlbums は注目アルバム一覧取得を処理するハンドラを返す。
func (s *Server) handleFeaturedAlbums() gin.HandlerFunc {
	return func(c *gin.Context) {
		albums, err := s.albums.ListAlbums(c.Request.Context())
		if err != nil {
			log.Printf("[Server] アルバム一覧の取得に失敗: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "アルバムデータAPIとの通信に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"albums": catalog.Featured(albums)})
	}
}

// handleGetAlbum はアルバム詳細取得を処理するハンドラを返す。
func (s *Server) handleGetAlbum() gin.HandlerFunc {
	return func(c *gin.Context) {
		album, err := s.albums.GetAlbum(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, catalog.ErrAlbumNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "アルバムが見つかりません"})
				return
			}
			log.Printf("[Server] アルバム詳細の取得に失敗: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "アルバムデータAPIとの通信に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, album)
	}
}

// handleListGenres はジャンル集計取得を処理するハンドラを返す。
func (s *Server) handleListGenres() gin.HandlerFunc {
	return func(c *gin.Context) {
		albums, err := s.albums.ListAlbums(c.Request.Context())
		if err != nil {
			log.Printf("[Server] アルバム一覧の取得に失敗: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "アルバムデータAPIとの通信に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"genres": catalog.AggregateGenres(albums)})
	}
}
