package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/hannasage/music-central/internal/battle"
	"github.com/hannasage/music-central/internal/catalog"
	"github.com/hannasage/music-central/internal/chat"
	"github.com/hannasage/music-central/internal/config"
	"github.com/hannasage/music-central/internal/notify"
	"github.com/hannasage/music-central/pkg/middleware"
)

// Server は音楽コレクションサイトのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はサーバー設定。
	cfg *config.Config
	// db はSQLiteデータベース接続。
	db *sqlx.DB
	// notifications は管理者向け通知のストア。
	notifications *notify.Store
	// albums はアルバムデータAPIへのクライアント。
	albums *catalog.Client
	// battles は対戦ゲームサービス。
	battles *battle.Service
	// assistant は音楽推薦チャットアシスタント。
	assistant *chat.Assistant
}

// NewServer は新しいサーバーを生成する。
// SQLiteデータベースの初期化、各機能のスキーマ作成、ルーティング設定を行う。
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := sqlx.Open("sqlite", cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("WALモードの有効化に失敗: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ビジータイムアウトの設定に失敗: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("外部キー制約の有効化に失敗: %w", err)
	}

	if err := battle.InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := chat.InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	albums := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.APIKey)
	llm := chat.NewLLMClient(cfg.Chat.BaseURL, cfg.Chat.APIKey, cfg.Chat.Model,
		cfg.Chat.MaxTokens, cfg.Chat.RequestsPerMinute)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS([]string{cfg.FrontendURL}))

	s := &Server{
		router:        router,
		cfg:           cfg,
		db:            db,
		notifications: notify.NewStore(notify.NewHub(cfg.Notify.SubscriberBuffer)),
		albums:        albums,
		battles:       battle.NewService(battle.NewStore(db), albums),
		assistant:     chat.NewAssistant(chat.NewStore(db), llm, albums),
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	log.Printf("[Server] ポート%sで起動します", s.cfg.Port)
	return s.router.Run(fmt.Sprintf(":%s", s.cfg.Port))
}

// Shutdown はサーバーが保持するリソースを解放する。
func (s *Server) Shutdown() error {
	return s.db.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	{
		albums := api.Group("/albums")
		{
			// アルバム一覧取得（ソート・ページネーション付き）
			albums.GET("", s.handleListAlbums())
			// 注目アルバム一覧取得
			albums.GET("/featured", s.handleFeaturedAlbums())
			// アルバム詳細取得
			albums.GET("/:id", s.handleGetAlbum())
		}

		// ジャンル別アルバム数の集計
		api.GET("/genres", s.handleListGenres())

		battles := api.Group("/battles")
		{
			// 対戦セッション開始
			battles.POST("", s.handleStartBattle())
			// 対戦セッション状態取得
			battles.GET("/:id", s.handleGetBattle())
			// 現在のラウンドへの投票
			battles.POST("/:id/vote", s.handleVoteBattle())
		}

		// AI音楽推薦チャット
		api.POST("/chat", s.handleChat())

		admin := api.Group("/admin")
		admin.Use(middleware.JWTAuth(s.cfg.JWTSecret), middleware.RequireAdmin())
		{
			notifications := admin.Group("/notifications")
			{
				// 通知一覧取得
				notifications.GET("", s.handleListNotifications())
				// 通知の確認（ID指定または一括）
				notifications.POST("/acknowledge", s.handleAcknowledgeNotifications())
				// 確認済み通知の掃除
				notifications.DELETE("", s.handleClearNotifications())
				// 通知のリアルタイム配信（SSE）
				notifications.GET("/stream", s.handleStreamNotifications())
			}
		}

		internal := api.Group("/internal")
		internal.Use(middleware.JWTAuth(s.cfg.JWTSecret), middleware.RequireAdmin())
		{
			// 通知の発行（バックエンド内部の報告用）
			internal.POST("/notifications", s.handleEnqueueNotification())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "music-central"})
	})
}
