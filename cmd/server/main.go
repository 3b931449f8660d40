// 音楽コレクションサイトのAPIサーバーのエントリポイント。
// アルバムカタログの閲覧、アルバム対戦ゲーム、AIチャット、管理者向け
// 通知センターをひとつのHTTPサーバーとして提供する。
package main

import (
	"log"
	"os"

	"github.com/hannasage/music-central/internal/config"
	"github.com/hannasage/music-central/internal/server"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("サーバーの初期化に失敗: %v", err)
	}

	if err := srv.Run(); err != nil {
		log.Fatalf("サーバーの起動に失敗: %v", err)
	}
}
