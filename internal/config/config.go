package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DatabaseConfig はローカルSQLiteデータベースの設定。
type DatabaseConfig struct {
	// Path はデータベースファイルのパス。
	Path string `mapstructure:"path"`
}

// CatalogConfig は外部アルバムデータAPIの設定。
type CatalogConfig struct {
	// BaseURL はアルバムデータAPIのベースURL。
	BaseURL string `mapstructure:"base_url"`
	// APIKey はアルバムデータAPIの認証キー。
	APIKey string `mapstructure:"api_key"`
}

// ChatConfig はAIチャットアシスタントの設定。
type ChatConfig struct {
	// BaseURL はチャット補完APIのベースURL。
	BaseURL string `mapstructure:"base_url"`
	// APIKey はチャット補完APIの認証キー。
	APIKey string `mapstructure:"api_key"`
	// Model は使用するモデル名。
	Model string `mapstructure:"model"`
	// MaxTokens は1回の応答で生成するトークン数の上限。
	MaxTokens int `mapstructure:"max_tokens"`
	// RequestsPerMinute はチャット補完APIへの毎分リクエスト数の上限。
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// NotifyConfig は通知パイプラインの設定。
type NotifyConfig struct {
	// SubscriberBuffer は購読者ごとのイベントバッファサイズ。
	SubscriberBuffer int `mapstructure:"subscriber_buffer"`
}

// Config はAPIサーバー全体の設定。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string `mapstructure:"port"`
	// JWTSecret はJWTトークン検証用の共有シークレット。
	JWTSecret string `mapstructure:"jwt_secret"`
	// FrontendURL はCORSで許可するフロントエンドのオリジン。
	FrontendURL string `mapstructure:"frontend_url"`
	// Database はローカルデータベースの設定。
	Database DatabaseConfig `mapstructure:"database"`
	// Catalog は外部アルバムデータAPIの設定。
	Catalog CatalogConfig `mapstructure:"catalog"`
	// Chat はAIチャットアシスタントの設定。
	Chat ChatConfig `mapstructure:"chat"`
	// Notify は通知パイプラインの設定。
	Notify NotifyConfig `mapstructure:"notify"`
}

// setDefaults は全設定キーのデフォルト値を登録する。
// 全キーにデフォルトを持たせることで、環境変数のみでの上書きも機能する。
func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("jwt_secret", "dev-secret-key")
	v.SetDefault("frontend_url", "http://localhost:3000")
	v.SetDefault("database.path", "/data/music-central.db")
	v.SetDefault("catalog.base_url", "http://localhost:8090")
	v.SetDefault("catalog.api_key", "")
	v.SetDefault("chat.base_url", "https://api.deepseek.com")
	v.SetDefault("chat.api_key", "")
	v.SetDefault("chat.model", "deepseek-chat")
	v.SetDefault("chat.max_tokens", 1024)
	v.SetDefault("chat.requests_per_minute", 20)
	v.SetDefault("notify.subscriber_buffer", 64)
}

// Load は指定パスのYAMLファイルと環境変数から設定を読み込む。
// ファイルが存在しない場合はデフォルト値と環境変数のみで構成する。
// 環境変数は MUSIC_CENTRAL_ プレフィックス付きで全キーを上書きできる
// （例: MUSIC_CENTRAL_CHAT_API_KEY）。
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MUSIC_CENTRAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("設定のパースに失敗: %w", err)
	}
	return cfg, nil
}
