package battle

import (
	"embed"

	"github.com/jmoiron/sqlx"

	"github.com/hannasage/music-central/pkg/migration"
)

//go:embed migrations
var migrationsFS embed.FS

// InitSchema はマイグレーションを実行して対戦ゲームのスキーマを適用する。
func InitSchema(db *sqlx.DB) error {
	return migration.Run(db.DB, migrationsFS, "migrations", "battle")
}
