// Package migration はembedされたSQLファイルによるスキーマ管理を提供する。
// 適用済みバージョンはコンポーネント単位でschema_migrationsテーブルに記録する
// ため、複数の機能がひとつのデータベースファイルを安全に共有できる。
package migration

import (
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strconv"
	"strings"
)

// migration は1つのマイグレーションファイルを表す。
type migration struct {
	// version はファイル名先頭の連番。
	version int
	// description はファイル名のバージョンに続く説明部分。
	description string
	// path はfsys内のファイルパス。
	path string
}

// Run はembedされたマイグレーションファイルをバージョン順に適用する。
// 指定コンポーネントで未適用のマイグレーションのみ実行し、適用済みのものは
// スキップする。ファイル名形式: 000001_description.up.sql
func Run(db *sql.DB, fsys fs.FS, dir, component string) error {
	if err := ensureVersionTable(db); err != nil {
		return fmt.Errorf("バージョン管理テーブルの作成に失敗: %w", err)
	}

	applied, err := appliedVersions(db, component)
	if err != nil {
		return fmt.Errorf("%sの適用済みバージョンの取得に失敗: %w", component, err)
	}

	migrations, err := loadMigrations(fsys, dir)
	if err != nil {
		return fmt.Errorf("マイグレーションファイルの列挙に失敗: %w", err)
	}

	for _, m := range migrations {
		if _, ok := applied[m.version]; ok {
			continue
		}

		if err := m.apply(db, fsys, component); err != nil {
			return fmt.Errorf("%sのマイグレーション %06d の適用に失敗: %w", component, m.version, err)
		}
		log.Printf("[Migration] %s: %06d_%s を適用しました", component, m.version, m.description)
	}

	return nil
}

// ensureVersionTable はバージョン管理テーブルを作成する。
func ensureVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			component  TEXT     NOT NULL,
			version    INTEGER  NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (component, version)
		)
	`)
	return err
}

// appliedVersions は指定コンポーネントの適用済みバージョンの集合を返す。
func appliedVersions(db *sql.DB, component string) (map[int]struct{}, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations WHERE component = ?", component)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]struct{})
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = struct{}{}
	}
	return applied, rows.Err()
}

// parseEntryName はマイグレーションファイル名からバージョンと説明を取り出す。
// 形式に合わない名前はfalseを返して呼び出し側にスキップさせる。
func parseEntryName(name string) (int, string, bool) {
	if !strings.HasSuffix(name, ".up.sql") {
		return 0, "", false
	}
	numberPart, rest, found := strings.Cut(name, "_")
	if !found {
		return 0, "", false
	}
	version, err := strconv.Atoi(numberPart)
	if err != nil {
		return 0, "", false
	}
	return version, strings.TrimSuffix(rest, ".up.sql"), true
}

// loadMigrations はディレクトリからup.sqlファイルを列挙してバージョン順に並べる。
func loadMigrations(fsys fs.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var migrations []migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, description, ok := parseEntryName(entry.Name())
		if !ok {
			continue
		}
		migrations = append(migrations, migration{
			version:     version,
			description: description,
			path:        dir + "/" + entry.Name(),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].version < migrations[j].version
	})

	return migrations, nil
}

// apply はマイグレーションのSQL実行とバージョン記録を1つのトランザクションで行う。
func (m migration) apply(db *sql.DB, fsys fs.FS, component string) error {
	content, err := fs.ReadFile(fsys, m.path)
	if err != nil {
		return fmt.Errorf("SQLファイルの読み込みに失敗: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(content)); err != nil {
		return fmt.Errorf("マイグレーションSQLの実行に失敗: %w", err)
	}

	if _, err := tx.Exec("INSERT INTO schema_migrations (component, version) VALUES (?, ?)", component, m.version); err != nil {
		return fmt.Errorf("適用バージョンの記録に失敗: %w", err)
	}

	return tx.Commit()
}
