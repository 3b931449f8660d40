package chat

import (
	"fmt"
	"strings"

	"github.com/hannasage/music-central/internal/catalog"
)

// maxPromptAlbums はシステムプロンプトに載せるアルバム数の上限。
const maxPromptAlbums = 50

// systemPrompt はコレクションの内容を踏まえた推薦用システムプロンプトを組み立てる。
func systemPrompt(albums []catalog.Album) string {
	var b strings.Builder
	b.WriteString("あなたは音楽コレクションサイトの案内役です。")
	b.WriteString("以下のコレクションに含まれるアルバムを踏まえ、ユーザーの好みに合う作品を日本語で簡潔に薦めてください。")
	b.WriteString("コレクションにない作品を薦める場合はその旨を明記してください。\n\n")
	b.WriteString("コレクション:\n")
	for i, album := range albums {
		if i >= maxPromptAlbums {
			b.WriteString(fmt.Sprintf("（ほか%d枚）\n", len(albums)-maxPromptAlbums))
			break
		}
		b.WriteString(albumLine(album))
	}
	return b.String()
}

// albumLine はアルバム1枚をプロンプトの1行に整形する。
func albumLine(album catalog.Album) string {
	line := fmt.Sprintf("- %s / %s", album.Title, album.Artist)
	if album.Year > 0 {
		line += fmt.Sprintf("（%d年）", album.Year)
	}
	if len(album.Genres) > 0 {
		line += " ジャンル: " + strings.Join(album.Genres, "・")
	}
	if len(album.Vibes) > 0 {
		line += " バイブス: " + strings.Join(album.Vibes, "・")
	}
	return line + "\n"
}
