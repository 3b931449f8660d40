// Package chat はAIによる音楽推薦チャットを提供する。
//
// OpenAI互換のチャット補完APIを呼び出し、コレクションのアルバム一覧を
// 踏まえたシステムプロンプトと会話履歴から応答を生成する。会話と
// メッセージはSQLiteに永続化し、API呼び出しはレートリミッターで
// 分あたりの回数を制限する。
package chat
