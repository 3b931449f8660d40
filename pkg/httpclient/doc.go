// Package httpclient は外部APIとのHTTP通信を行うクライアントを提供する。
//
// アルバムデータAPIからのコレクション取得、チャット補完APIへの
// 問い合わせなど、外部サービスとの通信パターンを統一する。
// 2xx以外のレスポンスは*APIErrorとして返し、呼び出し側が
// ステータスコードに応じたハンドリングを行えるようにする。
package httpclient
