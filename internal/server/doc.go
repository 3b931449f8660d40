// Package server は音楽コレクションサイトのバックエンドAPIサーバーを提供する。
// アルバムカタログの閲覧、アルバム対戦ゲーム、AIチャット、管理者向け
// 通知センターの各エンドポイントをひとつのHTTPサーバーに束ねる。
package server
