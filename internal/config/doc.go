// Package config はAPIサーバーの設定の読み込みを提供する。
//
// YAMLファイルと環境変数から設定を組み立てる。全てのキーはデフォルト値を
// 持ち、設定ファイルが無くてもサーバーを起動できる。
package config
