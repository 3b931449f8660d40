// Package catalog はアルバムコレクションの読み取りアクセスを提供する。
//
// コレクションの本体は外部のアルバムデータAPIが保持しており、
// このパッケージはその取得クライアントと、取得結果に対する
// ソート・ページング・ジャンル集計の純粋なヘルパーを提供する。
package catalog
