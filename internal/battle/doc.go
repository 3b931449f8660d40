// Package battle はアルバム対戦ゲームを提供する。
//
// カタログから無作為に選んだ2枚のアルバムを提示し、ユーザーの投票を
// ラウンドごとに記録する。全ラウンド終了時には勝者アルバムのジャンル・
// バイブス・年代を集計し、音楽の好みプロファイルを返す。
// セッションとラウンドはSQLiteに永続化される。
package battle
