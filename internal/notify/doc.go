// Package notify は管理者向けリアルタイム通知パイプラインの中核を提供する。
//
// 外部のイベント源（エラーレポータやバッチジョブ）が登録した通知レコードを
// プロセス内に保持し、接続中の全購読者へイベントとして即時配信する。
// 購読開始時には未確認のcritical通知を再送（キャッチアップ）し、
// 確認（acknowledge）と確認済みレコードの掃除までのライフサイクルを管理する。
// レコードは永続化されず、プロセスの再起動で失われる。
package notify
