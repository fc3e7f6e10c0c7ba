// Package server は、HTTPサーバーとルーティングを管理します。
//
// このパッケージは、HTTPサーバーの起動、リンクトークン配下のルート、
// 認証ミドルウェア、静的ファイルの配信を担当します。
//
// 責務:
//   - HTTPサーバーの起動とグレースフルシャットダウン
//   - リンクトークンの解決とIP許可リストの適用（ミドルウェア）
//   - crop/rotateクエリパラメータの解析と検証
//   - エラー種別からHTTPステータスへの変換
//   - 埋め込みWeb UI（HTML/CSS/JS）の配信
//
// 仕様:
//   - ルーティングはgin-gonic/ginを使用
//   - クライアントIPは信頼プロキシ設定に従ってginが導出する
//   - /healthと/metricsは認証なし
package server
