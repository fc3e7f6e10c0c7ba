// Package camera は、ベンダーごとのスナップショット取得アダプタを提供します。
//
// 各ベンダーのプロトコル差（認証方式、URL形式、サブプロセス起動）は
// Adapterインターフェースの背後に隠蔽され、呼び出し側はベンダー種別を
// 意識せずRegistry経由で取得を依頼します。
//
// 責務:
//   - カメラ記述子の保持と検索
//   - ベンダー種別からアダプタへのディスパッチ
//   - 起動時の設定検証（必須フィールド・資格情報の存在確認）
//   - 上流の失敗を単一のCameraUnavailableエラーへの正規化
//
// 仕様:
//   - カメラへの接続は毎回独立した往復（コネクションプールなし）
//   - 取得タイムアウトはアダプタごと（HTTPは5〜10秒、RTSPはカメラ単位で設定可能）
//   - Dahua系はHTTP Digest認証のハンドシェイクをinternal/digestに委譲
package camera
