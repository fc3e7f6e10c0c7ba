// Package errs はアプリケーション共通のエラー種別を定義します。
//
// エラーメッセージの文字列マッチングではなく、明示的な種別（Kind）で
// HTTPステータスコードへのマッピングを行います。
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind はエラーの種別を表す
type Kind int

const (
	// KindInternal は予期しない内部エラー（500）
	KindInternal Kind = iota
	// KindConfiguration は起動時の設定エラー（起動中断、HTTPには乗らない）
	KindConfiguration
	// KindNotFound はカメラ未登録などの未検出エラー（404）
	KindNotFound
	// KindUnavailable は上流カメラの取得失敗（503）
	KindUnavailable
	// KindInvalidParameter はリクエストパラメータの検証エラー（400）
	KindInvalidParameter
	// KindAccessDenied は認証・認可の失敗（403）
	KindAccessDenied
)

// Error は種別付きのアプリケーションエラー
type Error struct {
	Kind    Kind
	Message string
	Err     error // ラップされた原因（省略可）
}

// Error はerrorインターフェースを実装する
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap はラップされた原因エラーを返す
func (e *Error) Unwrap() error {
	return e.Err
}

// New は種別とメッセージから新しいエラーを作成する
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf は書式付きメッセージから新しいエラーを作成する
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap は原因エラーをラップした新しいエラーを作成する
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf はエラーチェーンから種別を取り出す。
// 種別付きエラーが見つからない場合はKindInternalを返す。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus は種別に対応するHTTPステータスコードを返す
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindInvalidParameter:
		return http.StatusBadRequest
	case KindAccessDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Label は種別のレスポンス用ラベルを返す
func (k Kind) Label() string {
	switch k {
	case KindConfiguration:
		return "configuration_error"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "camera_unavailable"
	case KindInvalidParameter:
		return "bad_request"
	case KindAccessDenied:
		return "forbidden"
	default:
		return "internal_error"
	}
}
