// Package logging はzerologベースの構造化ログを提供します。
//
// 環境変数LOG_LEVELでレベル、LOG_FORMAT=consoleで人間向け出力を選択できます。
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// New はルートロガーを作成する
func New(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(lvl).With().Timestamp().Logger()
}

// RequestID はリクエスト識別子を生成する。
// 可読性のためUUIDの先頭8文字を使用する。
func RequestID() string {
	return uuid.New().String()[:8]
}
