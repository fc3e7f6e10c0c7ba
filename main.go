package main

import (
	"context"
	"log"

	"camproxy/internal/config"
	"camproxy/internal/logging"
	"camproxy/internal/server"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	logger := logging.New(cfg.Server.LogLevel, cfg.Server.LogFormat)

	// コンポーネントを組み立てる
	srv, err := server.Bootstrap(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("起動前の初期化に失敗しました")
	}

	// サーバーを起動
	if err := srv.Start(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("サーバーの起動に失敗しました")
	}
}
