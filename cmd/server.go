// Package main はcamproxyサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"camproxy/internal/config"
	"camproxy/internal/logging"
	"camproxy/internal/server"
)

func main() {
	// コマンドラインオプション
	var (
		host       = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port       = flag.Int("port", 0, "サーバーのポート (デフォルト: 3000)")
		configPath = flag.String("config", "", "設定ディレクトリ (デフォルト: ./config)")
		help       = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("camproxy")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定ディレクトリの上書きはLoadの前に反映する
	if *configPath != "" {
		if err := os.Setenv("CONFIG_PATH", *configPath); err != nil {
			log.Fatalf("設定パスの上書きに失敗しました: %v", err)
		}
	}

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger := logging.New(cfg.Server.LogLevel, cfg.Server.LogFormat)

	// コンポーネントを組み立てる
	srv, err := server.Bootstrap(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("起動前の初期化に失敗しました")
	}

	// サーバーを起動
	logger.Info().Str("addr", cfg.ServerAddress()).Msg("starting camproxy")
	if err := srv.Start(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("サーバーの起動に失敗しました")
	}
}
