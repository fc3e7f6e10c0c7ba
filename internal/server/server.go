package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"camproxy/internal/config"
	"camproxy/internal/gateway"
)

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	gateway    *gateway.Gateway
	engine     *gin.Engine
	httpServer *http.Server
	logger     zerolog.Logger
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, gw *gateway.Gateway, promReg *prometheus.Registry, logger zerolog.Logger) (*Server, error) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	// クライアントIPの導出ポリシー（プロキシ許可リストまたは全面信頼）
	if err := configureTrustedProxies(engine, cfg); err != nil {
		return nil, fmt.Errorf("信頼プロキシの設定に失敗: %w", err)
	}

	s := &Server{
		config:  cfg,
		gateway: gw,
		engine:  engine,
		logger:  logger,
		httpServer: &http.Server{
			Addr:        cfg.ServerAddress(),
			Handler:     engine,
			ReadTimeout: 30 * time.Second,
			// 書き込みタイムアウトはRTSP取得の長いリクエストを考慮して無効化
			WriteTimeout: 0,
		},
	}

	s.setupRoutes(promReg)

	return s, nil
}

// configureTrustedProxies は環境変数の信頼プロキシ設定をginへ適用する
func configureTrustedProxies(engine *gin.Engine, cfg *config.Config) error {
	switch {
	case len(cfg.Server.TrustProxyIPs) > 0:
		return engine.SetTrustedProxies(cfg.Server.TrustProxyIPs)
	case cfg.Server.TrustProxy:
		return engine.SetTrustedProxies([]string{"0.0.0.0/0", "::/0"})
	default:
		return engine.SetTrustedProxies(nil)
	}
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes(promReg *prometheus.Registry) {
	// 認証なしのエンドポイント
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))
	s.engine.StaticFS("/assets", GetAssetsFS())

	// リンクトークン配下のカメラ配信ルート
	authorized := s.engine.Group("/:link", s.requestLogger(), s.linkAuth())
	authorized.GET("", s.handleIndex)
	authorized.GET("/api/cameras", s.handleCameras)
	authorized.GET("/camera/:id/:quality", s.handleSnapshot)
	authorized.GET("/camera/:id/:quality/preview", s.handlePreview)
}

// Start はサーバーを起動し、シグナルまたはコンテキストの終了まで待機する
func (s *Server) Start(ctx context.Context) error {
	shutdownCh := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("context cancelled")
	case sig := <-sigCh:
		s.logger.Info().Str("signal", sig.String()).Msg("signal received, shutting down")
	case err := <-shutdownCh:
		return err
	}

	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	s.logger.Info().Msg("http server stopped")
	return nil
}
