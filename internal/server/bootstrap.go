package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"camproxy/internal/access"
	"camproxy/internal/cache"
	"camproxy/internal/camera"
	"camproxy/internal/config"
	"camproxy/internal/gateway"
	"camproxy/internal/imaging"
	"camproxy/internal/metrics"
	"camproxy/internal/storage"
)

// Bootstrap は設定から全コンポーネントを組み立てたServerを返す。
// カメラ設定の検証に失敗した場合はサーバーを起動せずエラーを返す。
func Bootstrap(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	registry := camera.NewRegistry(cfg.Cameras.Cameras, cfg.Cameras.VendorGlobals, logger)
	if err := registry.ValidateAll(); err != nil {
		return nil, err
	}

	store, err := storage.NewSnapshotStore(cfg.Server.SnapshotDir, logger)
	if err != nil {
		return nil, err
	}

	promReg := prometheus.NewRegistry()

	gw := gateway.New(
		registry,
		cache.New(cache.DefaultTTL, cache.DefaultSweepInterval),
		imaging.NewTransformer(cfg.Presets()),
		store,
		access.NewService(cfg.Profiles(), logger),
		metrics.New(promReg),
		logger,
	)

	logger.Info().
		Int("cameras", len(cfg.Cameras.Cameras)).
		Int("profiles", len(cfg.Access.Users)).
		Msg("configuration loaded")

	return New(cfg, gw, promReg, logger)
}
