// Package gateway はスナップショットリクエストのオーケストレーションを担います。
//
// 1リクエストの流れ: 認可 → キャッシュ参照 → ベンダーアダプタで取得 →
// 画像変換 → キャッシュ格納 → プレビュー永続化（非同期）。
// 同一キーへの同時キャッシュミスは重複取得になるが、これは意図した挙動
// （single-flight重複排除は行わない）。
package gateway

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"camproxy/internal/access"
	"camproxy/internal/cache"
	"camproxy/internal/camera"
	"camproxy/internal/errs"
	"camproxy/internal/imaging"
	"camproxy/internal/metrics"
	"camproxy/internal/storage"
)

// validQualities は受け付ける画質の集合
var validQualities = []string{"low", "medium", "high"}

// Gateway はリクエスト処理の中心となるオーケストレータ
type Gateway struct {
	registry    *camera.Registry
	cache       *cache.Cache
	transformer *imaging.Transformer
	store       *storage.SnapshotStore
	access      *access.Service
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// New はGatewayを構築する
func New(
	registry *camera.Registry,
	snapCache *cache.Cache,
	transformer *imaging.Transformer,
	store *storage.SnapshotStore,
	accessSvc *access.Service,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Gateway {
	return &Gateway{
		registry:    registry,
		cache:       snapCache,
		transformer: transformer,
		store:       store,
		access:      accessSvc,
		metrics:     m,
		logger:      logger,
	}
}

// SnapshotResult はスナップショット取得の結果
type SnapshotResult struct {
	Data     []byte
	CacheHit bool
}

// CameraInfo はカメラ一覧APIの1項目
type CameraInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Access はアクセス制御サービスを返す（ミドルウェアから利用）
func (g *Gateway) Access() *access.Service {
	return g.access
}

// CacheStats はキャッシュ統計を返す（ヘルスチェック用）
func (g *Gateway) CacheStats() cache.Stats {
	return g.cache.Stats()
}

// CameraCount は登録カメラ数を返す
func (g *Gateway) CameraCount() int {
	return len(g.registry.List())
}

// validateQuality は画質指定を検証する
func validateQuality(quality string) error {
	if !lo.Contains(validQualities, quality) {
		return errs.Newf(errs.KindInvalidParameter, "invalid quality %q, must be one of: low, medium, high", quality)
	}
	return nil
}

// authorizeCamera はプロファイルのカメラ認可を検証する
func (g *Gateway) authorizeCamera(p *access.Profile, cameraID string) error {
	if !g.access.Authorize(p, cameraID) {
		g.logger.Warn().Str("profile", p.Name).Str("camera", cameraID).Msg("camera access denied")
		return errs.Newf(errs.KindAccessDenied, "no access to camera %q", cameraID)
	}
	return nil
}

// Snapshot は1回のスナップショットリクエストを処理する。
// crop/rotateなしのリクエストのみキャッシュを読み書きする。
func (g *Gateway) Snapshot(ctx context.Context, p *access.Profile, cameraID string, req imaging.Request) (SnapshotResult, error) {
	if err := validateQuality(req.Quality); err != nil {
		return SnapshotResult{}, err
	}
	if err := g.authorizeCamera(p, cameraID); err != nil {
		return SnapshotResult{}, err
	}

	cam, ok := g.registry.Get(cameraID)
	if !ok {
		return SnapshotResult{}, errs.Newf(errs.KindNotFound, "camera not found: %s", cameraID)
	}

	cacheable := !req.HasTransform()
	key := cache.Key(cameraID, req.Quality)

	if cacheable {
		if data, hit := g.cache.Get(key); hit {
			g.logger.Debug().Str("camera", cameraID).Str("quality", req.Quality).Msg("cache hit")
			g.metrics.CacheHits.Inc()
			g.metrics.SnapshotRequests.WithLabelValues(cameraID, req.Quality, "hit").Inc()
			return SnapshotResult{Data: data, CacheHit: true}, nil
		}
		g.metrics.CacheMisses.Inc()
	}

	start := time.Now()
	raw, err := g.registry.FetchSnapshot(ctx, cameraID)
	if err != nil {
		g.metrics.SnapshotRequests.WithLabelValues(cameraID, req.Quality, "error").Inc()
		return SnapshotResult{}, err
	}
	g.metrics.FetchDuration.WithLabelValues(string(cam.Type)).Observe(time.Since(start).Seconds())

	processed, err := g.transformer.Process(raw, req)
	if err != nil {
		g.metrics.SnapshotRequests.WithLabelValues(cameraID, req.Quality, "error").Inc()
		return SnapshotResult{}, err
	}

	if cacheable {
		g.cache.Set(key, processed)
		g.persistPreview(cameraID, req.Quality, processed)
	}

	g.metrics.SnapshotRequests.WithLabelValues(cameraID, req.Quality, "miss").Inc()
	return SnapshotResult{Data: processed, CacheHit: false}, nil
}

// persistPreview はプレビューを非同期に永続化する。
// 失敗はログに残すだけで、リクエストには影響させない。
func (g *Gateway) persistPreview(cameraID, quality string, data []byte) {
	go func() {
		if err := g.store.Save(cameraID, quality, data); err != nil {
			g.logger.Error().Err(err).Str("camera", cameraID).Str("quality", quality).
				Msg("failed to persist preview snapshot")
		}
	}()
}

// Preview は最後に永続化されたスナップショットを返す。
// ライブ取得の完了前の初期表示に使われ、アダプタ経路には一切触れない。
func (g *Gateway) Preview(p *access.Profile, cameraID, quality string) ([]byte, error) {
	if err := validateQuality(quality); err != nil {
		return nil, err
	}
	if err := g.authorizeCamera(p, cameraID); err != nil {
		return nil, err
	}

	data, ok := g.store.Load(cameraID, quality)
	if !ok {
		g.metrics.PreviewRequests.WithLabelValues(cameraID, "miss").Inc()
		return nil, errs.New(errs.KindNotFound, "preview not available")
	}

	g.metrics.PreviewRequests.WithLabelValues(cameraID, "hit").Inc()
	return data, nil
}

// Cameras はプロファイルが認可されたカメラの一覧を返す
func (g *Gateway) Cameras(p *access.Profile) []CameraInfo {
	allowed := lo.Filter(g.registry.List(), func(cam camera.Descriptor, _ int) bool {
		return g.access.Authorize(p, cam.ID)
	})

	return lo.Map(allowed, func(cam camera.Descriptor, _ int) CameraInfo {
		return CameraInfo{ID: cam.ID, Name: cam.Name, Type: string(cam.Type)}
	})
}
