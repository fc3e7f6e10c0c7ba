package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"camproxy/internal/errs"
	"camproxy/internal/imaging"
)

// handleHealth は死活確認とキャッシュ統計を返す（認証なし）
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"cameras": s.gateway.CameraCount(),
		"cache":   s.gateway.CacheStats(),
	})
}

// handleSnapshot はスナップショットの取得・変換・配信を行う
func (s *Server) handleSnapshot(c *gin.Context) {
	cameraID := c.Param("id")
	quality := c.Param("quality")

	crop, err := parseCropParam(c.Query("crop"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	rotate, err := parseRotateParam(c.Query("rotate"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	req := imaging.Request{Quality: quality, Crop: crop, Rotate: rotate}

	result, err := s.gateway.Snapshot(c.Request.Context(), profileFrom(c), cameraID, req)
	if err != nil {
		s.renderError(c, err)
		return
	}

	cacheStatus := "MISS"
	if result.CacheHit {
		cacheStatus = "HIT"
	}

	c.Header("X-Cache", cacheStatus)
	c.Header("X-Camera-Id", cameraID)
	c.Header("X-Quality", quality)
	c.Data(http.StatusOK, "image/jpeg", result.Data)
}

// handlePreview は最後に永続化されたスナップショットを配信する
func (s *Server) handlePreview(c *gin.Context) {
	cameraID := c.Param("id")
	quality := c.Param("quality")

	data, err := s.gateway.Preview(profileFrom(c), cameraID, quality)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.Header("X-Preview", "true")
	c.Header("X-Camera-Id", cameraID)
	c.Header("X-Quality", quality)
	c.Data(http.StatusOK, "image/jpeg", data)
}

// handleCameras はリンクが認可されたカメラ一覧とデフォルト設定を返す
func (s *Server) handleCameras(c *gin.Context) {
	profile := profileFrom(c)

	c.JSON(http.StatusOK, gin.H{
		"cameras":         s.gateway.Cameras(profile),
		"defaultQuality":  profile.Quality,
		"refreshInterval": profile.RefreshInterval,
	})
}

// handleIndex はWeb UIのエントリページを配信する
func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", getIndexHTML())
}

// renderError はエラー種別に応じたJSONレスポンスを返す。
// 本番環境では内部エラーの詳細を漏らさない。
func (s *Server) renderError(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	status := kind.HTTPStatus()

	message := err.Error()
	if kind == errs.KindInternal {
		s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("internal error")
		if s.config.Server.Env == "production" {
			message = "Something went wrong"
		}
	} else {
		s.logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}

	c.JSON(status, gin.H{
		"error":   kind.Label(),
		"message": message,
	})
}
