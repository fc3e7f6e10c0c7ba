package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"camproxy/internal/access"
	"camproxy/internal/logging"
)

// profileKey はginコンテキストに格納するプロファイルのキー
const profileKey = "camproxy-profile"

// requestLogger はリクエストIDの付与とアクセスログを行うミドルウェア
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := logging.RequestID()
		c.Header("X-Request-Id", requestID)

		start := time.Now()
		c.Next()

		s.logger.Debug().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	}
}

// linkAuth はリンクトークンの解決とIP許可リストの適用を行うミドルウェア。
// 失敗の詳細（トークンの形式が近いか等）はレスポンスに含めない。
func (s *Server) linkAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		link := c.Param("link")
		clientIP := c.ClientIP()

		profile, ok := s.gateway.Access().Resolve(link)
		if !ok {
			abortAccessDenied(c, "Invalid link")
			return
		}

		if !s.gateway.Access().CheckIPAccess(profile, clientIP) {
			abortAccessDenied(c, "Access denied from your IP address")
			return
		}

		c.Set(profileKey, profile)
		c.Next()
	}
}

// abortAccessDenied は403でリクエストを打ち切る
func abortAccessDenied(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"error":   "forbidden",
		"message": message,
	})
}

// profileFrom はミドルウェアが格納したプロファイルを取り出す
func profileFrom(c *gin.Context) *access.Profile {
	return c.MustGet(profileKey).(*access.Profile)
}
