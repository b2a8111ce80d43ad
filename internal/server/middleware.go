package server

import (
	"net/http"
	"time"

	"github.com/tanu360/apple-intelligence-api/internal/core"

	"github.com/gin-gonic/gin"
)

func (s *Server) maxBodySizeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, core.MaxRequestBodySize)
		c.Next()
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	allowOrigin := s.config.CORSAllowOrigin
	if allowOrigin == "" {
		allowOrigin = core.DefaultCORSAllowOrigin
	}

	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Max-Age", core.CORSMaxAge)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// metricsMiddleware records the duration of every served request.
func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer trackPerformanceWithMetrics(s.metricsService, time.Now())()
		c.Next()
	}
}

// recoverPanic answers with an internal error unless the response is
// already under way.
func (s *Server) recoverPanic(c *gin.Context, recovered any) {
	s.config.Logger.Error("Panic in handler %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
	if c.Writer.Written() {
		c.Abort()
		return
	}
	respondWithAPIError(c, core.NewInternalError("internal server error", nil))
	c.Abort()
}
