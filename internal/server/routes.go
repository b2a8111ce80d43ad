package server

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	gin.SetMode(s.ginMode)
	s.router = gin.New()

	if s.ginMode == gin.DebugMode {
		s.router.Use(gin.Logger())
	}
	s.router.Use(gin.CustomRecovery(s.recoverPanic))
	s.router.Use(s.metricsMiddleware())
	s.router.Use(s.corsMiddleware())
	s.router.Use(s.maxBodySizeMiddleware())

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/status", s.getStatus)
	s.router.GET("/api/stats", s.getStatsData)

	api := s.router.Group("/v1")
	{
		api.GET("/models", s.listModels)
		api.POST("/chat/completions", s.chatCompletions)
	}

	s.router.NoRoute(s.notFound)
}
