package server

import (
	"context"
	"net/http"

	"github.com/tanu360/apple-intelligence-api/internal/core"

	"github.com/gin-gonic/gin"
)

// availability returns the capability's availability, memoized for the
// configured status cache TTL.
func (s *Server) availability(ctx context.Context) core.Availability {
	if cached, ok := s.cache.GetAvailability(s.config.Engine); ok {
		return cached
	}
	a := s.capability.Availability(ctx)
	s.cache.SetAvailability(s.config.Engine, a)
	return a
}

func (s *Server) supportedLanguages(ctx context.Context) []string {
	if cached, ok := s.cache.GetLanguages(s.config.Engine); ok {
		return cached
	}
	languages := s.capability.SupportedLanguages(ctx)
	if languages == nil {
		languages = []string{}
	}
	s.cache.SetLanguages(s.config.Engine, languages)
	return languages
}

func (s *Server) getStatus(c *gin.Context) {
	ctx := c.Request.Context()
	a := s.availability(ctx)

	reason := a.Reason
	if a.Available {
		reason = reasonOr(reason, "model is ready")
	} else {
		reason = reasonOr(reason, "model is not available")
	}

	c.JSON(http.StatusOK, core.StatusResponse{
		ModelAvailable:              a.Available,
		Reason:                      reason,
		SupportedLanguages:          s.supportedLanguages(ctx),
		ServerVersion:               s.config.ServerVersion,
		AppleIntelligenceCompatible: a.Eligible,
	})
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) getStatsData(c *gin.Context) {
	c.JSON(http.StatusOK, s.metricsService.Snapshot())
}

func (s *Server) notFound(c *gin.Context) {
	apiErr := core.NewInvalidRequestf("unknown route %s %s", c.Request.Method, c.Request.URL.Path)
	apiErr.Code = "not_found"
	c.JSON(http.StatusNotFound, apiErr.Body())
}
