package server

import (
	"time"

	"github.com/tanu360/apple-intelligence-api/internal/core"
	"github.com/tanu360/apple-intelligence-api/internal/metrics"

	"github.com/gin-gonic/gin"
)

// setStreamingHeaders sets streaming response HTTP headers
func setStreamingHeaders(c *gin.Context) {
	c.Header(core.HeaderContentType, core.ContentTypeEventStream)
	c.Header(core.HeaderCacheControl, core.CacheControlNoCache)
	c.Header(core.HeaderConnection, core.ConnectionKeepAlive)
}

// respondWithAPIError writes the OpenAI error envelope with the status for err's kind
func respondWithAPIError(c *gin.Context, err error) {
	apiErr := core.AsAPIError(err)
	c.JSON(apiErr.HTTPStatus(), apiErr.Body())
}

// trackPerformanceWithMetrics records performance metrics
func trackPerformanceWithMetrics(m core.MetricsCollector, startTime time.Time) func() {
	return func() {
		m.RecordHTTPRequest(time.Since(startTime))
	}
}

// recordRequestResultWithMetrics records request result
func recordRequestResultWithMetrics(m core.MetricsCollector, success bool, startTime time.Time, model string, stream bool) {
	if success {
		metrics.RecordSuccessWithMetrics(m, startTime, model, stream)
	} else {
		metrics.RecordFailureWithMetrics(m, startTime, model, stream)
	}
}

// reasonOr returns reason, or fallback when the capability gave none
func reasonOr(reason, fallback string) string {
	if reason == "" {
		return fallback
	}
	return reason
}
