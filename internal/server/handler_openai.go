package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/tanu360/apple-intelligence-api/internal/core"
	"github.com/tanu360/apple-intelligence-api/internal/profile"
	"github.com/tanu360/apple-intelligence-api/internal/stream"
	"github.com/tanu360/apple-intelligence-api/internal/util"
	"github.com/tanu360/apple-intelligence-api/internal/validate"

	"github.com/gin-gonic/gin"
)

func (s *Server) listModels(c *gin.Context) {
	list := core.ModelList{Object: core.ModelListObjectType, Data: []core.ModelInfo{}}

	if s.availability(c.Request.Context()).Available {
		for _, p := range profile.All() {
			list.Data = append(list.Data, core.ModelInfo{
				ID:      p.Name,
				Object:  core.ModelObjectType,
				Created: s.startedAt.Unix(),
				OwnedBy: core.ModelOwner,
			})
		}
	}

	c.JSON(http.StatusOK, list)
}

func (s *Server) chatCompletions(c *gin.Context) {
	startTime := time.Now()
	logger := s.config.Logger

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			err = core.NewInvalidRequestf("request body exceeds %d bytes", maxErr.Limit)
		} else {
			err = core.NewInvalidRequest("failed to read request body")
		}
		recordRequestResultWithMetrics(s.metricsService, false, startTime, "", false)
		respondWithAPIError(c, err)
		return
	}

	request, err := validate.DecodeChatRequest(body)
	if err != nil {
		logger.Debug("Rejected chat request: %v", err)
		recordRequestResultWithMetrics(s.metricsService, false, startTime, "", false)
		respondWithAPIError(c, err)
		return
	}

	if !request.Stream || s.config.StreamSamplingDefaults {
		validate.ApplySamplingDefaults(request)
	}
	resolution := profile.Resolve(request.Model, request.Temperature, request.TopP)
	model := resolution.Model()
	logger.Debug("Routed model=%q stream=%v to profile %s", request.Model, request.Stream, model)

	availability := s.availability(c.Request.Context())
	if !availability.Available {
		recordRequestResultWithMetrics(s.metricsService, false, startTime, model, request.Stream)
		respondWithAPIError(c, core.NewServiceUnavailable(reasonOr(availability.Reason, "model is not available"), nil))
		return
	}

	genReq := core.GenerateRequest{
		Messages:    request.Messages,
		Temperature: resolution.Temperature,
		TopP:        resolution.TopP,
		MaxTokens:   request.MaxTokens,
	}

	if request.Stream {
		s.handleStreamingResponse(c, genReq, model, startTime)
	} else {
		s.handleNonStreamingResponse(c, genReq, model, startTime)
	}
}

func (s *Server) handleNonStreamingResponse(c *gin.Context, genReq core.GenerateRequest, model string, startTime time.Time) {
	gen, err := s.capability.Generate(c.Request.Context(), genReq)
	if err != nil {
		s.config.Logger.Error("Generation failed for %s: %v", model, err)
		recordRequestResultWithMetrics(s.metricsService, false, startTime, model, false)
		respondWithAPIError(c, err)
		return
	}

	resp := buildChatCompletionResponse(util.GenerateResponseID(), time.Now().Unix(), model, genReq.Messages, gen, s.estimator)
	recordRequestResultWithMetrics(s.metricsService, true, startTime, model, false)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleStreamingResponse(c *gin.Context, genReq core.GenerateRequest, model string, startTime time.Time) {
	ctx := c.Request.Context()

	setStreamingHeaders(c)
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	framer := stream.NewFramer(c.Writer, util.GenerateResponseID(), time.Now().Unix(), model, s.config.Logger)

	fragments, err := s.capability.StreamGenerate(ctx, genReq)
	if err != nil {
		if ctx.Err() == nil {
			if failErr := framer.Fail(err); failErr != nil {
				s.config.Logger.Debug("Failed to write error frame: %v", failErr)
			}
		}
		recordRequestResultWithMetrics(s.metricsService, false, startTime, model, true)
		return
	}

	err = framer.Run(ctx, fragments)
	if err != nil && ctx.Err() != nil {
		s.config.Logger.Debug("Client went away during stream for %s after %d frames", model, framer.Frames())
	}
	recordRequestResultWithMetrics(s.metricsService, err == nil, startTime, model, true)
}
