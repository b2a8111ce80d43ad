package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/tanu360/apple-intelligence-api/internal/config"
	"github.com/tanu360/apple-intelligence-api/internal/core"
	"github.com/tanu360/apple-intelligence-api/internal/engine"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, engine.NewFake(engine.WithAvailability(core.Availability{})))

	w := doRequest(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestGetStatus(t *testing.T) {
	tests := []struct {
		name         string
		availability core.Availability
		wantReason   string
	}{
		{"ready", core.Availability{Available: true, Eligible: true}, "model is ready"},
		{"downloading", core.Availability{Eligible: true, Reason: "Model assets are downloading"}, "Model assets are downloading"},
		{"ineligible", core.Availability{}, "model is not available"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, engine.NewFake(
				engine.WithAvailability(tt.availability),
				engine.WithLanguages("en", "fr", "ja"),
			))

			w := doRequest(s, http.MethodGet, "/status", "")
			require.Equal(t, http.StatusOK, w.Code)
			resp := gjson.Parse(w.Body.String())
			assert.Equal(t, tt.availability.Available, resp.Get("model_available").Bool())
			assert.Equal(t, tt.wantReason, resp.Get("reason").String())
			assert.Equal(t, `["en","fr","ja"]`, resp.Get("supported_languages").Raw)
			assert.Equal(t, core.DefaultServerVersion, resp.Get("server_version").String())
			assert.Equal(t, tt.availability.Eligible, resp.Get("apple_intelligence_compatible").Bool())
		})
	}
}

func TestListModels(t *testing.T) {
	s := newTestServer(t, engine.NewFake())

	w := doRequest(s, http.MethodGet, "/v1/models", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := gjson.Parse(w.Body.String())
	assert.Equal(t, "list", resp.Get("object").String())

	var ids []string
	for _, m := range resp.Get("data").Array() {
		ids = append(ids, m.Get("id").String())
		assert.Equal(t, "model", m.Get("object").String())
		assert.Equal(t, core.ModelOwner, m.Get("owned_by").String())
		assert.Equal(t, s.startedAt.Unix(), m.Get("created").Int())
	}
	assert.Equal(t, []string{core.ModelBase, core.ModelDeterministic, core.ModelCreative}, ids)
}

func TestListModels_Unavailable(t *testing.T) {
	s := newTestServer(t, engine.NewFake(engine.WithAvailability(core.Availability{Eligible: true})))

	w := doRequest(s, http.MethodGet, "/v1/models", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"object":"list","data":[]}`, w.Body.String())
}

func TestStatusCache(t *testing.T) {
	fake := engine.NewFake()
	s := newTestServer(t, fake, func(cfg *config.ServerConfig) {
		cfg.StatusCacheTTL = time.Minute
	})

	w := doRequest(s, http.MethodGet, "/status", "")
	assert.True(t, gjson.Get(w.Body.String(), "model_available").Bool())

	fake.SetAvailability(core.Availability{Eligible: true, Reason: "busy"})

	w = doRequest(s, http.MethodGet, "/status", "")
	assert.True(t, gjson.Get(w.Body.String(), "model_available").Bool(), "served from cache")

	s.cache.Invalidate(core.EngineFake)
	w = doRequest(s, http.MethodGet, "/status", "")
	assert.False(t, gjson.Get(w.Body.String(), "model_available").Bool())
	assert.Equal(t, "busy", gjson.Get(w.Body.String(), "reason").String())
}

func TestStatusCache_DisabledTracksCapability(t *testing.T) {
	fake := engine.NewFake()
	s := newTestServer(t, fake)

	fake.SetAvailability(core.Availability{Eligible: true})
	w := doRequest(s, http.MethodPost, "/v1/chat/completions", `{"messages":[{"role":"user","content":"Hi"}]}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	fake.SetAvailability(core.Availability{Available: true, Eligible: true})
	w = doRequest(s, http.MethodPost, "/v1/chat/completions", `{"messages":[{"role":"user","content":"Hi"}]}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t, engine.NewFake())

	doRequest(s, http.MethodPost, "/v1/chat/completions", `{"messages":[{"role":"user","content":"Hi"}]}`)
	doRequest(s, http.MethodPost, "/v1/chat/completions", `{"stream":true,"messages":[{"role":"user","content":"Hi"}]}`)
	doRequest(s, http.MethodPost, "/v1/chat/completions", `{"messages":[]}`)

	w := doRequest(s, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := gjson.Parse(w.Body.String())
	assert.Equal(t, int64(3), resp.Get("total_requests").Int())
	assert.Equal(t, int64(2), resp.Get("successful_requests").Int())
	assert.Equal(t, int64(1), resp.Get("failed_requests").Int())
	assert.Equal(t, int64(1), resp.Get("stream_requests").Int())
	assert.Equal(t, int64(3), resp.Get("http_requests").Int())
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, engine.NewFake(), func(cfg *config.ServerConfig) {
		cfg.CORSAllowOrigin = "https://chat.example.com"
	})

	w := doRequest(s, http.MethodOptions, "/v1/chat/completions", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://chat.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = doRequest(s, http.MethodGet, "/health", "")
	assert.Equal(t, "https://chat.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, engine.NewFake())

	w := doRequest(s, http.MethodGet, "/v1/completions", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", gjson.Get(w.Body.String(), "error.code").String())
}

func TestRecoverPanic(t *testing.T) {
	s := newTestServer(t, engine.NewFake())
	s.router.GET("/boom", func(*gin.Context) { panic("boom") })

	w := doRequest(s, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal_error", gjson.Get(w.Body.String(), "error.type").String())
}
