package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestRunStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model_available":true,"reason":"model is ready"}`))
	}))
	defer ts.Close()

	var out bytes.Buffer
	require.NoError(t, runStatus(context.Background(), &out, ts.URL))
	assert.True(t, gjson.Get(out.String(), "model_available").Bool())
}

func TestRunStatus_Errors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	var out bytes.Buffer
	assert.ErrorContains(t, runStatus(context.Background(), &out, ts.URL), "500")

	unreachable := httptest.NewServer(http.NotFoundHandler())
	addr := unreachable.URL
	unreachable.Close()
	assert.ErrorContains(t, runStatus(context.Background(), &out, addr), "unreachable")
	assert.Empty(t, out.String())
}
