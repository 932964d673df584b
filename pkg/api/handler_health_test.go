package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/config"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/events"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/orchestrator"
)

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, events.Envelope) error { return nil }

func TestHealthHandler_NoPoolIsHealthy(t *testing.T) {
	s, _, _ := testServer(t)
	rec := doJSON(s, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, healthStatusHealthy, resp.Status)
}

func TestHealthHandler_WithRunningPoolIsHealthy(t *testing.T) {
	s, _, _ := testServer(t)
	pool := orchestrator.New(s.bus, noopDispatcher{}, &config.PipelineConfig{WorkerCount: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()
	s.SetPool(pool)

	rec := doJSON(s, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, healthStatusHealthy, resp.Status)
	require.Contains(t, resp.Checks, "worker_pool")
}
