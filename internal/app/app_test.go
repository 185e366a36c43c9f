package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/tada/internal/config"
	"github.com/idilsaglam/tada/internal/conn"
	"github.com/idilsaglam/tada/internal/logging"
	"github.com/idilsaglam/tada/internal/mockapi"
	"github.com/idilsaglam/tada/internal/notify"
	"github.com/idilsaglam/tada/internal/remote"
	"github.com/idilsaglam/tada/internal/store/jsonstore"
)

func newApp(t *testing.T, backend config.Backend) *App {
	t.Helper()
	t.Setenv(conn.EnvVar, "")
	cfg := &config.Config{Backend: backend, DataDir: t.TempDir(), Listen: "127.0.0.1:0"}
	a, err := New(cfg, logging.Discard())
	require.NoError(t, err)
	return a
}

func TestLocalBackend(t *testing.T) {
	a := newApp(t, config.BackendLocal)
	_, ok := a.Store.(*jsonstore.Store)
	assert.True(t, ok)
	assert.False(t, a.Remote())

	ctx := context.Background()
	td, ok := a.Store.Add(ctx, "buy milk")
	require.True(t, ok)
	assert.Len(t, a.Store.List(ctx), 1)
	assert.True(t, a.Store.Remove(ctx, td.ID))
}

func TestRemoteBackendUsesMock(t *testing.T) {
	a := newApp(t, config.BackendRemote)
	_, ok := a.Store.(*remote.Client)
	require.True(t, ok)
	assert.True(t, a.Remote())

	rec := &notify.Recorder{}
	a.SetNotifier(rec)

	ctx := context.Background()
	_, ok = a.Store.Add(ctx, "buy milk")
	assert.False(t, ok, "gate unset")
	require.Len(t, rec.Notices(), 1)

	require.NoError(t, a.Gate.Set("mongodb://localhost"))
	_, ok = a.Store.Add(ctx, "buy milk")
	require.True(t, ok)
	assert.Len(t, a.Mock.Snapshot(), 1)

	require.NoError(t, a.Gate.Clear())
	assert.Empty(t, a.Mock.Snapshot(), "clearing the gate resets the mock")
}

func TestRoutes(t *testing.T) {
	a := newApp(t, config.BackendRemote)
	h := a.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/todos", strings.NewReader(`{"text":"buy milk"}`))
	req.Header.Set(mockapi.Header, "mongodb://x")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/todos", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tada_mockapi_requests_total{code="201",method="POST",route="/api/todos"} 1`)
}

func TestServeStopsOnCancel(t *testing.T) {
	a := newApp(t, config.BackendRemote)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}
