package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/config"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Logging.Level = "error"
	cfg.Storage.Driver = "memory"
	cfg.RateLimit.Enabled = false
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	require.Eventually(t, srv.Ready, 5*time.Second, 10*time.Millisecond)
	return srv
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestNewServerRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "redis"
	_, err := NewServer(cfg)
	assert.Error(t, err)
}

func TestServerRoutes(t *testing.T) {
	srv := newTestServer(t, testConfig(t))
	h := srv.Handler()

	w := get(h, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	assert.Contains(t, w.Body.String(), `"connected":false`)

	w = get(h, "/tabs/3/state")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"playingAds":false`)

	w = get(h, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admonitor_http_requests_total")

	// Plain GET without upgrade headers
	w = get(h, "/bridge")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTPBridgeHasNoUpgradeRoute(t *testing.T) {
	cfg := testConfig(t)
	cfg.Host.Bridge = "http"
	srv := newTestServer(t, cfg)

	assert.Equal(t, http.StatusNotFound, get(srv.Handler(), "/bridge").Code)
}

func TestToggleWithoutShimFails(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	req := httptest.NewRequest(http.MethodPost, "/message", strings.NewReader(`{"task":"toggleMute","tabId":3}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":false}`, w.Body.String())
}

func TestSQLiteStatePersists(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "state.db")

	srv, err := NewServer(cfg)
	require.NoError(t, err)
	require.Eventually(t, srv.Ready, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, srv.store.SetMuted(t.Context(), 9, true))
	require.NoError(t, srv.Close())

	reopened := newTestServer(t, cfg)
	assert.True(t, reopened.store.Get(9).Muted)
}
