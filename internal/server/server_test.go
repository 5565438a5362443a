package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"media-bot/internal/health"
)

type staticChecker struct {
	name   string
	status health.Status
}

func (c staticChecker) Name() string { return c.name }

func (c staticChecker) Check(context.Context) health.CheckResult {
	return health.CheckResult{Status: c.status}
}

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRouter_Root(t *testing.T) {
	r := NewRouter(Options{Health: health.NewManager("test")})

	rec := serve(t, r, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "media-bot is running", rec.Body.String())
}

func TestRouter_Healthz(t *testing.T) {
	r := NewRouter(Options{Health: health.NewManager("1.2.3")})

	rec := serve(t, r, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp health.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, health.StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestRouter_Readyz(t *testing.T) {
	tests := []struct {
		name     string
		status   health.Status
		wantCode int
	}{
		{"healthy", health.StatusHealthy, http.StatusOK},
		{"degraded", health.StatusDegraded, http.StatusOK},
		{"unhealthy", health.StatusUnhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := health.NewManager("test")
			m.RegisterChecker(staticChecker{name: "probe", status: tt.status})
			r := NewRouter(Options{Health: m})

			rec := serve(t, r, http.MethodGet, "/readyz")
			require.Equal(t, tt.wantCode, rec.Code)

			var resp health.ReadinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.status, resp.Checks["probe"].Status)
		})
	}
}

func TestRouter_Metrics(t *testing.T) {
	r := NewRouter(Options{})

	rec := serve(t, r, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRouter_WebhookMountedOnlyWhenConfigured(t *testing.T) {
	var hits int
	hook := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	})

	r := NewRouter(Options{Webhook: hook, WebhookPath: "abc123"})
	rec := serve(t, r, http.MethodPost, "/abc123")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, hits)

	rec = serve(t, r, http.MethodPost, "/other")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	r = NewRouter(Options{})
	rec = serve(t, r, http.MethodPost, "/abc123")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, hits)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(Options{Health: health.NewManager("test")})
	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	client := &http.Client{Transport: &http.Transport{}, Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `"status":"healthy"`))
	client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	require.NoError(t, <-done)
}
