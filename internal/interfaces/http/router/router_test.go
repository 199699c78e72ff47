package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"math-video-api/internal/application/mathvideo"
	"math-video-api/internal/config"
	"math-video-api/internal/interfaces/http/handler"
)

type echoGenerator struct{}

func (echoGenerator) Generate(ctx context.Context, req mathvideo.Request) (*mathvideo.Result, error) {
	return &mathvideo.Result{ID: "render-1", RequestID: req.RequestID, VideoURL: "http://localhost:5000/static/" + req.RequestID + ".mp4"}, nil
}

func (echoGenerator) DemoURL() string { return "http://localhost:5000/static/video.mp4" }

func newTestRouter(t *testing.T, limit gin.HandlerFunc) (*Router, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "video.mp4"), []byte("demo"), 0o644))

	cfg := &config.Config{}
	cfg.App.Name = "math-video-api"
	cfg.Publish.Local.Dir = dir
	cfg.Publish.Local.URLPath = "/static"
	cfg.Observability.Metrics.Enabled = true
	cfg.Observability.Metrics.Path = "/metrics"

	return New(cfg, Handlers{
		Health: handler.NewHealthHandler("test", nil, nil, nil),
		Video:  handler.NewVideoHandler(echoGenerator{}),
		Render: handler.NewRenderHandler(nil),
	}, limit), dir
}

func do(r *Router, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)
	return w
}

func TestRoutes(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	tests := []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/live", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/generate-video", http.StatusOK},
		{http.MethodGet, "/static/video.mp4", http.StatusOK},
		{http.MethodGet, "/static/missing.mp4", http.StatusNotFound},
		{http.MethodGet, "/v1/renders/abc", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := do(r, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.status, w.Code, "%s %s", tt.method, tt.path)
	}
}

func TestGenerateVideoPassesRequestID(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	form := url.Values{"text": {"x^2"}}
	req := httptest.NewRequest(http.MethodPost, "/generate-video", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Request-ID", "abc123")

	w := do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"videoUrl":"http://localhost:5000/static/abc123.mp4"}`, w.Body.String())
	assert.Equal(t, "abc123", w.Header().Get("X-Request-ID"))
}

func TestRateLimitOnlyOnGenerate(t *testing.T) {
	blocked := func(c *gin.Context) { c.AbortWithStatus(http.StatusTooManyRequests) }
	r, _ := newTestRouter(t, blocked)

	w := do(r, httptest.NewRequest(http.MethodPost, "/generate-video", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/generate-video", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
