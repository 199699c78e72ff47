package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"math-video-api/internal/config"
)

func writeVideo(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "MathAnimation.mp4")
	require.NoError(t, os.WriteFile(p, []byte("fake-mp4"), 0o644))
	return p
}

func TestLocalPublish(t *testing.T) {
	static := filepath.Join(t.TempDir(), "static")
	l := NewLocal(config.LocalPublishConfig{Dir: static, URLPath: "/static/"}, "http://localhost:5000/")
	src := writeVideo(t)

	got, err := l.Publish(context.Background(), "rid-1", src)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/static/rid-1.mp4", got)

	assert.NoFileExists(t, src)
	data, err := os.ReadFile(filepath.Join(static, "rid-1.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "fake-mp4", string(data))
	assert.Equal(t, config.PublishModeLocal, l.Mode())
}

func TestLocalPublishMissingSource(t *testing.T) {
	l := NewLocal(config.LocalPublishConfig{Dir: t.TempDir(), URLPath: "static"}, "http://x")
	_, err := l.Publish(context.Background(), "rid-2", filepath.Join(t.TempDir(), "nope.mp4"))
	assert.Error(t, err)
}

func TestObjectStorePublish(t *testing.T) {
	var (
		mu      sync.Mutex
		path    string
		ctype   string
		payload []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusOK)
			return
		}
		mu.Lock()
		path = r.URL.Path
		ctype = r.Header.Get("Content-Type")
		payload, _ = io.ReadAll(r.Body)
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	s, err := NewObjectStore(config.R2Config{
		Endpoint:        u.Host,
		AccessKeyID:     "AK",
		SecretAccessKey: "SK",
		Bucket:          "math-videos",
		KeyPrefix:       "/videos/",
		PublicURL:       "https://cdn.example.com/",
	})
	require.NoError(t, err)
	assert.Equal(t, "videos/rid-3.mp4", s.Key("rid-3"))

	src := writeVideo(t)
	got, err := s.Publish(context.Background(), "rid-3", src)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/videos/rid-3.mp4", got)
	assert.NoFileExists(t, src)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/math-videos/videos/rid-3.mp4", path)
	assert.Equal(t, "video/mp4", ctype)
	// 明文 HTTP 下 minio 使用 aws-chunked 分块签名，只校验载荷被包含
	assert.Contains(t, string(payload), "fake-mp4")
}

func TestEndpointFor(t *testing.T) {
	ep, err := endpointFor(config.R2Config{AccountID: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "abc.r2.cloudflarestorage.com", ep)

	_, err = endpointFor(config.R2Config{})
	assert.Error(t, err)
}
