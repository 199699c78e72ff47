package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"math-video-api/internal/application/upload"
)

// fakeUploadServer 模拟断点续传协议，failPut 指定第几次分片 PUT 返回 503
type fakeUploadServer struct {
	mu       sync.Mutex
	received []byte
	metadata map[string]any
	puts     int
	failPut  int
}

func (f *fakeUploadServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload/youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "resumable", r.URL.Query().Get("uploadType"))
		assert.Equal(t, "snippet,status", r.URL.Query().Get("part"))
		f.mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&f.metadata)
		f.mu.Unlock()
		w.Header().Set("Location", "http://"+r.Host+"/session/abc")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/session/abc", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		f.mu.Lock()
		defer f.mu.Unlock()

		cr := r.Header.Get("Content-Range")
		var total int
		if strings.HasPrefix(cr, "bytes */") {
			fmt.Sscanf(cr, "bytes */%d", &total)
		} else {
			f.puts++
			if f.puts == f.failPut {
				io.Copy(io.Discard, r.Body)
				http.Error(w, "backend error", http.StatusServiceUnavailable)
				return
			}
			var start, end int
			fmt.Sscanf(cr, "bytes %d-%d/%d", &start, &end, &total)
			assert.Equal(t, len(f.received), start)
			body, _ := io.ReadAll(r.Body)
			f.received = append(f.received, body...)
		}

		if len(f.received) < total {
			if len(f.received) > 0 {
				w.Header().Set("Range", fmt.Sprintf("bytes=0-%d", len(f.received)-1))
			}
			w.WriteHeader(statusResumeIncomplete)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"kind":"youtube#video","id":"dQw4w9WgXcQ"}`))
	})
	return mux
}

func writeVideo(t *testing.T, size int) (string, []byte) {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	p := filepath.Join(t.TempDir(), "video.mp4")
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p, data
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestSessionUploadsInChunks(t *testing.T) {
	fake := &fakeUploadServer{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	path, data := writeVideo(t, 2500)
	meta := Metadata{Title: "My Video", Description: "A cool video.", Tags: ParseTags("sample, video,"), CategoryID: "22", PrivacyStatus: "public"}
	s, err := NewSession(srv.Client(), srv.URL+"/upload/youtube/v3/videos", path, meta, 1000)
	require.NoError(t, err)

	var progress []upload.Progress
	out, err := upload.Run(context.Background(), s, upload.Policy{
		MaxRetries: 3,
		Sleep:      noSleep,
		OnProgress: func(p upload.Progress) { progress = append(progress, p) },
	})
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", out.ID)
	assert.Equal(t, data, fake.received)
	// 建立会话 + 两个 308 分片 + 最后一个分片
	assert.Equal(t, 4, out.Attempts)
	assert.Len(t, progress, 3)

	snippet := fake.metadata["snippet"].(map[string]any)
	assert.Equal(t, "My Video", snippet["title"])
	assert.Equal(t, "22", snippet["categoryId"])
	assert.Equal(t, []any{"sample", "video"}, snippet["tags"])
	assert.Equal(t, "public", fake.metadata["status"].(map[string]any)["privacyStatus"])
}

func TestSessionResumesAfterRetriableError(t *testing.T) {
	fake := &fakeUploadServer{failPut: 2}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	path, data := writeVideo(t, 2500)
	s, err := NewSession(srv.Client(), srv.URL+"/upload/youtube/v3/videos", path,
		Metadata{Title: "t", PrivacyStatus: "unlisted"}, 1000)
	require.NoError(t, err)

	out, err := upload.Run(context.Background(), s, upload.Policy{MaxRetries: 3, Sleep: noSleep})
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", out.ID)
	assert.Equal(t, 1, out.Retries)
	assert.Equal(t, data, fake.received)
}

func TestNewSessionValidation(t *testing.T) {
	_, err := NewSession(http.DefaultClient, "http://unused", filepath.Join(t.TempDir(), "missing.mp4"), Metadata{Title: "t", PrivacyStatus: "public"}, 0)
	assert.Error(t, err)

	path, _ := writeVideo(t, 10)
	_, err = NewSession(http.DefaultClient, "http://unused", path, Metadata{Title: "t", PrivacyStatus: "friends"}, 0)
	assert.Error(t, err)

	_, err = NewSession(http.DefaultClient, "http://unused", path, Metadata{PrivacyStatus: "public"}, 0)
	assert.Error(t, err)

	s, err := NewSession(http.DefaultClient, "http://unused", path, Metadata{Title: "t", PrivacyStatus: "private"}, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultChunkSize, s.chunkSize)
}

func TestParseRange(t *testing.T) {
	n, err := parseRange("bytes=0-999")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), n)

	n, err = parseRange("")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = parseRange("bytes=garbage")
	assert.Error(t, err)
}

func TestNewAuthorizedClientUsesCachedToken(t *testing.T) {
	var gotAuth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer api.Close()

	dir := t.TempDir()
	secrets := filepath.Join(dir, "client_secrets.json")
	require.NoError(t, os.WriteFile(secrets, []byte(`{"installed":{
		"client_id":"cid","client_secret":"secret",
		"auth_uri":"https://accounts.google.com/o/oauth2/auth",
		"token_uri":"https://oauth2.googleapis.com/token",
		"redirect_uris":["http://localhost"]}}`), 0o600))

	tokenFile := filepath.Join(dir, "client_secrets-oauth2.json")
	require.NoError(t, saveToken(tokenFile, &oauth2.Token{
		AccessToken: "cached-access",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}))

	client, err := NewAuthorizedClient(context.Background(), secrets, tokenFile, nil, io.Discard)
	require.NoError(t, err)

	resp, err := client.Get(api.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Bearer cached-access", gotAuth)
}

func TestNewAuthorizedClientWithoutTokenOrInput(t *testing.T) {
	dir := t.TempDir()
	secrets := filepath.Join(dir, "client_secrets.json")
	require.NoError(t, os.WriteFile(secrets, []byte(`{"installed":{"client_id":"cid","client_secret":"s","auth_uri":"https://a","token_uri":"https://t","redirect_uris":["http://localhost"]}}`), 0o600))

	_, err := NewAuthorizedClient(context.Background(), secrets, filepath.Join(dir, "none.json"), nil, io.Discard)
	assert.Error(t, err)
}
