package wolfram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"math-video-api/internal/config"
)

const integralResponse = `{
  "queryresult": {
    "success": true,
    "error": false,
    "pods": [
      {"title": "Definite integral", "primary": true, "subpods": [{"plaintext": "integral_0^1 x^2 dx = 1/3≈0.333333"}]},
      {"title": "Visual representation", "subpods": [{"plaintext": ""}]},
      {"title": "Result", "primary": true, "subpods": [{"plaintext": "1/3"}]},
      {"title": "Riemann sums", "subpods": [{"plaintext": "left sum"}]}
    ]
  }
}`

func TestParseAnswerPrefersLastPrimaryPod(t *testing.T) {
	answer, err := ParseAnswer([]byte(integralResponse))
	require.NoError(t, err)
	assert.Equal(t, "1/3", answer)
}

func TestParseAnswerFallsBackToLastPod(t *testing.T) {
	body := `{"queryresult":{"success":true,"pods":[
	  {"title":"Input","subpods":[{"plaintext":"x+1"}]},
	  {"title":"Plot","subpods":[{"plaintext":"a"},{"plaintext":"b"}]}
	]}}`
	answer, err := ParseAnswer([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "b", answer)
}

func TestParseAnswerFailures(t *testing.T) {
	_, err := ParseAnswer([]byte(`{"queryresult":{"success":false,"error":false}}`))
	assert.ErrorIs(t, err, ErrNoResult)

	_, err = ParseAnswer([]byte(`{"queryresult":{"success":false,"error":{"code":"1","msg":"Invalid appid"}}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid appid")

	_, err = ParseAnswer([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseAnswer([]byte(`{"queryresult":{"success":true,"pods":[]}}`))
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestClientQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "APPID", q.Get("appid"))
		assert.Equal(t, `\int_0^1 x^2 dx`, q.Get("input"))
		assert.Equal(t, "json", q.Get("output"))
		assert.Equal(t, "plaintext", q.Get("format"))
		_, _ = w.Write([]byte(integralResponse))
	}))
	defer srv.Close()

	c := NewClient(config.WolframConfig{AppID: "APPID", BaseURL: srv.URL, Timeout: time.Second}, nil)
	answer, err := c.Query(context.Background(), `\int_0^1 x^2 dx`)
	require.NoError(t, err)
	assert.Equal(t, "1/3", answer)
}

func TestClientQueryHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Error 1: Invalid appid", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(config.WolframConfig{AppID: "bad", BaseURL: srv.URL}, srv.Client())
	_, err := c.Query(context.Background(), "1+1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestClientQueryRequiresAppID(t *testing.T) {
	c := NewClient(config.WolframConfig{BaseURL: "http://unused"}, nil)
	_, err := c.Query(context.Background(), "1+1")
	assert.ErrorIs(t, err, ErrMissingAppID)
}
