package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"math-video-api/internal/config"
)

func newFakeOpenAI(t *testing.T, reply string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		if seen != nil {
			_ = json.Unmarshal(body, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-test",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
			"usage": map[string]any{"prompt_tokens": 3, "completion_tokens": 5, "total_tokens": 8},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAISDKModelGenerate(t *testing.T) {
	var seen map[string]any
	srv := newFakeOpenAI(t, "```python\nx = 1\n```", &seen)

	m, err := NewOpenAISDKModel(config.ProviderConfig{
		Driver:      config.DriverOpenAISDK,
		APIKey:      "sk-test",
		BaseURL:     srv.URL + "/",
		Model:       "gpt-test",
		Temperature: 0.2,
		Timeout:     5 * time.Second,
	})
	require.NoError(t, err)

	msg, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("system"),
		schema.UserMessage("solve"),
	}, model.WithTemperature(0.5))
	require.NoError(t, err)

	assert.Equal(t, schema.Assistant, msg.Role)
	assert.Equal(t, "```python\nx = 1\n```", msg.Content)
	require.NotNil(t, msg.ResponseMeta)
	assert.Equal(t, 8, msg.ResponseMeta.Usage.TotalTokens)

	assert.Equal(t, "gpt-test", seen["model"])
	assert.InDelta(t, 0.5, seen["temperature"], 1e-6)
	msgs, ok := seen["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestOpenAISDKModelUsesConfiguredTemperature(t *testing.T) {
	var seen map[string]any
	srv := newFakeOpenAI(t, "ok", &seen)

	m, err := NewOpenAISDKModel(config.ProviderConfig{
		Driver:      config.DriverOpenAISDK,
		APIKey:      "sk-test",
		BaseURL:     srv.URL + "/",
		Model:       "gpt-test",
		Temperature: 0.7,
		Timeout:     5 * time.Second,
	})
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("solve")})
	require.NoError(t, err)
	assert.InDelta(t, 0.7, seen["temperature"], 1e-6)
}

func TestOpenAISDKModelStream(t *testing.T) {
	srv := newFakeOpenAI(t, "done", nil)
	m, err := NewOpenAISDKModel(config.ProviderConfig{APIKey: "sk-test", BaseURL: srv.URL + "/", Model: "gpt-test"})
	require.NoError(t, err)

	sr, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	defer sr.Close()

	chunk, err := sr.Recv()
	require.NoError(t, err)
	assert.Equal(t, "done", chunk.Content)
	_, err = sr.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenAISDKModelRequiresKeyAndModel(t *testing.T) {
	_, err := NewOpenAISDKModel(config.ProviderConfig{Model: "m"})
	assert.Error(t, err)
	_, err = NewOpenAISDKModel(config.ProviderConfig{APIKey: "k"})
	assert.Error(t, err)
}

func TestEinoFactoryGetCachesAndResolvesDefault(t *testing.T) {
	srv := newFakeOpenAI(t, "ok", nil)
	f := NewEinoFactory(&config.Config{LLM: config.LLMConfig{
		DefaultProvider: "sdk",
		Providers: map[string]config.ProviderConfig{
			"sdk": {Driver: config.DriverOpenAISDK, APIKey: "sk-test", BaseURL: srv.URL + "/", Model: "gpt-test"},
		},
	}})

	a, err := f.Default(context.Background())
	require.NoError(t, err)
	b, err := f.Get(context.Background(), "sdk")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = f.Get(context.Background(), "missing")
	assert.Error(t, err)
}

func TestEinoFactoryUnknownDriver(t *testing.T) {
	f := NewEinoFactory(&config.Config{LLM: config.LLMConfig{
		Providers: map[string]config.ProviderConfig{"x": {Driver: "bogus"}},
	}})
	_, err := f.Get(context.Background(), "x")
	assert.Error(t, err)
}

func TestToGenAIContents(t *testing.T) {
	system, contents := toGenAIContents([]*schema.Message{
		schema.SystemMessage("a"),
		schema.SystemMessage("b"),
		schema.UserMessage("q"),
		schema.AssistantMessage("r", nil),
		nil,
	})
	require.NotNil(t, system)
	require.Len(t, system.Parts, 1)
	assert.Equal(t, "a\n\nb", system.Parts[0].Text)

	require.Len(t, contents, 2)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
}

func TestConfigFromOptions(t *testing.T) {
	o := model.GetCommonOptions(defaultOptions(config.ProviderConfig{Model: "m", Temperature: 0.3, MaxTokens: 100}),
		model.WithModel("override"))
	conf := configFromOptions(o)
	assert.Equal(t, "override", conf.Model)
	assert.Equal(t, 100, conf.MaxTokens)
	assert.InDelta(t, 0.3, conf.Temperature, 1e-6)
}

func TestGeminiModelGenerate(t *testing.T) {
	var seen map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent"), r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &seen)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates":[{"content":{"role":"model","parts":[{"text":"class MathAnimation(Scene): pass"}]}}],
			"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":6,"totalTokenCount":10}
		}`))
	}))
	defer srv.Close()

	m, err := NewGeminiModel(context.Background(), config.ProviderConfig{
		APIKey:  "g-test",
		BaseURL: srv.URL,
		Model:   "gemini-test",
	})
	require.NoError(t, err)

	out, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("be brief"),
		schema.UserMessage("draw x^2"),
	})
	require.NoError(t, err)
	assert.Equal(t, "class MathAnimation(Scene): pass", out.Content)
	assert.Contains(t, seen, "systemInstruction")
}
