// Package llm 提供多驱动的 Eino ChatModel 工厂
package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"math-video-api/internal/config"
	"math-video-api/internal/workflow/port"
)

var _ port.ChatModelFactory = (*EinoFactory)(nil)

// EinoFactory 管理多个 Eino ChatModel 客户端实例
type EinoFactory struct {
	config *config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定名称的 ChatModel，如果未指定则返回默认客户端
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		name = f.config.DefaultProvider
	}

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	if m, ok = f.models[name]; ok {
		return m, nil
	}

	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}

	chatModel, err := newChatModel(ctx, providerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model for %s: %w", name, err)
	}

	f.models[name] = chatModel
	return chatModel, nil
}

// Default 返回默认 ChatModel
func (f *EinoFactory) Default(ctx context.Context) (model.BaseChatModel, error) {
	return f.Get(ctx, "")
}

// newChatModel 按驱动创建客户端，驱动为空时使用 Eino 的 OpenAI 适配器
func newChatModel(ctx context.Context, cfg config.ProviderConfig) (model.BaseChatModel, error) {
	switch cfg.Driver {
	case "", config.DriverOpenAI:
		var maxTokens *int
		if cfg.MaxTokens > 0 {
			maxTokens = &cfg.MaxTokens
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   maxTokens,
			Temperature: ptrFloat32(float32(cfg.Temperature)),
			Timeout:     cfg.Timeout,
		})
	case config.DriverOpenAISDK:
		return NewOpenAISDKModel(cfg)
	case config.DriverGemini:
		return NewGeminiModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm driver %q", cfg.Driver)
	}
}

func ptrFloat32(f float32) *float32 {
	return &f
}
