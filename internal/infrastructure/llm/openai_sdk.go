package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"math-video-api/internal/config"
)

const typeOpenAISDK = "OpenAISDK"

// OpenAISDKModel 基于官方 openai-go SDK 的 ChatModel
type OpenAISDKModel struct {
	client   openai.Client
	defaults *model.Options
}

var _ model.BaseChatModel = (*OpenAISDKModel)(nil)

// NewOpenAISDKModel 创建 openai-go 适配器
func NewOpenAISDKModel(cfg config.ProviderConfig) (*OpenAISDKModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &OpenAISDKModel{
		client:   openai.NewClient(opts...),
		defaults: defaultOptions(cfg),
	}, nil
}

func (m *OpenAISDKModel) GetType() string { return typeOpenAISDK }

func (m *OpenAISDKModel) IsCallbacksEnabled() bool { return true }

// Generate 调用 chat completions
func (m *OpenAISDKModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return generateWithCallbacks(ctx, typeOpenAISDK, m.defaults, input, opts, m.complete)
}

// Stream 以单个分片返回完整结果
func (m *OpenAISDKModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return singleChunkStream(msg), nil
}

func (m *OpenAISDKModel) complete(ctx context.Context, input []*schema.Message, o *model.Options) (*schema.Message, *model.TokenUsage, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(*o.Model),
		Messages: toOpenAIMessages(input),
	}
	if o.Temperature != nil {
		params.Temperature = openai.Float(float64(*o.Temperature))
	}
	if o.MaxTokens != nil && *o.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(*o.MaxTokens))
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil, errors.New("openai: empty choices")
	}

	msg := schema.AssistantMessage(resp.Choices[0].Message.Content, nil)
	usage := &model.TokenUsage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	return msg, usage, nil
}

func toOpenAIMessages(input []*schema.Message) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(input))
	for _, in := range input {
		if in == nil {
			continue
		}
		switch in.Role {
		case schema.System:
			msgs = append(msgs, openai.SystemMessage(in.Content))
		case schema.Assistant:
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(in.Content))
		default:
			msgs = append(msgs, openai.UserMessage(in.Content))
		}
	}
	return msgs
}

// defaultOptions 由提供商配置得到调用默认值，调用方可用 model.Option 覆盖
func defaultOptions(cfg config.ProviderConfig) *model.Options {
	modelName := cfg.Model
	temperature := float32(cfg.Temperature)
	o := &model.Options{
		Model:       &modelName,
		Temperature: &temperature,
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		o.MaxTokens = &maxTokens
	}
	return o
}
