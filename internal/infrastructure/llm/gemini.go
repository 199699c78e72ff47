package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"math-video-api/internal/config"
)

const typeGemini = "Gemini"

// GeminiModel 基于 google genai SDK 的 ChatModel
type GeminiModel struct {
	client   *genai.Client
	defaults *model.Options
}

var _ model.BaseChatModel = (*GeminiModel)(nil)

// NewGeminiModel 创建 Gemini 适配器
func NewGeminiModel(ctx context.Context, cfg config.ProviderConfig) (*GeminiModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiModel{client: client, defaults: defaultOptions(cfg)}, nil
}

func (m *GeminiModel) GetType() string { return typeGemini }

func (m *GeminiModel) IsCallbacksEnabled() bool { return true }

// Generate 调用 GenerateContent
func (m *GeminiModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return generateWithCallbacks(ctx, typeGemini, m.defaults, input, opts, m.generate)
}

// Stream 以单个分片返回完整结果
func (m *GeminiModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return singleChunkStream(msg), nil
}

func (m *GeminiModel) generate(ctx context.Context, input []*schema.Message, o *model.Options) (*schema.Message, *model.TokenUsage, error) {
	system, contents := toGenAIContents(input)

	gc := &genai.GenerateContentConfig{SystemInstruction: system}
	if o.Temperature != nil {
		gc.Temperature = genai.Ptr(*o.Temperature)
	}
	if o.MaxTokens != nil && *o.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(*o.MaxTokens)
	}

	resp, err := m.client.Models.GenerateContent(ctx, *o.Model, contents, gc)
	if err != nil {
		return nil, nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, nil, errors.New("gemini: empty response")
	}

	var usage *model.TokenUsage
	if u := resp.UsageMetadata; u != nil {
		usage = &model.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return schema.AssistantMessage(text, nil), usage, nil
}

// toGenAIContents 系统消息合并为 SystemInstruction，其余按角色转换
func toGenAIContents(input []*schema.Message) (*genai.Content, []*genai.Content) {
	var systemParts []string
	contents := make([]*genai.Content, 0, len(input))
	for _, in := range input {
		if in == nil {
			continue
		}
		switch in.Role {
		case schema.System:
			systemParts = append(systemParts, in.Content)
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(in.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(in.Content, genai.RoleUser))
		}
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = genai.NewContentFromText(strings.Join(systemParts, "\n\n"), genai.RoleUser)
	}
	return system, contents
}
