package llm

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// generateFunc 是一次非流式调用的具体实现
type generateFunc func(ctx context.Context, input []*schema.Message, opts *model.Options) (*schema.Message, *model.TokenUsage, error)

// generateWithCallbacks 按 Eino 约定触发 OnStart/OnEnd/OnError，让全局回调统计自定义适配器
func generateWithCallbacks(ctx context.Context, typ string, base *model.Options, input []*schema.Message, opts []model.Option, fn generateFunc) (*schema.Message, error) {
	options := model.GetCommonOptions(base, opts...)
	conf := configFromOptions(options)

	ctx = callbacks.EnsureRunInfo(ctx, typ, components.ComponentOfChatModel)
	ctx = callbacks.OnStart(ctx, &model.CallbackInput{
		Messages: input,
		Config:   conf,
	})

	msg, usage, err := fn(ctx, input, options)
	if err != nil {
		callbacks.OnError(ctx, err)
		return nil, err
	}

	if usage != nil {
		msg.ResponseMeta = &schema.ResponseMeta{
			Usage: &schema.TokenUsage{
				PromptTokens:     usage.PromptTokens,
				CompletionTokens: usage.CompletionTokens,
				TotalTokens:      usage.TotalTokens,
			},
		}
	}
	callbacks.OnEnd(ctx, &model.CallbackOutput{
		Message:    msg,
		Config:     conf,
		TokenUsage: usage,
	})
	return msg, nil
}

func configFromOptions(o *model.Options) *model.Config {
	conf := &model.Config{}
	if o.Model != nil {
		conf.Model = *o.Model
	}
	if o.MaxTokens != nil {
		conf.MaxTokens = *o.MaxTokens
	}
	if o.Temperature != nil {
		conf.Temperature = *o.Temperature
	}
	if o.TopP != nil {
		conf.TopP = *o.TopP
	}
	conf.Stop = o.Stop
	return conf
}

// singleChunkStream 不支持流式的适配器把完整结果包装成单元素流
func singleChunkStream(msg *schema.Message) *schema.StreamReader[*schema.Message] {
	return schema.StreamReaderFromArray([]*schema.Message{msg})
}
