package port

import (
	"context"

	"github.com/cloudwego/eino/components/model"
)

// ChatModelFactory 流水线对 LLM ChatModel 的最小依赖，name 为空时使用默认提供商
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}
