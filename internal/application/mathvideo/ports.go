package mathvideo

import (
	"context"
	"time"

	"math-video-api/internal/domain/repository"
	"math-video-api/internal/infrastructure/messaging"
	"math-video-api/internal/infrastructure/renderer"
	"math-video-api/internal/workflow/port"
)

// Solver 把题目发送给计算知识服务并返回纯文本答案
type Solver interface {
	Query(ctx context.Context, input string) (string, error)
}

// SolutionCache 答案缓存，返回值为 loader 结果的 JSON 编码，shared 表示复用了并发中的加载结果
type SolutionCache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) (val []byte, shared bool, err error)
}

// Renderer 执行动画脚本并返回视频文件路径
type Renderer interface {
	Render(ctx context.Context, job renderer.Job) (string, error)
}

// Publisher 把渲染产物发布到对外可访问的位置
type Publisher interface {
	Publish(ctx context.Context, id, videoPath string) (string, error)
	Mode() string
}

// EventPublisher 渲染结束通知
type EventPublisher interface {
	PublishRenderEvent(ctx context.Context, event *messaging.RenderEventMessage) (string, error)
}

// Deps 生成器的外部依赖。Cache、Records、Events 可以为空
type Deps struct {
	Solver    Solver
	Models    port.ChatModelFactory
	Renderer  Renderer
	Publisher Publisher

	Cache   SolutionCache
	Records repository.RenderRepository
	Events  EventPublisher
}
