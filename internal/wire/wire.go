//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"math-video-api/internal/application/mathvideo"
	"math-video-api/internal/config"
	"math-video-api/internal/infrastructure/llm"
	"math-video-api/internal/interfaces/http/handler"
	"math-video-api/internal/interfaces/http/router"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		DataSet,
		PipelineSet,
		RouterSet,
	)
	return nil, nil, nil
}

// DataSet 可选的数据层：Postgres 历史记录、Redis 缓存与事件
var DataSet = wire.NewSet(
	ProvidePostgresClientOptional,
	ProvideRedisClientOptional,
	ProvideRenderRepository,
	ProvideSolutionCache,
	ProvideEventPublisher,
)

// PipelineSet 生成流水线及其外部服务
var PipelineSet = wire.NewSet(
	llm.NewEinoFactory,
	ProvideWolframClient,
	ProvideRenderer,
	ProvideLocalPublisher,
	ProvideObjectStoreOptional,
	ProvidePublisher,
	ProvideGenerator,
	wire.Bind(new(handler.VideoGenerator), new(*mathvideo.Generator)),
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewVideoHandler,
	handler.NewRenderHandler,
	ProvideRateLimit,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
