package wire

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"math-video-api/internal/application/mathvideo"
	"math-video-api/internal/config"
	"math-video-api/internal/domain/repository"
	"math-video-api/internal/infrastructure/llm"
	"math-video-api/internal/infrastructure/messaging"
	"math-video-api/internal/infrastructure/persistence/postgres"
	"math-video-api/internal/infrastructure/persistence/redis"
	"math-video-api/internal/infrastructure/renderer"
	"math-video-api/internal/infrastructure/storage"
	"math-video-api/internal/infrastructure/wolfram"
	"math-video-api/internal/interfaces/http/handler"
	"math-video-api/internal/interfaces/http/middleware"
	workflowprompt "math-video-api/internal/workflow/prompt"
	"math-video-api/pkg/logger"
)

// ProvidePostgresClientOptional 开启渲染历史时连接 PostgreSQL，失败即启动失败
func ProvidePostgresClientOptional(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	if !cfg.Features.RenderHistory {
		return nil, func() {}, nil
	}
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClientOptional Redis 不可达时降级运行：不缓存、不限流、不发事件
func ProvideRedisClientOptional(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Features.Redis {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Warn(ctx, "redis not available, cache and rate limit disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRenderRepository 未开启历史记录时返回 nil 接口
func ProvideRenderRepository(client *postgres.Client) repository.RenderRepository {
	if client == nil {
		return nil
	}
	return postgres.NewRenderRepository(client)
}

func ProvideSolutionCache(client *redis.Client) mathvideo.SolutionCache {
	if client == nil {
		return nil
	}
	return redis.NewCache(client)
}

func ProvideEventPublisher(client *redis.Client, cfg *config.Config) mathvideo.EventPublisher {
	if client == nil || !cfg.Features.RenderEvents {
		return nil
	}
	return messaging.NewProducer(client.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
}

func ProvideWolframClient(cfg *config.Config) *wolfram.Client {
	return wolfram.NewClient(cfg.Solver.Wolfram, nil)
}

func ProvideRenderer(cfg *config.Config) *renderer.Manim {
	return renderer.NewManim(cfg.Renderer)
}

func ProvideLocalPublisher(cfg *config.Config) *storage.Local {
	return storage.NewLocal(cfg.Publish.Local, cfg.Server.HTTP.PublicBaseURL)
}

// ProvideObjectStoreOptional 只有对象存储模式才创建客户端
func ProvideObjectStoreOptional(cfg *config.Config) (*storage.ObjectStore, error) {
	if cfg.Publish.Mode != config.PublishModeObjectStorage {
		return nil, nil
	}
	return storage.NewObjectStore(cfg.Storage.R2)
}

// ProvidePublisher 按发布模式选择实现
func ProvidePublisher(local *storage.Local, objects *storage.ObjectStore) mathvideo.Publisher {
	if objects != nil {
		return objects
	}
	return local
}

// ProvideGenerator 组装生成流水线
func ProvideGenerator(
	cfg *config.Config,
	models *llm.EinoFactory,
	solver *wolfram.Client,
	manim *renderer.Manim,
	publisher mathvideo.Publisher,
	local *storage.Local,
	cache mathvideo.SolutionCache,
	records repository.RenderRepository,
	events mathvideo.EventPublisher,
) (*mathvideo.Generator, error) {
	promptID, err := workflowprompt.ParseID(cfg.Pipeline.PromptID)
	if err != nil {
		return nil, err
	}

	provider := strings.TrimSpace(cfg.Pipeline.Provider)
	if provider == "" {
		provider = cfg.LLM.DefaultProvider
	}

	return mathvideo.NewGenerator(mathvideo.Deps{
		Solver:    solver,
		Models:    models,
		Renderer:  manim,
		Publisher: publisher,
		Cache:     cache,
		Records:   records,
		Events:    events,
	}, mathvideo.Options{
		Provider:             provider,
		PromptID:             promptID,
		Scene:                cfg.Renderer.SceneName,
		WorkDir:              cfg.Renderer.WorkDir,
		KeepWorkDir:          cfg.Renderer.KeepWorkDir,
		MaxConcurrentRenders: cfg.Pipeline.MaxConcurrentRenders,
		SolutionCacheTTL:     cfg.Pipeline.SolutionCacheTTL,
		RequestTimeout:       cfg.Pipeline.RequestTimeout,
		// 演示视频总是从本地静态目录提供
		DemoURL: local.URL(cfg.Publish.Local.DemoVideo),
	})
}

func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, redisClient *redis.Client, objects *storage.ObjectStore) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg.App.Version, pg, redisClient, objects)
}

// ProvideRateLimit 生成接口的限流中间件
func ProvideRateLimit(cfg *config.Config, redisClient *redis.Client) gin.HandlerFunc {
	return middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{
		Enabled:           cfg.Security.RateLimit.Enabled,
		RequestsPerMinute: cfg.Security.RateLimit.RequestsPerMinute,
	}, redisClient)
}
