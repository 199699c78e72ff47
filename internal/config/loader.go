// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// envPlaceholder 匹配 ${VAR} 或 ${VAR:default}
// g1: 变量名, g2: 默认值部分（含冒号）, g3: 默认值内容
var envPlaceholder = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// Load 加载配置文件
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func Load() (*Config, error) {
	return LoadFrom("configs")
}

// LoadFrom 从指定目录加载配置
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 默认配置文件缺失时只使用默认值
	if err := loadConfigFile(v, dir+"/config.yaml", true); err != nil {
		return nil, err
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := fmt.Sprintf("%s/config.%s.yaml", dir, env)
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	reader := strings.NewReader(expandEnv(string(content)))
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	return envPlaceholder.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envPlaceholder.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		// 保留原样以便识别未定义的变量
		return match
	})
}

// Validate 校验配置的取值范围
func (c *Config) Validate() error {
	switch c.Publish.Mode {
	case PublishModeLocal, PublishModeObjectStorage:
	default:
		return fmt.Errorf("invalid publish.mode %q: want %q or %q", c.Publish.Mode, PublishModeLocal, PublishModeObjectStorage)
	}
	if c.Publish.Mode == PublishModeObjectStorage && c.Storage.R2.Bucket == "" {
		return fmt.Errorf("storage.r2.bucket is required when publish.mode is %q", PublishModeObjectStorage)
	}
	if strings.TrimSpace(c.Renderer.SceneName) == "" {
		return fmt.Errorf("renderer.scene_name must not be empty")
	}
	if c.Pipeline.MaxConcurrentRenders <= 0 {
		return fmt.Errorf("pipeline.max_concurrent_renders must be positive")
	}
	for name, p := range c.LLM.Providers {
		switch p.Driver {
		case "", DriverOpenAI, DriverOpenAISDK, DriverGemini:
		default:
			return fmt.Errorf("llm provider %s: unknown driver %q", name, p.Driver)
		}
	}
	return nil
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 应用默认值
	v.SetDefault("app.name", "math-video-api")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值；渲染耗时较长，写超时要覆盖整条流水线
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 5000)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "11m")
	v.SetDefault("server.http.idle_timeout", "120s")
	v.SetDefault("server.http.public_base_url", "http://localhost:5000")

	// 数据库默认值
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.database", "math_video")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 10)
	v.SetDefault("database.postgres.max_idle_conns", 2)
	v.SetDefault("database.postgres.conn_max_lifetime", "30m")
	v.SetDefault("database.postgres.conn_max_idle_time", "5m")
	v.SetDefault("database.postgres.auto_migrate", true)

	// Redis 默认值
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 20)
	v.SetDefault("cache.redis.min_idle_conns", 2)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")

	// 对象存储默认值
	v.SetDefault("storage.r2.bucket", "math-videos")
	v.SetDefault("storage.r2.key_prefix", "videos")
	v.SetDefault("storage.r2.use_ssl", true)

	// LLM 默认值
	v.SetDefault("llm.default_provider", "openai")

	// 计算知识服务默认值
	v.SetDefault("solver.wolfram.base_url", "https://api.wolframalpha.com/v2/query")
	v.SetDefault("solver.wolfram.timeout", "20s")

	// 渲染器默认值
	v.SetDefault("renderer.binary", "manim")
	v.SetDefault("renderer.quality_flag", "-ql")
	v.SetDefault("renderer.resolution_dir", "480p15")
	v.SetDefault("renderer.scene_name", "MathAnimation")
	v.SetDefault("renderer.work_dir", "var/renders")
	v.SetDefault("renderer.timeout", "8m")
	v.SetDefault("renderer.keep_work_dir", false)

	// 发布默认值
	v.SetDefault("publish.mode", PublishModeLocal)
	v.SetDefault("publish.local.dir", "static")
	v.SetDefault("publish.local.url_path", "/static")
	v.SetDefault("publish.local.demo_video", "video.mp4")

	// 流水线默认值
	v.SetDefault("pipeline.prompt_id", "math_animation_v1")
	v.SetDefault("pipeline.max_concurrent_renders", 2)
	v.SetDefault("pipeline.solution_cache_ttl", "24h")
	v.SetDefault("pipeline.request_timeout", "10m")

	// 上传工具默认值
	v.SetDefault("uploader.client_secrets_file", "client_secrets.json")
	v.SetDefault("uploader.token_file", "client_secrets-oauth2.json")
	v.SetDefault("uploader.endpoint", "https://www.googleapis.com/upload/youtube/v3/videos")
	v.SetDefault("uploader.max_retries", 10)
	v.SetDefault("uploader.chunk_size", 8*1024*1024)
	v.SetDefault("uploader.timeout", "30m")

	// 消息默认值
	v.SetDefault("messaging.redis_stream.max_len", 10000)

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// 安全默认值
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests_per_minute", 10)

	// 功能开关默认值
	v.SetDefault("features.redis", false)
	v.SetDefault("features.render_history", false)
	v.SetDefault("features.render_events", false)
}
