// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Storage       StorageConfig       `yaml:"storage" mapstructure:"storage"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Solver        SolverConfig        `yaml:"solver" mapstructure:"solver"`
	Renderer      RendererConfig      `yaml:"renderer" mapstructure:"renderer"`
	Publish       PublishConfig       `yaml:"publish" mapstructure:"publish"`
	Pipeline      PipelineConfig      `yaml:"pipeline" mapstructure:"pipeline"`
	Uploader      UploaderConfig      `yaml:"uploader" mapstructure:"uploader"`
	Messaging     MessagingConfig     `yaml:"messaging" mapstructure:"messaging"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
	Features      FeaturesConfig      `yaml:"features" mapstructure:"features"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	// PublicBaseURL 对外访问地址，用于拼接静态视频 URL
	PublicBaseURL string `yaml:"public_base_url" mapstructure:"public_base_url"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `yaml:"auto_migrate" mapstructure:"auto_migrate"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// StorageConfig 对象存储配置
type StorageConfig struct {
	R2 R2Config `yaml:"r2" mapstructure:"r2"`
}

// R2Config Cloudflare R2（S3 兼容）配置
type R2Config struct {
	AccountID       string `yaml:"account_id" mapstructure:"account_id"`
	// Endpoint 非空时覆盖由 AccountID 推导的地址，可指向任意 S3 兼容服务
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	KeyPrefix       string `yaml:"key_prefix" mapstructure:"key_prefix"`
	PublicURL       string `yaml:"public_url" mapstructure:"public_url"`
	UseSSL          bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
}

// LLM 驱动
const (
	DriverOpenAI    = "openai"
	DriverOpenAISDK = "openai-sdk"
	DriverGemini    = "gemini"
)

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	// Driver 客户端实现：openai（eino）/openai-sdk/gemini
	Driver      string        `yaml:"driver" mapstructure:"driver"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SolverConfig 计算知识服务配置
type SolverConfig struct {
	Wolfram WolframConfig `yaml:"wolfram" mapstructure:"wolfram"`
}

// WolframConfig Wolfram|Alpha Full Results API 配置
type WolframConfig struct {
	AppID   string        `yaml:"app_id" mapstructure:"app_id"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// RendererConfig 动画渲染器配置
type RendererConfig struct {
	Binary        string        `yaml:"binary" mapstructure:"binary"`
	QualityFlag   string        `yaml:"quality_flag" mapstructure:"quality_flag"`
	// ResolutionDir 渲染器按画质写入的子目录，例如 -ql 对应 480p15
	ResolutionDir string        `yaml:"resolution_dir" mapstructure:"resolution_dir"`
	SceneName     string        `yaml:"scene_name" mapstructure:"scene_name"`
	WorkDir       string        `yaml:"work_dir" mapstructure:"work_dir"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	KeepWorkDir   bool          `yaml:"keep_work_dir" mapstructure:"keep_work_dir"`
}

// 发布模式
const (
	PublishModeLocal         = "local"
	PublishModeObjectStorage = "object_storage"
)

// PublishConfig 视频发布配置
type PublishConfig struct {
	Mode  string             `yaml:"mode" mapstructure:"mode"`
	Local LocalPublishConfig `yaml:"local" mapstructure:"local"`
}

// LocalPublishConfig 本地静态目录发布配置
type LocalPublishConfig struct {
	Dir       string `yaml:"dir" mapstructure:"dir"`
	URLPath   string `yaml:"url_path" mapstructure:"url_path"`
	DemoVideo string `yaml:"demo_video" mapstructure:"demo_video"`
}

// PipelineConfig 生成流水线配置
type PipelineConfig struct {
	Provider             string        `yaml:"provider" mapstructure:"provider"`
	PromptID             string        `yaml:"prompt_id" mapstructure:"prompt_id"`
	MaxConcurrentRenders int64         `yaml:"max_concurrent_renders" mapstructure:"max_concurrent_renders"`
	SolutionCacheTTL     time.Duration `yaml:"solution_cache_ttl" mapstructure:"solution_cache_ttl"`
	RequestTimeout       time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// UploaderConfig 视频平台断点续传上传配置
type UploaderConfig struct {
	ClientSecretsFile string        `yaml:"client_secrets_file" mapstructure:"client_secrets_file"`
	TokenFile         string        `yaml:"token_file" mapstructure:"token_file"`
	Endpoint          string        `yaml:"endpoint" mapstructure:"endpoint"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
	ChunkSize         int64         `yaml:"chunk_size" mapstructure:"chunk_size"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// MessagingConfig 消息队列配置
type MessagingConfig struct {
	RedisStream RedisStreamConfig `yaml:"redis_stream" mapstructure:"redis_stream"`
}

// RedisStreamConfig Redis Stream 配置
type RedisStreamConfig struct {
	MaxLen int `yaml:"max_len" mapstructure:"max_len"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

// FeaturesConfig 功能开关配置：可选后端不可用时服务仍可启动
type FeaturesConfig struct {
	Redis         bool `yaml:"redis" mapstructure:"redis"`
	RenderHistory bool `yaml:"render_history" mapstructure:"render_history"`
	RenderEvents  bool `yaml:"render_events" mapstructure:"render_events"`
}
