// Package mathvideo 把数学题转换成讲解动画视频
package mathvideo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"math-video-api/internal/domain/entity"
	"math-video-api/internal/domain/service"
	"math-video-api/internal/infrastructure/messaging"
	"math-video-api/internal/infrastructure/renderer"
	"math-video-api/internal/workflow/node"
	workflowprompt "math-video-api/internal/workflow/prompt"
	"math-video-api/pkg/logger"
	"math-video-api/pkg/metrics"
	"math-video-api/pkg/tracer"
)

const (
	workflowName   = "math_animation"
	scriptFileName = "scene.py"
	mediaDirName   = "media"
)

// validRequestID 客户端传入的请求 ID 只用于关联日志与事件
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Options 生成器运行参数
type Options struct {
	Provider             string
	PromptID             workflowprompt.PromptID
	Scene                string
	WorkDir              string
	KeepWorkDir          bool
	MaxConcurrentRenders int64
	SolutionCacheTTL     time.Duration
	RequestTimeout       time.Duration
	DemoURL              string
}

// Request 一次生成请求。RequestID 不合法时丢弃
type Request struct {
	RequestID string
	Problem   string
}

// Result 成功生成的结果。ID 由服务端生成，决定工作目录与发布文件名
type Result struct {
	ID        string
	RequestID string
	Problem   string
	Answer    string
	Script    string
	VideoURL  string
	Stages    map[Stage]time.Duration
}

// Generator 视频生成流水线
type Generator struct {
	deps    Deps
	opts    Options
	prompts *workflowprompt.Registry
	renders *semaphore.Weighted
}

// NewGenerator 创建生成器
func NewGenerator(deps Deps, opts Options) (*Generator, error) {
	if deps.Solver == nil || deps.Models == nil || deps.Renderer == nil || deps.Publisher == nil {
		return nil, fmt.Errorf("mathvideo: solver, models, renderer and publisher are required")
	}
	if strings.TrimSpace(opts.Scene) == "" {
		return nil, fmt.Errorf("mathvideo: scene name is required")
	}
	if opts.PromptID == "" {
		opts.PromptID = workflowprompt.PromptMathAnimationV1
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	workDir, err := filepath.Abs(opts.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("mathvideo: resolve work dir: %w", err)
	}
	opts.WorkDir = workDir
	if opts.MaxConcurrentRenders <= 0 {
		opts.MaxConcurrentRenders = 1
	}

	return &Generator{
		deps:    deps,
		opts:    opts,
		prompts: workflowprompt.NewRegistry(),
		renders: semaphore.NewWeighted(opts.MaxConcurrentRenders),
	}, nil
}

// DemoURL 返回固定的演示视频地址
func (g *Generator) DemoURL() string {
	return g.opts.DemoURL
}

// Solve 求解题目，配置了缓存时相同题目只查询一次
func (g *Generator) Solve(ctx context.Context, expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", ErrEmptyProblem
	}

	if g.deps.Cache == nil {
		answer, err := g.querySolver(ctx, expr)
		return answer, stageErr(StageSolve, err)
	}

	loaded := false
	raw, shared, err := g.deps.Cache.GetOrLoadSafe(ctx, solutionKey(expr), g.opts.SolutionCacheTTL, func() (interface{}, error) {
		loaded = true
		return g.querySolver(ctx, expr)
	})
	if err != nil {
		metrics.SolverCacheTotal.WithLabelValues("error").Inc()
		return "", stageErr(StageSolve, err)
	}
	switch {
	case loaded:
		metrics.SolverCacheTotal.WithLabelValues("miss").Inc()
	case shared:
		metrics.SolverCacheTotal.WithLabelValues("shared").Inc()
	default:
		metrics.SolverCacheTotal.WithLabelValues("hit").Inc()
	}

	var answer string
	if err := json.Unmarshal(raw, &answer); err != nil {
		return "", stageErr(StageSolve, fmt.Errorf("decode cached answer: %w", err))
	}
	if strings.TrimSpace(answer) == "" {
		return "", stageErr(StageSolve, ErrEmptyAnswer)
	}
	return answer, nil
}

func (g *Generator) querySolver(ctx context.Context, expr string) (string, error) {
	answer, err := g.deps.Solver.Query(ctx, expr)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", ErrEmptyAnswer
	}
	return answer, nil
}

// BuildScript 让模型根据题目与答案写出动画脚本，并从回复中取出代码
func (g *Generator) BuildScript(ctx context.Context, expr, answer string) (string, error) {
	tpl, err := g.prompts.ChatTemplate(g.opts.PromptID)
	if err != nil {
		return "", stageErr(StageGenerate, err)
	}
	example, err := workflowprompt.ExampleScene(g.opts.PromptID)
	if err != nil {
		return "", stageErr(StageGenerate, err)
	}

	ctx = service.WithWorkflowProvider(ctx, workflowName, g.opts.Provider)

	msgs, err := tpl.Format(ctx, map[string]any{
		workflowprompt.VarProblem: expr,
		workflowprompt.VarAnswer:  answer,
		workflowprompt.VarScene:   g.opts.Scene,
		workflowprompt.VarExample: example,
	})
	if err != nil {
		return "", stageErr(StageGenerate, fmt.Errorf("format prompt: %w", err))
	}

	chatModel, err := g.deps.Models.Get(ctx, g.opts.Provider)
	if err != nil {
		return "", stageErr(StageGenerate, err)
	}

	// 采样参数沿用提供商配置
	out, err := chatModel.Generate(ctx, msgs)
	if err != nil {
		return "", stageErr(StageGenerate, err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", stageErr(StageGenerate, ErrEmptyReply)
	}

	code, err := node.ExtractCode(out.Content)
	if err != nil {
		logger.Warn(ctx, "no code block in model reply",
			"reply_preview", node.TruncateByRunes(out.Content, 200),
		)
		return "", stageErr(StageExtract, err)
	}
	if !strings.Contains(code, "class "+g.opts.Scene) {
		return "", stageErr(StageExtract, fmt.Errorf("%w: %s", ErrSceneMissing, g.opts.Scene))
	}
	return code, nil
}

// Persist 把脚本写入本次请求独占的工作目录
func (g *Generator) Persist(ctx context.Context, id, script string) (string, error) {
	dir := g.runDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", stageErr(StageRender, fmt.Errorf("create work dir: %w", err))
	}
	path := filepath.Join(dir, scriptFileName)
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		return "", stageErr(StageRender, fmt.Errorf("write script: %w", err))
	}
	logger.Debug(ctx, "script persisted", "path", path, "bytes", len(script))
	return path, nil
}

// Render 占用一个渲染槽位执行渲染
func (g *Generator) Render(ctx context.Context, id, scriptPath string) (string, error) {
	if err := g.renders.Acquire(ctx, 1); err != nil {
		return "", stageErr(StageRender, fmt.Errorf("wait for render slot: %w", err))
	}
	metrics.PipelineInFlight.Inc()
	defer func() {
		metrics.PipelineInFlight.Dec()
		g.renders.Release(1)
	}()

	videoPath, err := g.deps.Renderer.Render(ctx, renderer.Job{
		ScriptPath: scriptPath,
		MediaDir:   filepath.Join(g.runDir(id), mediaDirName),
		Scene:      g.opts.Scene,
	})
	if err != nil {
		return "", stageErr(StageRender, err)
	}
	return videoPath, nil
}

// Publish 发布视频并返回访问地址
func (g *Generator) Publish(ctx context.Context, id, videoPath string) (string, error) {
	mode := g.deps.Publisher.Mode()
	url, err := g.deps.Publisher.Publish(ctx, id, videoPath)
	if err != nil {
		metrics.PublishTotal.WithLabelValues(mode, "error").Inc()
		return "", stageErr(StagePublish, err)
	}
	metrics.PublishTotal.WithLabelValues(mode, "success").Inc()
	return url, nil
}

// Generate 执行完整流水线
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	problem := strings.TrimSpace(req.Problem)
	if problem == "" {
		return nil, ErrEmptyProblem
	}

	// 同一个请求 ID 可能被重试并发提交，产物目录只用服务端生成的 ID
	id := uuid.NewString()
	requestID := strings.TrimSpace(req.RequestID)
	if !validRequestID.MatchString(requestID) {
		requestID = ""
	}
	if g.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.RequestTimeout)
		defer cancel()
	}
	ctx = logger.WithContext(ctx, logger.RenderIDKey, id)
	if requestID != "" {
		ctx = logger.WithContext(ctx, logger.RequestIDKey, requestID)
	}

	record := entity.NewRenderRecord(id, problem)
	record.RequestID = requestID
	record.LLMProvider = g.opts.Provider
	record.PublishMode = g.deps.Publisher.Mode()
	g.createRecord(ctx, record)

	if !g.opts.KeepWorkDir {
		defer g.cleanup(ctx, id)
	}

	res := &Result{ID: id, RequestID: requestID, Problem: problem, Stages: make(map[Stage]time.Duration)}
	logger.Info(ctx, "video generation started", "problem", node.TruncateByRunes(problem, 120))

	err := g.run(ctx, res)
	if err != nil {
		stage, _ := StageOf(err)
		metrics.PipelineTotal.WithLabelValues("failed", string(stage)).Inc()
		logger.Error(ctx, "video generation failed", err, "stage", string(stage))

		record.Answer, record.Script = res.Answer, res.Script
		record.Fail(string(stage), err.Error())
		g.finish(ctx, record)
		return nil, err
	}

	metrics.PipelineTotal.WithLabelValues("succeeded", "done").Inc()
	logger.Info(ctx, "video generation finished", "video_url", res.VideoURL)

	record.Answer, record.Script = res.Answer, res.Script
	record.Succeed(res.VideoURL)
	g.finish(ctx, record)
	return res, nil
}

func (g *Generator) run(ctx context.Context, res *Result) error {
	var err error

	if err = g.stage(ctx, res, StageSolve, func(ctx context.Context) error {
		res.Answer, err = g.Solve(ctx, res.Problem)
		return err
	}); err != nil {
		return err
	}

	// 生成与抽取共用一次模型调用，耗时计入 generate
	if err = g.stage(ctx, res, StageGenerate, func(ctx context.Context) error {
		res.Script, err = g.BuildScript(ctx, res.Problem, res.Answer)
		return err
	}); err != nil {
		return err
	}

	var videoPath string
	if err = g.stage(ctx, res, StageRender, func(ctx context.Context) error {
		scriptPath, err := g.Persist(ctx, res.ID, res.Script)
		if err != nil {
			return err
		}
		videoPath, err = g.Render(ctx, res.ID, scriptPath)
		return err
	}); err != nil {
		return err
	}

	return g.stage(ctx, res, StagePublish, func(ctx context.Context) error {
		res.VideoURL, err = g.Publish(ctx, res.ID, videoPath)
		return err
	})
}

// stage 为单个阶段记录耗时、Span 与日志上下文
func (g *Generator) stage(ctx context.Context, res *Result, stage Stage, fn func(context.Context) error) error {
	ctx, span := tracer.StartStage(ctx, string(stage), res.ID)
	ctx = logger.WithContext(ctx, logger.StageKey, string(stage))

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	res.Stages[stage] = elapsed
	metrics.PipelineStageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
	tracer.End(span, err)

	if err == nil {
		logger.Debug(ctx, "stage finished", "duration_ms", elapsed.Milliseconds())
	}
	return err
}

func (g *Generator) createRecord(ctx context.Context, record *entity.RenderRecord) {
	if g.deps.Records == nil {
		return
	}
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := g.deps.Records.Create(ctx, record); err != nil {
		logger.Warn(ctx, "failed to create render record", "error", err.Error())
	}
}

// finish 更新历史记录并发送结束事件，两者失败都不影响请求结果
func (g *Generator) finish(ctx context.Context, record *entity.RenderRecord) {
	ctx, cancel := detached(ctx)
	defer cancel()

	if g.deps.Records != nil {
		if err := g.deps.Records.Update(ctx, record); err != nil {
			logger.Warn(ctx, "failed to update render record", "error", err.Error())
		}
	}

	if g.deps.Events == nil {
		return
	}
	event := &messaging.RenderEventMessage{
		RenderID:    record.ID,
		RequestID:   record.RequestID,
		Problem:     record.Problem,
		Status:      string(record.Status),
		VideoURL:    record.VideoURL,
		FailedStage: record.FailedStage,
		Error:       record.ErrorMessage,
		DurationMs:  record.DurationMs,
	}
	if _, err := g.deps.Events.PublishRenderEvent(ctx, event); err != nil {
		logger.Warn(ctx, "failed to publish render event", "error", err.Error())
	}
}

func (g *Generator) cleanup(ctx context.Context, id string) {
	if err := os.RemoveAll(g.runDir(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn(ctx, "failed to remove work dir", "error", err.Error())
	}
}

func (g *Generator) runDir(id string) string {
	return filepath.Join(g.opts.WorkDir, id)
}

// detached 请求取消后仍要写完记录
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
}

func solutionKey(problem string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(problem)))
	return "solution:" + hex.EncodeToString(sum[:])
}
