// Package renderer 以子进程方式调用外部动画渲染器
package renderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"math-video-api/internal/config"
	"math-video-api/pkg/logger"
	"math-video-api/pkg/tracer"
)

// ErrOutputMissing 渲染器退出成功但预期的视频文件不存在
var ErrOutputMissing = errors.New("renderer: expected output file missing")

// outputTailBytes 错误信息中保留的输出尾部长度
const outputTailBytes = 2048

// waitDelay 进程被取消后等待输出管道关闭的上限
const waitDelay = 2 * time.Second

// Job 一次渲染任务
type Job struct {
	ScriptPath string
	MediaDir   string
	Scene      string
}

// ExitError 渲染器非零退出
type ExitError struct {
	Err    error
	Output string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("renderer exited: %v: %s", e.Err, e.Output)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Manim 调用 manim CLI
type Manim struct {
	binary        string
	qualityFlag   string
	resolutionDir string
	timeout       time.Duration
}

// NewManim 创建渲染器
func NewManim(cfg config.RendererConfig) *Manim {
	return &Manim{
		binary:        cfg.Binary,
		qualityFlag:   cfg.QualityFlag,
		resolutionDir: cfg.ResolutionDir,
		timeout:       cfg.Timeout,
	}
}

// Args 返回渲染命令参数
func (m *Manim) Args(job Job) []string {
	return []string{m.qualityFlag, "--media_dir", job.MediaDir, job.ScriptPath, job.Scene}
}

// OutputPath 预测渲染产物路径：<media>/videos/<脚本名>/<分辨率目录>/<场景名>.mp4
func (m *Manim) OutputPath(job Job) string {
	stem := strings.TrimSuffix(filepath.Base(job.ScriptPath), filepath.Ext(job.ScriptPath))
	return filepath.Join(job.MediaDir, "videos", stem, m.resolutionDir, job.Scene+".mp4")
}

// Render 阻塞执行渲染，成功时返回视频路径
func (m *Manim) Render(ctx context.Context, job Job) (videoPath string, err error) {
	ctx, span := tracer.Start(ctx, "renderer.Render")
	defer func() { tracer.End(span, err) }()

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	// 渲染器在脚本目录内运行，路径必须与工作目录无关
	job, err = absJob(job)
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, m.binary, m.Args(job)...)
	cmd.Dir = filepath.Dir(job.ScriptPath)
	cmd.WaitDelay = waitDelay
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	logger.Debug(ctx, "renderer started", "binary", m.binary, "script", job.ScriptPath, "scene", job.Scene)

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("renderer: %w", ctxErr)
		}
		return "", &ExitError{Err: err, Output: tail(out.String(), outputTailBytes)}
	}

	videoPath = m.OutputPath(job)
	if _, statErr := os.Stat(videoPath); statErr != nil {
		return "", fmt.Errorf("%w: %s", ErrOutputMissing, videoPath)
	}

	logger.Info(ctx, "renderer finished", "video", videoPath, "duration_ms", time.Since(start).Milliseconds())
	return videoPath, nil
}

func absJob(job Job) (Job, error) {
	script, err := filepath.Abs(job.ScriptPath)
	if err != nil {
		return job, fmt.Errorf("renderer: resolve script path: %w", err)
	}
	media, err := filepath.Abs(job.MediaDir)
	if err != nil {
		return job, fmt.Errorf("renderer: resolve media dir: %w", err)
	}
	job.ScriptPath, job.MediaDir = script, media
	return job, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
