// Package storage 提供渲染视频的发布实现
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"math-video-api/internal/config"
	"math-video-api/pkg/tracer"
)

// ObjectName 由请求 ID 得到发布后的文件名
func ObjectName(id string) string {
	return id + ".mp4"
}

// Local 把视频移动到本地静态目录
type Local struct {
	dir       string
	urlPrefix string
}

// NewLocal 创建本地发布器，urlPrefix 形如 http://host:5000/static
func NewLocal(cfg config.LocalPublishConfig, publicBaseURL string) *Local {
	return &Local{
		dir:       cfg.Dir,
		urlPrefix: strings.TrimRight(publicBaseURL, "/") + "/" + strings.Trim(cfg.URLPath, "/"),
	}
}

// Mode 发布模式
func (l *Local) Mode() string {
	return config.PublishModeLocal
}

// Dir 静态目录
func (l *Local) Dir() string {
	return l.dir
}

// URL 返回静态目录下文件的访问地址
func (l *Local) URL(name string) string {
	return l.urlPrefix + "/" + name
}

// Publish 移动视频到 <dir>/<id>.mp4 并返回访问地址
func (l *Local) Publish(ctx context.Context, id, videoPath string) (url string, err error) {
	_, span := tracer.Start(ctx, "storage.Local.Publish")
	defer func() { tracer.End(span, err) }()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("create static dir: %w", err)
	}
	name := ObjectName(id)
	if err := moveFile(videoPath, filepath.Join(l.dir, name)); err != nil {
		return "", err
	}
	return l.URL(name), nil
}

// moveFile 先尝试 rename，跨设备时退回到复制后删除
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	tmp := dst + ".part"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("copy to %s: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return os.Remove(src)
}
