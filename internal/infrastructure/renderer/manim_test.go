package renderer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"math-video-api/internal/config"
)

// writeFakeRenderer 写一个按 manim 参数约定工作的 shell 脚本
func writeFakeRenderer(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell renderer stub requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fake-manim")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func newJob(t *testing.T) Job {
	dir := t.TempDir()
	script := filepath.Join(dir, "scene.py")
	require.NoError(t, os.WriteFile(script, []byte("class MathAnimation: pass\n"), 0o644))
	return Job{ScriptPath: script, MediaDir: filepath.Join(dir, "media"), Scene: "MathAnimation"}
}

func TestRenderSuccess(t *testing.T) {
	bin := writeFakeRenderer(t, `out="$3/videos/$(basename "$4" .py)/480p15"
mkdir -p "$out" && printf 'mp4' > "$out/$5.mp4"`)
	m := NewManim(config.RendererConfig{Binary: bin, QualityFlag: "-ql", ResolutionDir: "480p15", Timeout: 10 * time.Second})
	job := newJob(t)

	video, err := m.Render(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(job.MediaDir, "videos", "scene", "480p15", "MathAnimation.mp4"), video)
	assert.FileExists(t, video)
}

func TestRenderRelativeWorkDir(t *testing.T) {
	bin := writeFakeRenderer(t, `[ -f "$4" ] || { echo "no such script $4 (cwd $(pwd))"; exit 2; }
out="$3/videos/$(basename "$4" .py)/480p15"
mkdir -p "$out" && printf 'mp4' > "$out/$5.mp4"`)
	m := NewManim(config.RendererConfig{Binary: bin, QualityFlag: "-ql", ResolutionDir: "480p15", Timeout: 10 * time.Second})

	root := t.TempDir()
	t.Chdir(root)
	require.NoError(t, os.MkdirAll(filepath.Join("var", "renders", "req-1"), 0o755))
	script := filepath.Join("var", "renders", "req-1", "scene.py")
	require.NoError(t, os.WriteFile(script, []byte("class MathAnimation: pass\n"), 0o644))

	video, err := m.Render(context.Background(), Job{
		ScriptPath: script,
		MediaDir:   filepath.Join("var", "renders", "req-1", "media"),
		Scene:      "MathAnimation",
	})
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(video))
	assert.FileExists(t, filepath.Join(root, "var", "renders", "req-1", "media", "videos", "scene", "480p15", "MathAnimation.mp4"))
}

func TestRenderNonZeroExit(t *testing.T) {
	bin := writeFakeRenderer(t, `echo "NameError: name 'Foo' is not defined" >&2; exit 1`)
	m := NewManim(config.RendererConfig{Binary: bin, QualityFlag: "-ql", ResolutionDir: "480p15"})

	_, err := m.Render(context.Background(), newJob(t))
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Contains(t, exitErr.Output, "NameError")
}

func TestRenderMissingOutput(t *testing.T) {
	bin := writeFakeRenderer(t, `exit 0`)
	m := NewManim(config.RendererConfig{Binary: bin, QualityFlag: "-ql", ResolutionDir: "480p15"})

	_, err := m.Render(context.Background(), newJob(t))
	assert.ErrorIs(t, err, ErrOutputMissing)
}

func TestRenderTimeout(t *testing.T) {
	bin := writeFakeRenderer(t, `exec sleep 5`)
	m := NewManim(config.RendererConfig{Binary: bin, QualityFlag: "-ql", ResolutionDir: "480p15", Timeout: 100 * time.Millisecond})

	start := time.Now()
	_, err := m.Render(context.Background(), newJob(t))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestArgs(t *testing.T) {
	m := NewManim(config.RendererConfig{QualityFlag: "-ql"})
	args := m.Args(Job{ScriptPath: "/w/id/scene.py", MediaDir: "/w/id/media", Scene: "MathAnimation"})
	assert.Equal(t, []string{"-ql", "--media_dir", "/w/id/media", "/w/id/scene.py", "MathAnimation"}, args)
}
