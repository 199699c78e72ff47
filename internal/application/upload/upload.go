// Package upload 实现有上限的断点续传重试循环
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/url"
	"slices"
	"syscall"
	"time"

	"golang.org/x/oauth2"

	"math-video-api/pkg/logger"
	"math-video-api/pkg/metrics"
)

// DefaultMaxRetries 默认重试上限
const DefaultMaxRetries = 10

var (
	// ErrRetriesExhausted 可重试错误次数超过上限，放弃上传
	ErrRetriesExhausted = errors.New("upload: retries exhausted")
	// ErrUnexpectedResponse 上传结束但响应中没有视频 ID
	ErrUnexpectedResponse = errors.New("upload: unexpected response without id")
)

// DefaultRetriableStatus 可重试的 HTTP 状态码
var DefaultRetriableStatus = []int{500, 502, 503, 504}

// Progress 部分完成的上传进度
type Progress struct {
	BytesSent  int64
	TotalBytes int64
}

// Response 上传完成后的响应
type Response struct {
	ID  string
	Raw map[string]any
}

// ChunkUploader 每次调用推进一个分片；
// 返回 (nil, resp, nil) 表示结束，返回 (progress, nil, nil) 表示还有剩余分片
type ChunkUploader interface {
	NextChunk(ctx context.Context) (*Progress, *Response, error)
}

// HTTPError 服务端返回的非成功状态
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upload: http status %d: %s", e.Status, e.Body)
}

// Policy 重试策略
type Policy struct {
	MaxRetries      int
	RetriableStatus []int
	// MaxBackoff 为 0 时不封顶
	MaxBackoff time.Duration
	// Sleep 和 Rand 可替换，便于测试
	Sleep      func(ctx context.Context, d time.Duration) error
	Rand       func() float64
	OnProgress func(Progress)
}

// DefaultPolicy 默认策略：上限 10 次，随机抖动指数退避
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      DefaultMaxRetries,
		RetriableStatus: DefaultRetriableStatus,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.RetriableStatus == nil {
		p.RetriableStatus = DefaultRetriableStatus
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	if p.Rand == nil {
		p.Rand = rand.Float64
	}
	return p
}

// Backoff 第 retry 次重试前的等待：rand[0,1) * 2^retry 秒
func (p Policy) Backoff(retry int) time.Duration {
	d := time.Duration(p.Rand() * math.Pow(2, float64(retry)) * float64(time.Second))
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}

// Outcome 上传结果
type Outcome struct {
	ID       string
	Attempts int
	Retries  int
}

// Run 反复请求下一个分片直到得到视频 ID。
// 可重试错误累计超过 MaxRetries 后返回 ErrRetriesExhausted，此时共尝试 MaxRetries+1 次；
// 不可重试的错误直接返回。
func Run(ctx context.Context, u ChunkUploader, policy Policy) (Outcome, error) {
	p := policy.withDefaults()
	var out Outcome

	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		out.Attempts++
		progress, resp, err := u.NextChunk(ctx)

		switch {
		case err == nil && resp != nil:
			if resp.ID == "" {
				metrics.UploadAttemptsTotal.WithLabelValues("fatal").Inc()
				return out, fmt.Errorf("%w: %v", ErrUnexpectedResponse, resp.Raw)
			}
			metrics.UploadAttemptsTotal.WithLabelValues("done").Inc()
			out.ID = resp.ID
			logger.Info(ctx, "video uploaded", "video_id", resp.ID, "attempts", out.Attempts)
			return out, nil

		case err == nil:
			metrics.UploadAttemptsTotal.WithLabelValues("partial").Inc()
			if progress != nil && p.OnProgress != nil {
				p.OnProgress(*progress)
			}
			continue
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		if !IsRetriable(err, p.RetriableStatus) {
			metrics.UploadAttemptsTotal.WithLabelValues("fatal").Inc()
			return out, err
		}

		metrics.UploadAttemptsTotal.WithLabelValues("retriable").Inc()
		out.Retries++
		if out.Retries > p.MaxRetries {
			logger.Warn(ctx, "no longer attempting to retry", "attempts", out.Attempts, "error", err.Error())
			return Outcome{Attempts: out.Attempts, Retries: out.Retries}, fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
		}

		wait := p.Backoff(out.Retries)
		logger.Warn(ctx, "retriable upload error", "retry", out.Retries, "sleep_ms", wait.Milliseconds(), "error", err.Error())
		if err := p.Sleep(ctx, wait); err != nil {
			return out, err
		}
	}
}

// IsRetriable 判断错误是否可重试：指定 HTTP 状态码或传输层错误
func IsRetriable(err error, statuses []int) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return slices.Contains(statuses, httpErr.Status)
	}
	// 令牌刷新失败只在授权服务端返回可重试状态码时重试
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return retrieveErr.Response != nil && slices.Contains(statuses, retrieveErr.Response.StatusCode)
	}
	// url.Error 本身实现 net.Error，按其内部原因判断
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
