// Package wolfram 提供 Wolfram|Alpha Full Results API 客户端
package wolfram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"

	"math-video-api/internal/config"
	"math-video-api/pkg/tracer"
)

var (
	// ErrNoResult 服务无法理解输入或没有可用结果
	ErrNoResult = errors.New("wolfram: no result")
	// ErrMissingAppID 未配置 AppID
	ErrMissingAppID = errors.New("wolfram: app id is required")
)

// maxBodyBytes 限制响应体大小
const maxBodyBytes = 4 << 20

// Client 计算知识服务客户端
type Client struct {
	appID   string
	baseURL string
	http    *http.Client
}

// NewClient 创建客户端，httpClient 为空时按配置超时创建
func NewClient(cfg config.WolframConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		appID:   cfg.AppID,
		baseURL: cfg.BaseURL,
		http:    httpClient,
	}
}

// Query 提交表达式，返回最后一个主结果的纯文本
func (c *Client) Query(ctx context.Context, input string) (answer string, err error) {
	ctx, span := tracer.Start(ctx, "wolfram.Query")
	defer func() { tracer.End(span, err) }()

	if c.appID == "" {
		return "", ErrMissingAppID
	}

	q := url.Values{}
	q.Set("appid", c.appID)
	q.Set("input", input)
	q.Set("output", "json")
	q.Set("format", "plaintext")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("wolfram: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("wolfram: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("wolfram: read body: %w", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wolfram: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return ParseAnswer(body)
}

// ParseAnswer 从 JSON 响应中取答案：最后一个 primary pod 的最后一个子结果；
// 没有 primary pod 时退回到最后一个带文本的 pod
func ParseAnswer(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("wolfram: invalid json response")
	}
	result := gjson.GetBytes(body, "queryresult")
	if !result.Exists() {
		return "", fmt.Errorf("wolfram: missing queryresult")
	}

	if errObj := result.Get("error"); errObj.IsObject() {
		return "", fmt.Errorf("wolfram: api error %s: %s", errObj.Get("code").String(), errObj.Get("msg").String())
	}
	if !result.Get("success").Bool() {
		return "", ErrNoResult
	}

	var primary, fallback string
	for _, pod := range result.Get("pods").Array() {
		text := lastPlaintext(pod)
		if text == "" {
			continue
		}
		fallback = text
		if pod.Get("primary").Bool() {
			primary = text
		}
	}

	switch {
	case primary != "":
		return primary, nil
	case fallback != "":
		return fallback, nil
	default:
		return "", ErrNoResult
	}
}

func lastPlaintext(pod gjson.Result) string {
	subpods := pod.Get("subpods").Array()
	for i := len(subpods) - 1; i >= 0; i-- {
		if text := strings.TrimSpace(subpods[i].Get("plaintext").String()); text != "" {
			return text
		}
	}
	return ""
}
