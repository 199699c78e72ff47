// Package youtube 实现视频平台的断点续传上传协议
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"

	"math-video-api/internal/application/upload"
)

// ValidPrivacyStatuses 允许的可见性
var ValidPrivacyStatuses = []string{"public", "private", "unlisted"}

// statusResumeIncomplete 服务端已收到部分数据
const statusResumeIncomplete = 308

// DefaultChunkSize 分片大小需为 256KiB 的整数倍
const DefaultChunkSize int64 = 8 * 1024 * 1024

// Metadata 视频元数据
type Metadata struct {
	Title         string
	Description   string
	Tags          []string
	CategoryID    string
	PrivacyStatus string
}

// ParseTags 解析逗号分隔的关键词
func ParseTags(keywords string) []string {
	var tags []string
	for _, k := range strings.Split(keywords, ",") {
		if k = strings.TrimSpace(k); k != "" {
			tags = append(tags, k)
		}
	}
	return tags
}

// Validate 校验元数据
func (m Metadata) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return errors.New("title is required")
	}
	if !slices.Contains(ValidPrivacyStatuses, m.PrivacyStatus) {
		return fmt.Errorf("invalid privacy status %q: want one of %s", m.PrivacyStatus, strings.Join(ValidPrivacyStatuses, ", "))
	}
	return nil
}

type videoResource struct {
	Snippet struct {
		Title       string   `json:"title"`
		Description string   `json:"description,omitempty"`
		Tags        []string `json:"tags,omitempty"`
		CategoryID  string   `json:"categoryId,omitempty"`
	} `json:"snippet"`
	Status struct {
		PrivacyStatus string `json:"privacyStatus"`
	} `json:"status"`
}

// Session 一次断点续传会话，实现 upload.ChunkUploader
type Session struct {
	client    *http.Client
	endpoint  string
	path      string
	size      int64
	chunkSize int64
	meta      Metadata

	sessionURI string
	offset     int64
	resync     bool
}

var _ upload.ChunkUploader = (*Session)(nil)

// NewSession 校验文件和元数据后创建会话，不发起网络请求
func NewSession(client *http.Client, endpoint, path string, meta Metadata, chunkSize int64) (*Session, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("please specify a valid file: %w", err)
	}
	if info.IsDir() || info.Size() == 0 {
		return nil, fmt.Errorf("please specify a valid file: %s is empty or a directory", path)
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &Session{
		client:    client,
		endpoint:  endpoint,
		path:      path,
		size:      info.Size(),
		chunkSize: chunkSize,
		meta:      meta,
	}, nil
}

// WithClient 替换发送请求用的客户端，需在第一次 NextChunk 之前调用
func (s *Session) WithClient(client *http.Client) *Session {
	s.client = client
	return s
}

// NextChunk 推进一步：首次调用建立会话，之后逐片上传；
// 上一步出错后先查询服务端已接收的字节数
func (s *Session) NextChunk(ctx context.Context) (progress *upload.Progress, resp *upload.Response, err error) {
	defer func() {
		if err != nil {
			s.resync = s.sessionURI != ""
		}
	}()

	if s.sessionURI == "" {
		if err := s.initiate(ctx); err != nil {
			return nil, nil, err
		}
		return s.progress(), nil, nil
	}

	if s.resync {
		return s.queryStatus(ctx)
	}
	return s.putChunk(ctx)
}

func (s *Session) progress() *upload.Progress {
	return &upload.Progress{BytesSent: s.offset, TotalBytes: s.size}
}

func (s *Session) initiate(ctx context.Context) error {
	var body videoResource
	body.Snippet.Title = s.meta.Title
	body.Snippet.Description = s.meta.Description
	body.Snippet.Tags = s.meta.Tags
	body.Snippet.CategoryID = s.meta.CategoryID
	body.Status.PrivacyStatus = s.meta.PrivacyStatus

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal video metadata: %w", err)
	}

	u, err := url.Parse(s.endpoint)
	if err != nil {
		return fmt.Errorf("parse upload endpoint: %w", err)
	}
	q := u.Query()
	q.Set("uploadType", "resumable")
	q.Set("part", "snippet,status")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Type", "video/*")
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(s.size, 10))

	res, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return httpError(res)
	}
	location := res.Header.Get("Location")
	if location == "" {
		return errors.New("resumable session response without Location header")
	}
	_, _ = io.Copy(io.Discard, res.Body)

	s.sessionURI = location
	s.offset = 0
	return nil
}

func (s *Session) putChunk(ctx context.Context) (*upload.Progress, *upload.Response, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	end := s.offset + s.chunkSize
	if end > s.size {
		end = s.size
	}
	section := io.NewSectionReader(f, s.offset, end-s.offset)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.sessionURI, section)
	if err != nil {
		return nil, nil, err
	}
	req.ContentLength = end - s.offset
	req.Header.Set("Content-Type", "video/*")
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", s.offset, end-1, s.size))

	return s.handle(req)
}

// queryStatus 发送空 PUT 查询已接收范围
func (s *Session) queryStatus(ctx context.Context) (*upload.Progress, *upload.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.sessionURI, http.NoBody)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Range", fmt.Sprintf("bytes */%d", s.size))

	p, r, err := s.handle(req)
	if err == nil {
		s.resync = false
	}
	return p, r, err
}

func (s *Session) handle(req *http.Request) (*upload.Progress, *upload.Response, error) {
	res, err := s.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case statusResumeIncomplete:
		_, _ = io.Copy(io.Discard, res.Body)
		offset, err := parseRange(res.Header.Get("Range"))
		if err != nil {
			return nil, nil, err
		}
		s.offset = offset
		return s.progress(), nil, nil

	case http.StatusOK, http.StatusCreated:
		var raw map[string]any
		if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("decode upload response: %w", err)
		}
		s.offset = s.size
		id, _ := raw["id"].(string)
		return nil, &upload.Response{ID: id, Raw: raw}, nil

	default:
		return nil, nil, httpError(res)
	}
}

// parseRange 解析 "bytes=0-N"，返回下一个待发送的偏移；缺失时从 0 开始
func parseRange(h string) (int64, error) {
	if h == "" {
		return 0, nil
	}
	r := strings.TrimPrefix(h, "bytes=")
	_, last, ok := strings.Cut(r, "-")
	if !ok {
		return 0, fmt.Errorf("malformed Range header %q", h)
	}
	n, err := strconv.ParseInt(last, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed Range header %q: %w", h, err)
	}
	return n + 1, nil
}

func httpError(res *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return &upload.HTTPError{Status: res.StatusCode, Body: strings.TrimSpace(string(body))}
}
