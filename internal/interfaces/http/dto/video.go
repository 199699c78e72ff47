package dto

import (
	"time"

	"math-video-api/internal/domain/entity"
)

// GenerateVideoRequest 生成视频表单
type GenerateVideoRequest struct {
	Text string `form:"text"`
}

// VideoResponse 生成结果，保留前端已在使用的字段名
type VideoResponse struct {
	VideoURL string `json:"videoUrl"`
}

// RenderResponse 渲染历史记录
type RenderResponse struct {
	ID           string     `json:"id"`
	RequestID    string     `json:"request_id,omitempty"`
	Problem      string     `json:"problem"`
	Answer       string     `json:"answer,omitempty"`
	Script       string     `json:"script,omitempty"`
	VideoURL     string     `json:"video_url,omitempty"`
	Status       string     `json:"status"`
	FailedStage  string     `json:"failed_stage,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	LLMProvider  string     `json:"llm_provider,omitempty"`
	PublishMode  string     `json:"publish_mode,omitempty"`
	DurationMs   int64      `json:"duration_ms,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// RenderListResponse 渲染历史列表
type RenderListResponse struct {
	Renders []*RenderResponse `json:"renders"`
}

// ToRenderResponse 将领域实体转换为响应 DTO
func ToRenderResponse(r *entity.RenderRecord) *RenderResponse {
	if r == nil {
		return nil
	}
	return &RenderResponse{
		ID:           r.ID,
		RequestID:    r.RequestID,
		Problem:      r.Problem,
		Answer:       r.Answer,
		Script:       r.Script,
		VideoURL:     r.VideoURL,
		Status:       string(r.Status),
		FailedStage:  r.FailedStage,
		ErrorMessage: r.ErrorMessage,
		LLMProvider:  r.LLMProvider,
		PublishMode:  r.PublishMode,
		DurationMs:   r.DurationMs,
		CreatedAt:    r.CreatedAt,
		CompletedAt:  r.CompletedAt,
	}
}

// ToRenderListResponse 列表不返回脚本正文
func ToRenderListResponse(records []*entity.RenderRecord) *RenderListResponse {
	resp := &RenderListResponse{
		Renders: make([]*RenderResponse, 0, len(records)),
	}
	for _, r := range records {
		item := ToRenderResponse(r)
		item.Script = ""
		resp.Renders = append(resp.Renders, item)
	}
	return resp
}
