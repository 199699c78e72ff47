// Package entity 定义领域实体
package entity

import (
	"time"
)

// RenderStatus 渲染记录状态
type RenderStatus string

const (
	RenderStatusRunning   RenderStatus = "running"
	RenderStatusSucceeded RenderStatus = "succeeded"
	RenderStatusFailed    RenderStatus = "failed"
)

// RenderRecord 一次视频生成请求的历史记录
type RenderRecord struct {
	ID           string       `json:"id" gorm:"primaryKey;type:varchar(64)"`
	RequestID    string       `json:"request_id,omitempty" gorm:"type:varchar(64);index"`
	Problem      string       `json:"problem" gorm:"type:text"`
	Answer       string       `json:"answer,omitempty" gorm:"type:text"`
	Script       string       `json:"script,omitempty" gorm:"type:text"`
	VideoURL     string       `json:"video_url,omitempty" gorm:"type:text"`
	Status       RenderStatus `json:"status" gorm:"type:varchar(16);index"`
	FailedStage  string       `json:"failed_stage,omitempty" gorm:"type:varchar(16)"`
	ErrorMessage string       `json:"error_message,omitempty" gorm:"type:text"`
	LLMProvider  string       `json:"llm_provider,omitempty" gorm:"type:varchar(64)"`
	PublishMode  string       `json:"publish_mode,omitempty" gorm:"type:varchar(32)"`
	DurationMs   int64        `json:"duration_ms,omitempty"`
	CreatedAt    time.Time    `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time    `json:"updated_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// TableName 指定表名
func (RenderRecord) TableName() string {
	return "render_records"
}

// NewRenderRecord 创建运行中的记录
func NewRenderRecord(id, problem string) *RenderRecord {
	return &RenderRecord{
		ID:        id,
		Problem:   problem,
		Status:    RenderStatusRunning,
		CreatedAt: time.Now(),
	}
}

// Succeed 标记成功
func (r *RenderRecord) Succeed(videoURL string) {
	now := time.Now()
	r.Status = RenderStatusSucceeded
	r.VideoURL = videoURL
	r.CompletedAt = &now
	r.DurationMs = now.Sub(r.CreatedAt).Milliseconds()
}

// Fail 标记失败阶段
func (r *RenderRecord) Fail(stage, errMsg string) {
	now := time.Now()
	r.Status = RenderStatusFailed
	r.FailedStage = stage
	r.ErrorMessage = errMsg
	r.CompletedAt = &now
	r.DurationMs = now.Sub(r.CreatedAt).Milliseconds()
}

// IsTerminal 是否已结束
func (r *RenderRecord) IsTerminal() bool {
	return r.Status == RenderStatusSucceeded || r.Status == RenderStatusFailed
}
