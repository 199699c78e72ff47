package postgres

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"math-video-api/internal/domain/entity"
	"math-video-api/internal/domain/repository"
)

// RenderRepository 渲染历史仓储实现
type RenderRepository struct {
	client *Client
}

var _ repository.RenderRepository = (*RenderRepository)(nil)

// NewRenderRepository 创建渲染历史仓储
func NewRenderRepository(client *Client) *RenderRepository {
	return &RenderRepository{client: client}
}

// Create 创建记录
func (r *RenderRepository) Create(ctx context.Context, record *entity.RenderRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.RenderRepository.Create",
		trace.WithAttributes(attribute.String("render.id", record.ID)))
	defer span.End()

	if err := r.client.db.WithContext(ctx).Create(record).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create render record: %w", err)
	}
	return nil
}

// Update 更新记录
func (r *RenderRepository) Update(ctx context.Context, record *entity.RenderRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.RenderRepository.Update",
		trace.WithAttributes(attribute.String("render.id", record.ID)))
	defer span.End()

	if err := r.client.db.WithContext(ctx).Save(record).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update render record: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取记录
func (r *RenderRepository) GetByID(ctx context.Context, id string) (*entity.RenderRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.RenderRepository.GetByID",
		trace.WithAttributes(attribute.String("render.id", id)))
	defer span.End()

	var record entity.RenderRecord
	if err := r.client.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get render record: %w", err)
	}
	return &record, nil
}

// ListRecent 按创建时间倒序列出记录，status 为空时不过滤
func (r *RenderRepository) ListRecent(ctx context.Context, status entity.RenderStatus, pagination repository.Pagination) (*repository.PagedResult[*entity.RenderRecord], error) {
	ctx, span := tracer.Start(ctx, "postgres.RenderRepository.ListRecent")
	defer span.End()

	query := r.client.db.WithContext(ctx).Model(&entity.RenderRecord{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	// Count 与 Find 各自克隆语句，互不影响
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count render records: %w", err)
	}

	var records []*entity.RenderRecord
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&records).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list render records: %w", err)
	}
	return repository.NewPagedResult(records, total, pagination), nil
}
