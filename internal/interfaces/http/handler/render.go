package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"math-video-api/internal/domain/entity"
	"math-video-api/internal/domain/repository"
	"math-video-api/internal/interfaces/http/dto"
	"math-video-api/pkg/errors"
	"math-video-api/pkg/logger"
)

// RenderHandler 渲染历史查询。repo 为空表示未开启历史记录
type RenderHandler struct {
	repo repository.RenderRepository
}

// NewRenderHandler 创建渲染历史处理器
func NewRenderHandler(repo repository.RenderRepository) *RenderHandler {
	return &RenderHandler{repo: repo}
}

// GetRender 获取单条渲染记录
// @Summary 获取渲染记录
// @Tags Renders
// @Produce json
// @Param rid path string true "渲染 ID"
// @Success 200 {object} dto.Response[dto.RenderResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/renders/{rid} [get]
func (h *RenderHandler) GetRender(c *gin.Context) {
	if h.repo == nil {
		dto.NotFound(c, "render history is disabled")
		return
	}

	record, err := h.repo.GetByID(c.Request.Context(), c.Param("rid"))
	if err != nil {
		logger.Error(c.Request.Context(), "failed to get render", err)
		dto.AppError(c, errors.Wrap(err, errors.CodeDatabaseError, "failed to get render"), "")
		return
	}
	if record == nil {
		dto.AppError(c, errors.ErrRenderNotFound, "")
		return
	}

	dto.Success(c, dto.ToRenderResponse(record))
}

// ListRenders 分页列出最近的渲染记录
// @Summary 渲染记录列表
// @Tags Renders
// @Produce json
// @Param status query string false "running/succeeded/failed"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[dto.RenderListResponse]
// @Router /v1/renders [get]
func (h *RenderHandler) ListRenders(c *gin.Context) {
	if h.repo == nil {
		dto.NotFound(c, "render history is disabled")
		return
	}

	status := entity.RenderStatus(c.Query("status"))
	switch status {
	case "", entity.RenderStatusRunning, entity.RenderStatusSucceeded, entity.RenderStatusFailed:
	default:
		dto.BadRequest(c, "invalid status")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	pagination := repository.NewPagination(page, pageSize)

	result, err := h.repo.ListRecent(c.Request.Context(), status, pagination)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to list renders", err)
		dto.AppError(c, errors.Wrap(err, errors.CodeDatabaseError, "failed to list renders"), "")
		return
	}

	dto.SuccessWithPage(c, dto.ToRenderListResponse(result.Items),
		dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}
