// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"math-video-api/internal/application/mathvideo"
	"math-video-api/internal/interfaces/http/dto"
	"math-video-api/pkg/errors"
	"math-video-api/pkg/logger"
)

// VideoGenerator 处理器对生成流水线的依赖
type VideoGenerator interface {
	Generate(ctx context.Context, req mathvideo.Request) (*mathvideo.Result, error)
	DemoURL() string
}

// VideoHandler 视频生成处理器
type VideoHandler struct {
	generator VideoGenerator
}

// NewVideoHandler 创建视频生成处理器
func NewVideoHandler(generator VideoGenerator) *VideoHandler {
	return &VideoHandler{generator: generator}
}

// Demo 返回演示视频
// @Summary 演示视频
// @Tags Video
// @Produce json
// @Success 200 {object} dto.VideoResponse
// @Router /generate-video [get]
func (h *VideoHandler) Demo(c *gin.Context) {
	c.JSON(200, dto.VideoResponse{VideoURL: h.generator.DemoURL()})
}

// Generate 根据题目生成讲解视频
// @Summary 生成视频
// @Description 求解题目、生成动画脚本、渲染并发布视频
// @Tags Video
// @Accept x-www-form-urlencoded
// @Produce json
// @Param text formData string true "题目"
// @Success 200 {object} dto.VideoResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /generate-video [post]
func (h *VideoHandler) Generate(c *gin.Context) {
	var req dto.GenerateVideoRequest
	if err := c.ShouldBind(&req); err != nil {
		dto.BadRequest(c, "invalid form: "+err.Error())
		return
	}

	res, err := h.generator.Generate(c.Request.Context(), mathvideo.Request{
		RequestID: c.GetString("request_id"),
		Problem:   req.Text,
	})
	if err != nil {
		appErr, stage := pipelineError(err)
		if appErr.HTTPStatus >= 500 {
			logger.Error(c.Request.Context(), "generate video failed", err, "stage", stage)
		}
		dto.AppError(c, appErr, stage)
		return
	}

	c.JSON(200, dto.VideoResponse{VideoURL: res.VideoURL})
}

// rootCause 取出阶段错误包裹的原始错误
func rootCause(err error) error {
	var stageErr *mathvideo.StageError
	if stderrors.As(err, &stageErr) && stageErr.Err != nil {
		return stageErr.Err
	}
	return err
}

// pipelineError 把流水线错误映射为应用错误，第二个返回值是失败阶段
func pipelineError(err error) (*errors.AppError, string) {
	if stderrors.Is(err, mathvideo.ErrEmptyProblem) {
		return errors.Wrap(err, errors.CodeInvalidParam, "text is required"), ""
	}

	stage, _ := mathvideo.StageOf(err)
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.CodeGatewayTimeout, "video generation timed out"), string(stage)
	}
	// 下游已经分类过的错误原样返回
	if errors.IsAppError(err) {
		return errors.AsAppError(err), string(stage)
	}

	switch stage {
	case mathvideo.StageSolve:
		return errors.Wrap(err, errors.CodeSolveFailed, "failed to solve problem"), string(stage)
	case mathvideo.StageGenerate:
		return errors.Wrap(err, errors.CodeLLMCallFailed, "failed to generate animation script"), string(stage)
	case mathvideo.StageExtract:
		// 抽取失败的原因不含内部路径，直接告诉调用方
		appErr := errors.Wrap(err, errors.CodeScriptExtractFailed, "model reply contained no usable script")
		return appErr.WithDetail(rootCause(err).Error()), string(stage)
	case mathvideo.StageRender:
		return errors.Wrap(err, errors.CodeRenderFailed, "failed to render video"), string(stage)
	case mathvideo.StagePublish:
		return errors.Wrap(err, errors.CodePublishFailed, "failed to publish video"), string(stage)
	default:
		return errors.Wrap(err, errors.CodeGenerationFailed, "video generation failed"), string(stage)
	}
}
