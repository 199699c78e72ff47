// Package service 定义跨层共享的领域上下文
package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyWorkflow llmCtxKey = "llm_workflow"
	llmCtxKeyProvider llmCtxKey = "llm_provider"
)

const unknownLabel = "unknown"

// WithWorkflowProvider 标记本次 LLM 调用所属的流水线环节与提供商，用于指标标签。
// 空白值不覆盖已有标签
func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	return withLabel(withLabel(ctx, llmCtxKeyWorkflow, workflow), llmCtxKeyProvider, provider)
}

// WorkflowFromContext 未设置时返回 unknown
func WorkflowFromContext(ctx context.Context) string {
	return labelFromContext(ctx, llmCtxKeyWorkflow)
}

// ProviderFromContext 未设置时返回 unknown
func ProviderFromContext(ctx context.Context) string {
	return labelFromContext(ctx, llmCtxKeyProvider)
}

func withLabel(ctx context.Context, key llmCtxKey, value string) context.Context {
	if ctx == nil {
		return nil
	}
	v := strings.TrimSpace(value)
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func labelFromContext(ctx context.Context, key llmCtxKey) string {
	if ctx == nil {
		return unknownLabel
	}
	s, ok := ctx.Value(key).(string)
	if !ok || strings.TrimSpace(s) == "" {
		return unknownLabel
	}
	return strings.TrimSpace(s)
}
