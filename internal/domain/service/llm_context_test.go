package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelsDefaultToUnknown(t *testing.T) {
	assert.Equal(t, "unknown", WorkflowFromContext(context.Background()))
	assert.Equal(t, "unknown", ProviderFromContext(context.Background()))
	//nolint:staticcheck
	assert.Equal(t, "unknown", WorkflowFromContext(nil))
}

func TestWithWorkflowProvider(t *testing.T) {
	ctx := WithWorkflowProvider(context.Background(), " script ", "gemini")
	assert.Equal(t, "script", WorkflowFromContext(ctx))
	assert.Equal(t, "gemini", ProviderFromContext(ctx))

	same := WithWorkflowProvider(ctx, "   ", "")
	assert.Equal(t, "script", WorkflowFromContext(same))
	assert.Equal(t, "gemini", ProviderFromContext(same))
}
