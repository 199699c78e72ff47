package eino

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"math-video-api/internal/domain/service"
	"math-video-api/pkg/metrics"
)

func TestChatModelHandlerRecordsSuccess(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := service.WithWorkflowProvider(context.Background(), "handler_test_ok", "fake")

	ctx = h.OnStart(ctx, nil, &model.CallbackInput{Config: &model.Config{Model: "m1"}})
	assert.GreaterOrEqual(t, elapsedSeconds(ctx), 0.0)

	h.OnEnd(ctx, nil, &model.CallbackOutput{TokenUsage: &model.TokenUsage{PromptTokens: 7, CompletionTokens: 11}})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("handler_test_ok", "fake", "m1", "success")))
	assert.Equal(t, 7.0, testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("handler_test_ok", "fake", "m1", "prompt")))
	assert.Equal(t, 11.0, testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("handler_test_ok", "fake", "m1", "completion")))
}

func TestChatModelHandlerRecordsError(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := service.WithWorkflowProvider(context.Background(), "handler_test_err", "fake")

	ctx = h.OnStart(ctx, nil, &model.CallbackInput{Config: &model.Config{Model: "m2"}})
	h.OnError(ctx, nil, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("handler_test_err", "fake", "m2", "error")))
}

func TestElapsedSecondsWithoutStart(t *testing.T) {
	assert.Equal(t, 0.0, elapsedSeconds(context.Background()))
}
