package prompt

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatTemplateFormatsMathAnimation(t *testing.T) {
	r := NewRegistry()
	tpl, err := r.ChatTemplate(PromptMathAnimationV1)
	require.NoError(t, err)

	example, err := ExampleScene(PromptMathAnimationV1)
	require.NoError(t, err)
	assert.Contains(t, example, "class MathAnimation(VoiceoverScene)")

	msgs, err := tpl.Format(context.Background(), map[string]any{
		VarProblem: `\int_0^1 x^2 dx`,
		VarAnswer:  "1/3",
		VarScene:   "MathAnimation",
		VarExample: example,
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "named MathAnimation")
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, `\int_0^1 x^2 dx`)
	assert.Contains(t, msgs[1].Content, "1/3")
	// 示例脚本里的花括号原样保留
	assert.Contains(t, msgs[1].Content, `{"stroke_opacity": 0.2}`)
}

func TestChatTemplateIsCached(t *testing.T) {
	r := NewRegistry()
	a, err := r.ChatTemplate(PromptMathAnimationV1)
	require.NoError(t, err)
	b, err := r.ChatTemplate(PromptMathAnimationV1)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestUnknownPrompt(t *testing.T) {
	_, err := NewRegistry().ChatTemplate("nope")
	assert.Error(t, err)

	_, err = ParseID("nope")
	assert.Error(t, err)

	id, err := ParseID(" math_animation_v1 ")
	require.NoError(t, err)
	assert.Equal(t, PromptMathAnimationV1, id)

	var nilRegistry *Registry
	_, err = nilRegistry.ChatTemplate(PromptMathAnimationV1)
	assert.Error(t, err)
}
