// Package prompt 管理内嵌的提示词模板
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt templates/*.py
var templatesFS embed.FS

type PromptID string

const (
	PromptMathAnimationV1 PromptID = "math_animation_v1"
)

// 模板变量名
const (
	VarProblem = "problem"
	VarAnswer  = "answer"
	VarScene   = "scene"
	VarExample = "example"
)

// 生成的脚本是 Python 源码，花括号很常见，所以模板统一用 GoTemplate 语法
const templateFormat = schema.GoTemplate

type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

// ParseID 校验配置中的模板 ID
func ParseID(s string) (PromptID, error) {
	id := PromptID(strings.TrimSpace(s))
	if _, _, err := resolvePromptFiles(id); err != nil {
		return "", err
	}
	return id, nil
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	systemPath, userPath, err := resolvePromptFiles(id)
	if err != nil {
		return nil, err
	}
	system, err := readEmbeddedText(systemPath)
	if err != nil {
		return nil, err
	}
	user, err := readEmbeddedText(userPath)
	if err != nil {
		return nil, err
	}

	tpl := einoprompt.FromMessages(
		templateFormat,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
	r.cache[id] = tpl
	return tpl, nil
}

// ExampleScene 返回随模板一起提供给模型的示例脚本
func ExampleScene(id PromptID) (string, error) {
	switch id {
	case PromptMathAnimationV1:
		return readEmbeddedText("templates/math_animation_v1.example.py")
	default:
		return "", fmt.Errorf("unknown prompt id: %s", id)
	}
}

func resolvePromptFiles(id PromptID) (systemFile string, userFile string, err error) {
	switch id {
	case PromptMathAnimationV1:
		return "templates/math_animation_v1.system.txt", "templates/math_animation_v1.user.txt", nil
	default:
		return "", "", fmt.Errorf("unknown prompt id: %s", id)
	}
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
