// Package node 提供流水线中与模型输出相关的纯函数
package node

import (
	"bytes"
	"errors"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ErrNoCodeBlock 模型回复中没有围栏代码块
var ErrNoCodeBlock = errors.New("no fenced code block in reply")

var markdown = goldmark.New()

// CodeBlock 围栏代码块
type CodeBlock struct {
	Language string
	Content  string
}

// FencedBlocks 按出现顺序返回回复中的全部围栏代码块
func FencedBlocks(reply string) []CodeBlock {
	src := []byte(reply)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var blocks []CodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var buf bytes.Buffer
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		blocks = append(blocks, CodeBlock{
			Language: strings.ToLower(string(fenced.Language(src))),
			Content:  strings.TrimSuffix(buf.String(), "\n"),
		})
		return ast.WalkSkipChildren, nil
	})
	return blocks
}

// ExtractCode 取出脚本源码：优先第一个 python/py 代码块，否则取第一个代码块
func ExtractCode(reply string) (string, error) {
	blocks := FencedBlocks(reply)
	if len(blocks) == 0 {
		return "", ErrNoCodeBlock
	}
	for _, b := range blocks {
		if b.Language == "python" || b.Language == "py" {
			return b.Content, nil
		}
	}
	return blocks[0].Content, nil
}
