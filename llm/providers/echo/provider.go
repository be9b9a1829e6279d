// Package echo 提供不访问网络的本地 Provider，用于开发与冒烟测试。
package echo

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/genbridge/llm"
)

const providerName = "echo"

// EchoProvider 把收到的内容回显为输出：文本原样保留，二进制片段显示为 [mime, n bytes]
type EchoProvider struct {
	prefix string
}

// NewEchoProvider 创建 EchoProvider，prefix 为空时不加前缀
func NewEchoProvider(prefix string) *EchoProvider {
	return &EchoProvider{prefix: strings.TrimSpace(prefix)}
}

// Name 返回 Provider 名称
func (p *EchoProvider) Name() string { return providerName }

// Generate 实现 llm.Provider
func (p *EchoProvider) Generate(ctx context.Context, parts []llm.Part) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	lines := make([]string, 0, len(parts)+1)
	if p.prefix != "" {
		lines = append(lines, p.prefix)
	}
	for _, part := range parts {
		if part.IsText() {
			lines = append(lines, part.Text)
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s, %d bytes]", part.MIMEType, len(part.Data)))
	}
	return strings.Join(lines, "\n"), nil
}

var _ llm.Provider = (*EchoProvider)(nil)
