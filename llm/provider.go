package llm

import "context"

// Provider 是远端生成式模型的最小抽象。
// Generate 按顺序发送 parts，返回模型输出的文本。
type Provider interface {
	Name() string
	Generate(ctx context.Context, parts []Part) (string, error)
}
