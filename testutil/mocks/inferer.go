package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/BaSui01/genbridge/llm"
)

// MockInferer 记录收到的推理请求，并返回预设结果
type MockInferer struct {
	mu       sync.Mutex
	result   llm.Result
	requests []llm.Request
	inferFn  func(ctx context.Context, req llm.Request) llm.Result
}

// NewMockInferer 创建返回固定输出的 MockInferer
func NewMockInferer(output string) *MockInferer {
	return &MockInferer{result: llm.Succeeded(output)}
}

// NewFailingInferer 创建总是以 message 失败的 MockInferer
func NewFailingInferer(message string) *MockInferer {
	return &MockInferer{result: llm.Failed(errors.New(message))}
}

// WithInferFunc 设置自定义处理函数
func (m *MockInferer) WithInferFunc(fn func(ctx context.Context, req llm.Request) llm.Result) *MockInferer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inferFn = fn
	return m
}

// Infer 记录请求并返回结果
func (m *MockInferer) Infer(ctx context.Context, req llm.Request) llm.Result {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	fn := m.inferFn
	result := m.result
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return result
}

// Requests 返回所有已收到的请求
func (m *MockInferer) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount 返回调用次数
func (m *MockInferer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
