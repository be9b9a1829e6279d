// MockProvider 的 LLM 提供商测试模拟实现。
//
// 支持固定响应、错误注入、panic 注入与调用记录。
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/genbridge/llm"
)

// --- MockProvider 结构 ---

// MockProvider 是 llm.Provider 的模拟实现
type MockProvider struct {
	mu sync.RWMutex

	// 响应配置
	name       string
	response   string
	err        error
	panicValue any

	// 调用记录
	calls        []MockProviderCall
	generateFunc func(ctx context.Context, parts []llm.Part) (string, error)

	// 行为控制
	delay     time.Duration
	failAfter int // 在第 N 次调用后失败
	callCount int
}

// MockProviderCall 记录单次调用
type MockProviderCall struct {
	Parts  []llm.Part
	Output string
	Error  error
}

// --- 构造函数和 Builder 方法 ---

// NewMockProvider 创建新的 MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		name:     "mock",
		response: "Mock response",
	}
}

// WithName 设置 Provider 名称
func (m *MockProvider) WithName(name string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	return m
}

// WithResponse 设置固定响应
func (m *MockProvider) WithResponse(response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithError 设置错误
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithPanic 让 Generate 以给定值 panic
func (m *MockProvider) WithPanic(v any) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicValue = v
	return m
}

// WithDelay 设置响应延迟，延迟期间遵守 ctx 取消
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithFailAfter 设置在第 N 次调用后失败（需配合 WithError）
func (m *MockProvider) WithFailAfter(n int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// WithGenerateFunc 设置自定义处理函数，优先级最高
func (m *MockProvider) WithGenerateFunc(fn func(ctx context.Context, parts []llm.Part) (string, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generateFunc = fn
	return m
}

// --- llm.Provider 实现 ---

// Name 返回 Provider 名称
func (m *MockProvider) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

// Generate 实现 llm.Provider
func (m *MockProvider) Generate(ctx context.Context, parts []llm.Part) (string, error) {
	m.mu.Lock()
	m.callCount++
	count := m.callCount
	fn := m.generateFunc
	delay := m.delay
	panicValue := m.panicValue
	m.mu.Unlock()

	if panicValue != nil {
		panic(panicValue)
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			m.record(parts, "", ctx.Err())
			return "", ctx.Err()
		}
	}

	var (
		output string
		err    error
	)
	switch {
	case fn != nil:
		output, err = fn(ctx, parts)
	default:
		m.mu.RLock()
		output, err = m.response, m.err
		if m.failAfter > 0 && count <= m.failAfter {
			err = nil
		}
		m.mu.RUnlock()
		if err != nil {
			output = ""
		}
	}

	m.record(parts, output, err)
	return output, err
}

func (m *MockProvider) record(parts []llm.Part, output string, err error) {
	copied := make([]llm.Part, len(parts))
	copy(copied, parts)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockProviderCall{Parts: copied, Output: output, Error: err})
}

// --- 查询方法 ---

// Calls 返回所有调用记录
func (m *MockProvider) Calls() []MockProviderCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]MockProviderCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 返回调用次数
func (m *MockProvider) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount
}

// LastCall 返回最后一次调用
func (m *MockProvider) LastCall() (MockProviderCall, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.calls) == 0 {
		return MockProviderCall{}, false
	}
	return m.calls[len(m.calls)-1], true
}

// Reset 清空调用记录
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.callCount = 0
}

var _ llm.Provider = (*MockProvider)(nil)
