// MockLLM 的 LLM 客户端测试模拟实现。
//
// 支持固定响应、按序脚本响应、延迟与错误注入场景。
package mocks

import (
	"context"
	"sync"
	"time"
)

// --- MockLLM 结构 ---

// LLMCall 记录单次调用
type LLMCall struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
	Response    string
	Error       error
}

// LLMStep 脚本中的一步：返回 Response 或 Error
type LLMStep struct {
	Response string
	Error    error
}

// MockLLM 是 llm.Client 的模拟实现
type MockLLM struct {
	mu sync.Mutex

	// 响应配置
	response string
	err      error
	script   []LLMStep

	// 调用记录
	calls        []LLMCall
	completeFunc func(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)

	// 行为控制
	delay time.Duration
}

// --- 构造函数和 Builder 方法 ---

// NewMockLLM 创建新的 MockLLM
func NewMockLLM() *MockLLM {
	return &MockLLM{response: "public class Mock {}"}
}

// WithResponse 设置固定响应内容
func (m *MockLLM) WithResponse(response string) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithError 设置返回错误
func (m *MockLLM) WithError(err error) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithScript 设置按序返回的脚本；脚本用尽后回落到固定响应
func (m *MockLLM) WithScript(steps ...LLMStep) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, steps...)
	return m
}

// WithDelay 设置响应延迟（遵守 ctx 取消）
func (m *MockLLM) WithDelay(d time.Duration) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithCompleteFunc 设置自定义 Complete 函数
func (m *MockLLM) WithCompleteFunc(fn func(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeFunc = fn
	return m
}

// --- llm.Client 接口实现 ---

// Complete 返回脚本或固定响应
func (m *MockLLM) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	m.mu.Lock()
	delay := m.delay
	fn := m.completeFunc

	var resp string
	var err error
	switch {
	case len(m.script) > 0:
		step := m.script[0]
		m.script = m.script[1:]
		resp, err = step.Response, step.Error
	default:
		resp, err = m.response, m.err
	}
	m.calls = append(m.calls, LLMCall{Prompt: prompt, Temperature: temperature, MaxTokens: maxTokens})
	idx := len(m.calls) - 1
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			err = ctx.Err()
			resp = ""
		}
	}
	if fn != nil && err == nil {
		resp, err = fn(ctx, prompt, temperature, maxTokens)
	}

	m.mu.Lock()
	m.calls[idx].Response = resp
	m.calls[idx].Error = err
	m.mu.Unlock()
	return resp, err
}

// --- 调用记录查询 ---

// GetCalls 返回所有调用记录
func (m *MockLLM) GetCalls() []LLMCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LLMCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// GetCallCount 返回调用次数
func (m *MockLLM) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// GetLastCall 返回最后一次调用
func (m *MockLLM) GetLastCall() *LLMCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	c := m.calls[len(m.calls)-1]
	return &c
}

// --- 便捷构造函数 ---

// NewSuccessLLM 创建总是返回 response 的 MockLLM
func NewSuccessLLM(response string) *MockLLM {
	return NewMockLLM().WithResponse(response)
}

// NewErrorLLM 创建总是返回 err 的 MockLLM
func NewErrorLLM(err error) *MockLLM {
	return NewMockLLM().WithError(err)
}

// NewScriptedLLM 创建按序返回 responses 的 MockLLM
func NewScriptedLLM(responses ...string) *MockLLM {
	steps := make([]LLMStep, len(responses))
	for i, r := range responses {
		steps[i] = LLMStep{Response: r}
	}
	return NewMockLLM().WithScript(steps...)
}
