// MockToolchain 的编译/执行工具链测试模拟实现。
//
// 支持按序脚本化编译与执行结果、超时与错误注入。
package mocks

import (
	"context"
	"sync"

	"github.com/k11techlab/testsmith/internal/toolchain"
)

// --- MockToolchain 结构 ---

// ToolchainStep 脚本中的一步
type ToolchainStep struct {
	Result toolchain.Result
	Error  error
	// Block 为 true 时阻塞直到 ctx 结束，并返回超时结果
	Block bool
}

// ToolchainCall 记录单次调用
type ToolchainCall struct {
	Stage string
	Unit  toolchain.Unit
}

// MockToolchain 是 toolchain.Toolchain 的模拟实现
type MockToolchain struct {
	mu sync.Mutex

	compile []ToolchainStep
	run     []ToolchainStep

	defaultCompile ToolchainStep
	defaultRun     ToolchainStep

	calls []ToolchainCall
}

// --- 构造函数和 Builder 方法 ---

// NewMockToolchain 创建默认编译与执行都成功的 MockToolchain
func NewMockToolchain() *MockToolchain {
	return &MockToolchain{
		defaultCompile: ToolchainStep{Result: toolchain.Result{OK: true, Output: "BUILD SUCCESS"}},
		defaultRun:     ToolchainStep{Result: toolchain.Result{OK: true, Output: "Tests run: 1, Failures: 0"}},
	}
}

// WithCompileResults 追加按序返回的编译结果
func (m *MockToolchain) WithCompileResults(steps ...ToolchainStep) *MockToolchain {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compile = append(m.compile, steps...)
	return m
}

// WithRunResults 追加按序返回的执行结果
func (m *MockToolchain) WithRunResults(steps ...ToolchainStep) *MockToolchain {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.run = append(m.run, steps...)
	return m
}

// WithDefaultCompile 设置脚本用尽后的编译结果
func (m *MockToolchain) WithDefaultCompile(step ToolchainStep) *MockToolchain {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultCompile = step
	return m
}

// --- toolchain.Toolchain 接口实现 ---

// Compile 返回脚本中的下一个编译结果
func (m *MockToolchain) Compile(ctx context.Context, unit toolchain.Unit) (toolchain.Result, error) {
	return m.next(ctx, "compile", unit)
}

// Run 返回脚本中的下一个执行结果
func (m *MockToolchain) Run(ctx context.Context, unit toolchain.Unit) (toolchain.Result, error) {
	return m.next(ctx, "run", unit)
}

func (m *MockToolchain) next(ctx context.Context, stage string, unit toolchain.Unit) (toolchain.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ToolchainCall{Stage: stage, Unit: unit})
	queue := &m.compile
	step := m.defaultCompile
	if stage == "run" {
		queue = &m.run
		step = m.defaultRun
	}
	if len(*queue) > 0 {
		step = (*queue)[0]
		*queue = (*queue)[1:]
	}
	m.mu.Unlock()

	if step.Block {
		<-ctx.Done()
		return toolchain.Result{TimedOut: true, Output: toolchain.TimedOutMessage}, nil
	}
	return step.Result, step.Error
}

// --- 调用记录查询 ---

// GetCalls 返回所有调用记录
func (m *MockToolchain) GetCalls() []ToolchainCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ToolchainCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CountStage 返回某阶段的调用次数
func (m *MockToolchain) CountStage(stage string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Stage == stage {
			n++
		}
	}
	return n
}

// --- 便捷构造 ---

// CompileFailure 返回一个编译失败步骤
func CompileFailure(diagnostics string) ToolchainStep {
	return ToolchainStep{Result: toolchain.Result{OK: false, Output: diagnostics}}
}

// CompileSuccess 返回一个编译成功步骤
func CompileSuccess() ToolchainStep {
	return ToolchainStep{Result: toolchain.Result{OK: true, Output: "BUILD SUCCESS"}}
}
