package api

import (
	"github.com/k11techlab/testsmith/generator"
	"github.com/k11techlab/testsmith/store"
	"github.com/k11techlab/testsmith/workflow"
)

// =============================================================================
// 单次补全类型
// =============================================================================

// CompletionRequest 单次补全请求。
// @Description 单次补全请求结构
type CompletionRequest struct {
	// 原样发送给模型的提示词
	Prompt string `json:"prompt" example:"Write a haiku about flaky tests"`
	// 采样温度（0-2），为空时使用配置默认值
	Temperature *float64 `json:"temperature,omitempty" example:"0.7"`
	// 最大生成 Token 数，为 0 时使用配置默认值
	MaxTokens int `json:"max_tokens,omitempty" example:"1024"`
}

// CompletionResponse 单次补全响应。
// @Description 单次补全响应结构
type CompletionResponse struct {
	Result string `json:"result"`
}

// =============================================================================
// 上下文存储类型
// =============================================================================

// ContextPutRequest 追加上下文记录请求。
// @Description 追加上下文记录
type ContextPutRequest struct {
	Key   string `json:"key" example:"wf-123"`
	Value string `json:"value" example:"remember this"`
	// 记录角色，默认为 user
	Role string `json:"role,omitempty" example:"user"`
}

// ContextResponse 上下文查询响应：最新值与完整历史。
// @Description 上下文查询响应
type ContextResponse struct {
	Key     string        `json:"key"`
	Value   string        `json:"value"`
	Seq     int64         `json:"seq"`
	Entries []store.Entry `json:"entries,omitempty"`
}

// ContextListResponse 上下文列表响应。
// @Description 上下文键列表
type ContextListResponse struct {
	Keys  []store.Summary `json:"keys"`
	Count int             `json:"count"`
}

// =============================================================================
// 工作流类型
// =============================================================================

// WorkflowRequest 单次工作流请求：提示词原样发送给模型，结果以 wf-<uuid> 保存。
// @Description 单次工作流请求
type WorkflowRequest struct {
	Prompt string `json:"prompt" example:"Summarize the login flow"`
}

// WorkflowResponse 单次工作流响应。
// @Description 单次工作流响应
type WorkflowResponse struct {
	Workflow string `json:"workflow" example:"executed"`
	Key      string `json:"key" example:"wf-6f1c..."`
	Result   string `json:"result"`
}

// =============================================================================
// 代码修复类型
// =============================================================================

// CorrectCodeRequest 定向修复请求。提供编译输出或场景时走完整修复提示词，
// 否则使用简短的修复提示词。
// @Description 定向修复请求
type CorrectCodeRequest struct {
	Code           string `json:"code"`
	CompilerOutput string `json:"compiler_output,omitempty"`
	Scenario       string `json:"scenario,omitempty"`
	PackageName    string `json:"package_name,omitempty"`
	ClassName      string `json:"class_name,omitempty"`
	// WritePath 相对于测试源码根目录的 .java 文件路径；为空时不写盘
	WritePath string `json:"write_path,omitempty"`
}

// CorrectCodeResponse 定向修复响应。
// @Description 定向修复响应
type CorrectCodeResponse struct {
	CorrectedCode string   `json:"corrected_code"`
	PackageName   string   `json:"package_name"`
	ClassName     string   `json:"class_name"`
	Warnings      []string `json:"warnings,omitempty"`
	WrittenTo     string   `json:"written_to,omitempty"`
}

// =============================================================================
// 测试生成类型
// =============================================================================

// GenerateTestRequest 测试生成请求。
// @Description 测试生成请求
type GenerateTestRequest = generator.Request

// GenerateAndRunRequest 生成并编译/执行请求。
// @Description 生成并执行请求
type GenerateAndRunRequest struct {
	generator.Request
	// 恢复已有工作流时传入；为空时生成 wf-<uuid>
	CorrelationKey string `json:"correlation_key,omitempty"`
	// 降低本次运行的最大修复次数，超过配置上限时按上限处理
	MaxAttempts int `json:"max_attempts,omitempty"`
}

// GenerateAndRunResponse 生成并执行响应。
// @Description 工作流运行结果
type GenerateAndRunResponse = workflow.Run

// PageObjectResponse 页面对象生成响应。
// @Description 页面对象生成响应
type PageObjectResponse struct {
	PageObjects []*generator.PageObject `json:"page_objects"`
	Count       int                     `json:"count"`
}
