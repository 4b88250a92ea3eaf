// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 testsmith HTTP API 的请求处理器实现。

# 概述

handlers 包实现了 testsmith 全部 HTTP 端点：补全、上下文存取、
单次工作流与工作流回放、测试生成、生成并执行、定向修复、页面对象渲染，
以及健康检查和统一的响应/错误处理。所有 Handler 均遵循标准 net/http 接口，
通过 Swagger 注解生成 API 文档。

# 核心类型

  - CompletionHandler — 单次 LLM 补全
  - ContextHandler    — 关联键上下文的读写与列表
  - WorkflowHandler   — 单次工作流（wf-<uuid>）与编排运行回放
  - GenerateHandler   — 生成测试、生成并执行（编译-修复循环）
  - RepairHandler     — 定向修复，可选写入工作目录
  - PageObjectHandler — 确定性页面对象渲染
  - HealthHandler     — 服务健康检查（/health, /healthz, /ready, /version）
  - Response          — 统一 JSON 响应结构（success + data + error + timestamp）

# 错误处理

类型化错误（types.Error）按错误码映射 HTTP 状态码；显式设置的状态码优先。
未类型化的错误统一返回 INTERNAL_ERROR，不向客户端泄漏内部细节。
修复次数耗尽时返回 422，并在 data 中携带完整的运行记录。
*/
package handlers
