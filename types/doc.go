// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 testsmith 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 llm、store、codegen、
generator、repair、workflow 与 api 等上层模块提供统一的类型契约。

# 核心类型

  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码、Retryable 标记
  - TokenCounter      — 最小 Token 计数接口（CountTokens(string) int）
  - EstimateTokenizer — 基于字符的 Token 估算

# 主要能力

  - Context 传播：WithTraceID / WithRequestID / WithCorrelationKey
  - 错误工具链：Wrap / AsError / HasCode / GetErrorCode / IsRetryable
*/
package types
