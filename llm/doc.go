// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供对 OpenAI 兼容 Chat Completions 接口的单次补全调用。

# 核心类型

  - [Client]：补全接口，Complete(ctx, prompt, temperature, maxTokens)。
  - [OpenAIClient]：基于安全 HTTP 客户端的实现，构造后不可变，可并发使用。
  - [InstrumentedClient]：记录 Prometheus 指标与 OpenTelemetry Span 的装饰器。
  - [Resolver]：凭据解析链（显式配置 → 进程环境变量 → .env 文件）。

# 错误语义

  - 参数越界（temperature ∉ [0,2] 或 maxTokens ≤ 0）返回 INVALID_REQUEST。
  - 缺少 API Key 返回 CONFIGURATION_ERROR，且不发起网络请求。
  - 非 2xx 响应返回 UPSTREAM_ERROR，并携带上游状态码。
  - 网络错误或超时返回 TRANSPORT_ERROR。

客户端内部从不重试。
*/
package llm
