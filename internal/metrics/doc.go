// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖
HTTP、LLM、工作流与上下文存储四个维度。

# 核心类型

  - Collector：指标收集器，使用 promauto 注册，按 namespace 隔离。

# 主要能力

  - HTTP 指标：请求总数、耗时、请求/响应体大小，状态码归类为 2xx/3xx/4xx/5xx。
  - LLM 指标：按模型与结果（ok/upstream_error/transport_error 等）分组的请求数与耗时。
  - 工作流指标：终态计数与耗时、阶段转换、修复尝试结果、规范化告警。
  - 上下文存储指标：按后端与操作分组的调用次数与耗时。
*/
package metrics
