// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 testsmith 服务端程序入口。

# 概述

cmd/testsmith 是 testsmith 的可执行入口，提供 HTTP API 服务、
单次测试生成、SQL 上下文表迁移、健康检查和版本查询等子命令。
程序支持 YAML 配置文件与 TESTSMITH_ 环境变量、结构化日志（zap）、
Prometheus 指标采集以及 OpenTelemetry 链路追踪。

# 核心类型

  - Server      — 主服务器，装配存储、LLM、生成、修复、编排与全部 Handler
  - Middleware  — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve、generate、migrate（up/status）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、
    Metrics、OTelTracing、CORS、RateLimiter（基于 IP）、
    APIKeyAuth（配置了 api_keys 时）、JWTAuth（配置了 jwt.secret 时）
  - 上下文存储不可达时按配置回退到内存存储
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 优雅关闭：信号监听 → 关闭 HTTP → 停止限流器 → 关闭存储 → 刷新遥测 → 关闭 Metrics
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
