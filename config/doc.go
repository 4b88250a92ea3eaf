// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

// Package config 提供 testsmith 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（TESTSMITH_ 前缀）的顺序加载，
// 覆盖服务器、LLM、生成、修复、工作流、工具链、上下文存储、日志与遥测。
package config
