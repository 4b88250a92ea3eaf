// Package tokenizer 提供 Token 计数，用于修复提示词的 Token 预算估算。
// 优先使用 tiktoken 精确计数，不可用时退化为字符估算器。
package tokenizer
