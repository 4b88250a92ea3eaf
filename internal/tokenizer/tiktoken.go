package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/k11techlab/testsmith/types"
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// 模型编码将模型名称映射到其 tiktoken 编码。
var modelEncodings = map[string]string{
	"gpt-4o":        "o200k_base",
	"gpt-4o-mini":   "o200k_base",
	"gpt-4.1":       "o200k_base",
	"gpt-4-turbo":   "cl100k_base",
	"gpt-4":         "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
}

const defaultEncoding = "cl100k_base"

// Counter 使用 tiktoken 精确计数，编码不可用（例如离线环境无法下载 BPE 数据）
// 时退化为字符估算器。Counter 实现 types.TokenCounter，可安全并发使用。
type Counter struct {
	encoding string
	enc      *tiktoken.Tiktoken
	once     sync.Once
	initErr  error
	fallback types.TokenCounter
	logger   *zap.Logger
}

// New 为给定模型创建 Counter；未知模型使用 cl100k_base。
func New(model string, logger *zap.Logger) *Counter {
	return newWithEncoding(EncodingForModel(model), logger)
}

func newWithEncoding(encoding string, logger *zap.Logger) *Counter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Counter{
		encoding: encoding,
		fallback: types.NewEstimateTokenizer(),
		logger:   logger.With(zap.String("component", "tokenizer")),
	}
}

// EncodingForModel 返回模型对应的编码，支持前缀匹配（如 "gpt-4o-2024-08-06"）。
func EncodingForModel(model string) string {
	if enc, ok := modelEncodings[model]; ok {
		return enc
	}
	best := ""
	for prefix := range modelEncodings {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		return modelEncodings[best]
	}
	return defaultEncoding
}

// init lazily 初始化 tiktoken 编码（首次使用时可能下载数据）。
func (c *Counter) init() error {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.encoding)
		if err != nil {
			c.initErr = fmt.Errorf("init tiktoken encoding %s: %w", c.encoding, err)
			c.logger.Warn("tiktoken unavailable, falling back to estimator", zap.Error(c.initErr))
			return
		}
		c.enc = enc
	})
	return c.initErr
}

// CountTokens 返回 text 的 token 数，永不失败。
func (c *Counter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if err := c.init(); err != nil {
		return c.fallback.CountTokens(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Exact 报告计数是否来自 tiktoken 而非估算器。
func (c *Counter) Exact() bool {
	return c.init() == nil
}

// Name 返回分词器名称。
func (c *Counter) Name() string {
	if c.Exact() {
		return fmt.Sprintf("tiktoken[%s]", c.encoding)
	}
	return "estimator"
}
