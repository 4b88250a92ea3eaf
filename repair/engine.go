package repair

import (
	"context"
	"strings"
	"time"

	"github.com/k11techlab/testsmith/codegen"
	"github.com/k11techlab/testsmith/config"
	"github.com/k11techlab/testsmith/generator"
	"github.com/k11techlab/testsmith/internal/metrics"
	"github.com/k11techlab/testsmith/internal/tokenizer"
	"github.com/k11techlab/testsmith/llm"
	"github.com/k11techlab/testsmith/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🔧 编译修复引擎
// =============================================================================

// Request 一次修复请求。Artifact 为待修复的产物，修复结果为新产物。
type Request struct {
	Artifact       *generator.Artifact
	CompilerOutput string
	Scenario       string
	// PackageName/ClassName 为空时沿用 Artifact 中的值
	PackageName string
	ClassName   string
	RequestID   string
}

// Config 修复引擎配置
type Config struct {
	MaxAttempts      int
	Temperature      float64
	MaxTokens        int
	MaxTokensCeiling int
	TokenizerModel   string
}

// ConfigFromSettings 从全局配置构造修复配置
func ConfigFromSettings(cfg config.RepairConfig) Config {
	return Config{
		MaxAttempts:      cfg.MaxAttempts,
		Temperature:      cfg.Temperature,
		MaxTokens:        cfg.MaxTokens,
		MaxTokensCeiling: cfg.MaxTokensCeiling,
		TokenizerModel:   cfg.TokenizerModel,
	}
}

// NormalizeMaxAttempts 将最大修复次数规整为至少 1
func NormalizeMaxAttempts(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Engine 无状态修复引擎：一次调用对应一次 LLM 请求，计数由编排器负责。
type Engine struct {
	client    llm.Client
	cfg       Config
	counter   types.TokenCounter
	collector *metrics.Collector
	logger    *zap.Logger
	now       func() time.Time
}

// New 创建修复引擎
func New(client llm.Client, cfg Config, collector *metrics.Collector, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := config.DefaultRepairConfig()
	cfg.MaxAttempts = NormalizeMaxAttempts(cfg.MaxAttempts)
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if cfg.MaxTokensCeiling < cfg.MaxTokens {
		cfg.MaxTokensCeiling = cfg.MaxTokens
	}
	return &Engine{
		client:    client,
		cfg:       cfg,
		counter:   tokenizer.New(cfg.TokenizerModel, logger),
		collector: collector,
		logger:    logger.With(zap.String("component", "repair")),
		now:       time.Now,
	}
}

// WithTokenCounter 替换 Token 计数器
func (e *Engine) WithTokenCounter(counter types.TokenCounter) *Engine {
	e.counter = counter
	return e
}

// MaxAttempts 返回规整后的最大修复次数
func (e *Engine) MaxAttempts() int { return e.cfg.MaxAttempts }

// Temperature 返回修复温度
func (e *Engine) Temperature() float64 { return e.cfg.Temperature }

// TokenBudget 返回修复 brokenCode 时使用的 max_tokens：
// max(配置值, 2×估算 Token + 1024)，不超过上限。
func (e *Engine) TokenBudget(brokenCode string) int {
	budget := 2*e.counter.CountTokens(brokenCode) + 1024
	if budget < e.cfg.MaxTokens {
		budget = e.cfg.MaxTokens
	}
	if budget > e.cfg.MaxTokensCeiling {
		budget = e.cfg.MaxTokensCeiling
	}
	return budget
}

// Repair 基于编译诊断修复产物，返回新产物；输入产物不会被修改。
func (e *Engine) Repair(ctx context.Context, req Request) (*generator.Artifact, error) {
	if req.Artifact == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "artifact to repair is required")
	}
	pkg := firstNonEmpty(req.PackageName, req.Artifact.PackageName)
	class := firstNonEmpty(req.ClassName, req.Artifact.ClassName)
	if err := codegen.ValidateTarget(pkg, class); err != nil {
		return nil, err
	}

	prompt := codegen.BuildRepairPrompt(codegen.RepairInput{
		Scenario:       req.Scenario,
		PackageName:    pkg,
		ClassName:      class,
		CompilerOutput: req.CompilerOutput,
		BrokenCode:     req.Artifact.Source,
	})
	return e.complete(ctx, prompt, req.Artifact.Source, pkg, class, firstNonEmpty(req.RequestID, req.Artifact.RequestID))
}

// Correct 不带诊断信息的定向修正（"make it compile"）
func (e *Engine) Correct(ctx context.Context, code, pkg, class, requestID string) (*generator.Artifact, error) {
	if strings.TrimSpace(code) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "code is required")
	}
	if err := codegen.ValidateTarget(pkg, class); err != nil {
		return nil, err
	}
	return e.complete(ctx, codegen.BuildCorrectionPrompt(code), code, pkg, class, requestID)
}

func (e *Engine) complete(ctx context.Context, prompt, broken, pkg, class, requestID string) (*generator.Artifact, error) {
	budget := e.TokenBudget(broken)
	raw, err := e.client.Complete(ctx, prompt, e.cfg.Temperature, budget)
	if err != nil {
		e.logger.Warn("repair call failed",
			zap.String("class", class),
			zap.Int("max_tokens", budget),
			zap.Error(err))
		return nil, types.Wrap(types.ErrRepairFailed, "compile repair failed", err)
	}

	res := codegen.Normalize(raw, pkg, class)
	if len(res.Warnings) > 0 && e.collector != nil {
		e.collector.RecordNormalizationWarning("repair")
	}

	artifact := generator.NewArtifact(res, pkg, class, requestID, e.now())
	e.logger.Info("artifact repaired",
		zap.String("artifact_id", artifact.ID),
		zap.String("class", artifact.QualifiedName()),
		zap.Int("max_tokens", budget))
	return artifact, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
