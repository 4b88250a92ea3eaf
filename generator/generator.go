package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/k11techlab/testsmith/codegen"
	"github.com/k11techlab/testsmith/config"
	"github.com/k11techlab/testsmith/internal/fileutil"
	"github.com/k11techlab/testsmith/internal/metrics"
	"github.com/k11techlab/testsmith/llm"
	"github.com/k11techlab/testsmith/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 测试代码生成器
// =============================================================================

// Request 一次生成请求。校验后不再修改。
type Request struct {
	Scenario    string `json:"scenario"`
	BaseURL     string `json:"base_url,omitempty"`
	PackageName string `json:"package_name,omitempty"`
	ClassName   string `json:"class_name,omitempty"`
	// PromptFile 风格/规范提示词文件（相对提示词目录）
	PromptFile string `json:"prompt_file,omitempty"`
	// RequestID 发起请求的标识，用于追溯
	RequestID string `json:"request_id,omitempty"`
}

// Artifact 一份生成（或修复）得到的源码产物
type Artifact struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	ClassName   string    `json:"class_name"`
	PackageName string    `json:"package_name"`
	GeneratedAt time.Time `json:"generated_at"`
	RequestID   string    `json:"request_id,omitempty"`
	Warnings    []string  `json:"warnings,omitempty"`
}

// QualifiedName 返回全限定类名
func (a *Artifact) QualifiedName() string {
	return a.PackageName + "." + a.ClassName
}

// NewArtifact 由规范化结果构造新产物
func NewArtifact(res codegen.Result, pkg, class, requestID string, at time.Time) *Artifact {
	return &Artifact{
		ID:          uuid.NewString(),
		Source:      res.Source,
		ClassName:   class,
		PackageName: pkg,
		GeneratedAt: at.UTC(),
		RequestID:   requestID,
		Warnings:    res.Warnings,
	}
}

// Config 生成器配置
type Config struct {
	DefaultPackage string
	PromptDir      string
	Temperature    float64
	MaxTokens      int
}

// ConfigFromSettings 从全局配置构造生成器配置
func ConfigFromSettings(cfg config.GenerationConfig) Config {
	return Config{
		DefaultPackage: cfg.DefaultPackage,
		PromptDir:      cfg.PromptDir,
		Temperature:    cfg.Temperature,
		MaxTokens:      cfg.MaxTokens,
	}
}

// Generator 将场景描述转换为 Playwright/TestNG 测试类
type Generator struct {
	client    llm.Client
	cfg       Config
	collector *metrics.Collector
	logger    *zap.Logger
	now       func() time.Time
}

// New 创建生成器
func New(client llm.Client, cfg Config, collector *metrics.Collector, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultPackage == "" {
		cfg.DefaultPackage = config.DefaultGenerationConfig().DefaultPackage
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = config.DefaultGenerationConfig().MaxTokens
	}
	return &Generator{
		client:    client,
		cfg:       cfg,
		collector: collector,
		logger:    logger.With(zap.String("component", "generator")),
		now:       time.Now,
	}
}

// Resolve 补全默认包名/类名并校验请求
func (g *Generator) Resolve(req Request) (Request, error) {
	req.Scenario = strings.TrimSpace(req.Scenario)
	if req.Scenario == "" {
		return req, types.NewError(types.ErrInvalidRequest, "scenario is required")
	}
	req.PackageName = strings.TrimSpace(req.PackageName)
	if req.PackageName == "" {
		req.PackageName = g.cfg.DefaultPackage
	}
	req.ClassName = strings.TrimSpace(req.ClassName)
	if req.ClassName == "" {
		req.ClassName = DefaultClassName(g.now())
	}
	if err := codegen.ValidateTarget(req.PackageName, req.ClassName); err != nil {
		return req, err
	}
	return req, nil
}

// DefaultClassName 返回自动生成的类名，始终以 Test 结尾
func DefaultClassName(at time.Time) string {
	return fmt.Sprintf("GeneratedTest_%dTest", at.UnixMilli())
}

// Generate 校验 → 构建提示词 → 调用 LLM → 规范化 → 打包产物。不写磁盘，不编译。
func (g *Generator) Generate(ctx context.Context, req Request) (*Artifact, error) {
	req, err := g.Resolve(req)
	if err != nil {
		return nil, err
	}

	standards, err := g.LoadPrompt(req.PromptFile)
	if err != nil {
		return nil, err
	}

	prompt := codegen.BuildGenerationPrompt(codegen.GenerationInput{
		Scenario:    req.Scenario,
		PackageName: req.PackageName,
		ClassName:   req.ClassName,
		BaseURL:     req.BaseURL,
		Standards:   standards,
	})

	raw, err := g.client.Complete(ctx, prompt, g.cfg.Temperature, g.cfg.MaxTokens)
	if err != nil {
		g.logger.Warn("generation failed",
			zap.String("class", req.ClassName),
			zap.String("request_id", req.RequestID),
			zap.Error(err))
		return nil, types.Wrap(types.ErrGenerationFailed, "test generation failed", err)
	}

	res := codegen.Normalize(raw, req.PackageName, req.ClassName)
	if len(res.Warnings) > 0 && g.collector != nil {
		g.collector.RecordNormalizationWarning("generate")
	}

	artifact := NewArtifact(res, req.PackageName, req.ClassName, req.RequestID, g.now())
	g.logger.Info("test generated",
		zap.String("artifact_id", artifact.ID),
		zap.String("class", artifact.QualifiedName()),
		zap.Int("warnings", len(artifact.Warnings)))
	return artifact, nil
}

// LoadPrompt 读取提示词目录下的文件；name 为空时返回空串。
// 拒绝绝对路径与跳出提示词目录的路径。
func (g *Generator) LoadPrompt(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil
	}
	path, err := g.promptPath(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", types.NewError(types.ErrInvalidRequest, fmt.Sprintf("prompt file %q not found", name)).
				WithCause(err)
		}
		return "", types.NewError(types.ErrInternalError, "failed to read prompt file").WithCause(err)
	}
	return string(data), nil
}

func (g *Generator) promptPath(name string) (string, error) {
	path, err := fileutil.Within(g.cfg.PromptDir, name)
	if err != nil {
		return "", types.NewError(types.ErrInvalidRequest, fmt.Sprintf("invalid prompt file %q", name)).WithCause(err)
	}
	return path, nil
}
