package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/k11techlab/testsmith/codegen"
	"github.com/k11techlab/testsmith/config"
	"github.com/k11techlab/testsmith/internal/fileutil"
	"github.com/k11techlab/testsmith/types"
	"go.uber.org/zap"
)

// Unit 一个待编译/执行的源码单元
type Unit struct {
	PackageName string
	ClassName   string
	Source      string
}

// QualifiedName 返回全限定类名
func (u Unit) QualifiedName() string {
	return u.PackageName + "." + u.ClassName
}

// Result 一次编译或执行的结果。OK=false 表示编译失败/测试失败，不是基础设施错误。
type Result struct {
	OK       bool          `json:"ok"`
	Output   string        `json:"output"`
	TimedOut bool          `json:"timed_out,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Toolchain 编译与执行协作者。返回 error 仅表示无法执行（写文件失败、命令不存在等）。
type Toolchain interface {
	Compile(ctx context.Context, unit Unit) (Result, error)
	Run(ctx context.Context, unit Unit) (Result, error)
}

// TimedOutMessage 超时的诊断文本
const TimedOutMessage = "timed out"

// Maven 基于 Maven 命令行的工具链：写入源码后执行 test-compile 与 -Dtest 运行。
type Maven struct {
	cfg    config.ToolchainConfig
	logger *zap.Logger
}

// NewMaven 创建 Maven 工具链
func NewMaven(cfg config.ToolchainConfig, logger *zap.Logger) *Maven {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := config.DefaultToolchainConfig()
	if len(cfg.CompileCommand) == 0 {
		cfg.CompileCommand = defaults.CompileCommand
	}
	if len(cfg.RunCommand) == 0 {
		cfg.RunCommand = defaults.RunCommand
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = defaults.MaxOutputBytes
	}
	return &Maven{cfg: cfg, logger: logger.With(zap.String("component", "toolchain"))}
}

// SourceFile 返回 unit 在工程中的源码路径
func (m *Maven) SourceFile(unit Unit) string {
	return filepath.Join(m.cfg.WorkDir, m.cfg.SourceRoot, filepath.FromSlash(codegen.SourcePath(unit.PackageName, unit.ClassName)))
}

// Compile 写入源码并执行编译命令
func (m *Maven) Compile(ctx context.Context, unit Unit) (Result, error) {
	if err := codegen.ValidateTarget(unit.PackageName, unit.ClassName); err != nil {
		return Result{}, err
	}
	path := m.SourceFile(unit)
	if err := fileutil.AtomicWriteString(path, unit.Source, 0o644); err != nil {
		return Result{}, types.NewError(types.ErrToolchain, "failed to write source file").WithCause(err)
	}
	m.logger.Debug("source written", zap.String("path", path))
	return m.exec(ctx, "compile", m.cfg.CompileCommand, unit)
}

// Run 执行测试命令，{test} 替换为全限定类名
func (m *Maven) Run(ctx context.Context, unit Unit) (Result, error) {
	return m.exec(ctx, "run", m.cfg.RunCommand, unit)
}

func (m *Maven) exec(ctx context.Context, stage string, command []string, unit Unit) (Result, error) {
	args := make([]string, len(command))
	for i, a := range command {
		args[i] = strings.ReplaceAll(a, "{test}", unit.QualifiedName())
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = m.cfg.WorkDir
	cmd.Env = append(os.Environ(),
		"WEBURL="+m.cfg.WebURL,
		"USERNAME="+m.cfg.Username,
		"PASSWORD="+m.cfg.Password,
	)
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	output, err := cmd.CombinedOutput()
	res := Result{Output: truncate(output, m.cfg.MaxOutputBytes), Duration: time.Since(start)}

	switch {
	case ctx.Err() != nil:
		msg := "cancelled"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.TimedOut = true
			msg = TimedOutMessage
		}
		res.Output = strings.TrimSpace(msg + "\n" + res.Output)
	case err == nil:
		res.OK = true
	default:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, types.NewError(types.ErrToolchain, fmt.Sprintf("%s command %q could not start", stage, args[0])).
				WithCause(err)
		}
	}

	m.logger.Info("toolchain finished",
		zap.String("stage", stage),
		zap.String("class", unit.QualifiedName()),
		zap.Bool("ok", res.OK),
		zap.Bool("timed_out", res.TimedOut),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func truncate(out []byte, limit int) string {
	out = bytes.TrimSpace(out)
	if limit > 0 && len(out) > limit {
		return string(out[:limit]) + "\n... (truncated)"
	}
	return string(out)
}

// Disabled 未启用工具链时使用：所有调用返回 SERVICE_UNAVAILABLE
type Disabled struct{}

func (Disabled) Compile(context.Context, Unit) (Result, error) { return Result{}, disabledError() }
func (Disabled) Run(context.Context, Unit) (Result, error) { return Result{}, disabledError() }

func disabledError() error {
	return types.NewError(types.ErrServiceUnavailable, "toolchain is not enabled").
		WithHTTPStatus(http.StatusServiceUnavailable)
}

// New 根据配置返回工具链
func New(cfg config.ToolchainConfig, logger *zap.Logger) Toolchain {
	if !cfg.Enabled {
		return Disabled{}
	}
	return NewMaven(cfg, logger)
}
