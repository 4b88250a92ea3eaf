package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/k11techlab/testsmith/api/handlers"
	"github.com/k11techlab/testsmith/config"
	"github.com/k11techlab/testsmith/generator"
	"github.com/k11techlab/testsmith/internal/metrics"
	"github.com/k11techlab/testsmith/internal/server"
	"github.com/k11techlab/testsmith/internal/telemetry"
	"github.com/k11techlab/testsmith/internal/toolchain"
	"github.com/k11techlab/testsmith/llm"
	"github.com/k11techlab/testsmith/repair"
	"github.com/k11techlab/testsmith/store"
	"github.com/k11techlab/testsmith/workflow"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 testsmith 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	otel   *telemetry.Providers

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// 核心组件
	store        *store.Store
	llmClient    llm.Client
	configured   bool
	generator    *generator.Generator
	repair       *repair.Engine
	orchestrator *workflow.Orchestrator

	// Handlers
	healthHandler     *handlers.HealthHandler
	completionHandler *handlers.CompletionHandler
	contextHandler    *handlers.ContextHandler
	workflowHandler   *handlers.WorkflowHandler
	generateHandler   *handlers.GenerateHandler
	pageObjectHandler *handlers.PageObjectHandler
	repairHandler     *handlers.RepairHandler

	// 指标收集器
	metricsCollector *metrics.Collector

	// 限流器清理 goroutine 的生命周期
	rateLimiterCancel context.CancelFunc
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, otel *telemetry.Providers) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		otel:   otel,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start(ctx context.Context) error {
	// 1. 初始化指标收集器
	s.metricsCollector = metrics.NewCollector("testsmith", s.logger)

	// 2. 打开上下文存储（失败时按配置回退到内存）
	if err := s.initStore(ctx); err != nil {
		return fmt.Errorf("failed to init context store: %w", err)
	}

	// 3. 初始化生成、修复与编排组件
	s.initServices()

	// 4. 初始化 Handlers
	s.initHandlers()

	// 5. 启动 HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 6. 启动 Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("context_store", s.store.Backend()),
		zap.Bool("llm_configured", s.configured),
		zap.Bool("toolchain_enabled", s.orchestrator.Available()),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initStore 打开上下文存储后端
func (s *Server) initStore(ctx context.Context) error {
	backend, err := store.OpenBackend(ctx, s.cfg.ContextStore, s.logger)
	if err != nil {
		return err
	}
	s.store = store.New(backend, s.metricsCollector, s.logger)
	return nil
}

// initServices 初始化 LLM 客户端、生成器、修复引擎与编排器。
// 未配置凭据时仍然创建客户端：相关路由返回 CONFIGURATION_ERROR。
func (s *Server) initServices() {
	llmCfg := llm.ConfigFromSettings(s.cfg.LLM, s.logger)
	openai := llm.NewOpenAIClient(llmCfg, s.logger)
	s.configured = openai.Configured()
	if !s.configured {
		s.logger.Warn("LLM API key not configured, LLM-backed routes answer CONFIGURATION_ERROR")
	}
	s.llmClient = llm.Instrument(openai, openai.Model(), s.metricsCollector)

	s.generator = generator.New(s.llmClient, generator.ConfigFromSettings(s.cfg.Generation), s.metricsCollector, s.logger)
	s.repair = repair.New(s.llmClient, repair.ConfigFromSettings(s.cfg.Repair), s.metricsCollector, s.logger)

	tools := toolchain.New(s.cfg.Toolchain, s.logger)
	s.orchestrator = workflow.New(
		s.generator,
		s.repair,
		tools,
		s.store,
		workflow.ConfigFromSettings(s.cfg.Workflow, s.cfg.Repair),
		s.metricsCollector,
		s.logger,
	)

	s.logger.Info("Services initialized",
		zap.String("model", openai.Model()),
		zap.Int("max_repair_attempts", s.repair.MaxAttempts()))
}

// initHandlers 初始化所有 handlers
func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.healthHandler.RegisterCheck(handlers.NewFuncCheck("context_store", s.store.Ping))
	s.healthHandler.RegisterCheck(handlers.NewFuncCheck("llm", func(context.Context) error {
		if !s.configured {
			return errors.New("LLM API key is not configured")
		}
		return nil
	}))

	llmCfg := s.cfg.LLM
	s.completionHandler = handlers.NewCompletionHandler(s.llmClient, llmCfg.Temperature, llmCfg.MaxTokens, s.logger)
	s.contextHandler = handlers.NewContextHandler(s.store, s.logger)
	s.workflowHandler = handlers.NewWorkflowHandler(s.llmClient, s.store, s.orchestrator, llmCfg.Temperature, llmCfg.MaxTokens, s.logger)
	s.generateHandler = handlers.NewGenerateHandler(s.generator, s.orchestrator, s.logger)
	s.pageObjectHandler = handlers.NewPageObjectHandler(s.generator, s.logger)

	writeRoot := ""
	if s.cfg.Toolchain.Enabled {
		writeRoot = filepath.Join(s.cfg.Toolchain.WorkDir, s.cfg.Toolchain.SourceRoot)
	}
	s.repairHandler = handlers.NewRepairHandler(s.repair, writeRoot, s.cfg.Generation.DefaultPackage, s.logger)

	s.logger.Info("Handlers initialized")
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// routes 注册全部路由
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// 健康检查端点
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// API 路由
	mux.HandleFunc("/api/v1/completion", s.completionHandler.HandleCompletion)
	mux.HandleFunc("/api/v1/context", s.contextHandler.HandleContext)
	mux.HandleFunc("/api/v1/context/list", s.contextHandler.HandleList)
	mux.HandleFunc("/api/v1/workflow", s.workflowHandler.HandleExecute)
	mux.HandleFunc("/api/v1/workflow/{key}", s.workflowHandler.HandleGet)
	mux.HandleFunc("/api/v1/correct-code", s.repairHandler.HandleCorrectCode)
	mux.HandleFunc("/api/v1/generate-test", s.generateHandler.HandleGenerateTest)
	mux.HandleFunc("/api/v1/generate-and-run", s.generateHandler.HandleGenerateAndRun)
	mux.HandleFunc("/api/v1/generate-page-object", s.pageObjectHandler.HandleGeneratePageObject)

	return mux
}

// handler 构建带中间件链的根处理器
func (s *Server) handler(rateLimiterCtx context.Context) http.Handler {
	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/readyz", "/version", "/metrics"}

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
		OTelTracing(),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(rateLimiterCtx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger),
	}
	if len(s.cfg.Server.APIKeys) > 0 {
		middlewares = append(middlewares,
			APIKeyAuth(s.cfg.Server.APIKeys, skipAuthPaths, s.cfg.Server.AllowQueryAPIKey, s.logger))
	}
	if s.cfg.Server.JWT.Secret != "" {
		middlewares = append(middlewares, JWTAuth(s.cfg.Server.JWT, skipAuthPaths, s.logger))
	}
	return Chain(s.routes(), middlewares...)
}

// startHTTPServer 启动 HTTP 服务器
func (s *Server) startHTTPServer() error {
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(s.handler(rateLimiterCtx), serverConfig, s.logger)

	// 关闭钩子按注册的逆序执行：先停限流器，再关存储，最后刷新遥测
	s.httpManager.OnShutdown("telemetry", func(ctx context.Context) error {
		if s.otel == nil {
			return nil
		}
		return s.otel.Shutdown(ctx)
	})
	s.httpManager.OnShutdown("context_store", func(context.Context) error {
		return s.store.Close()
	})
	s.httpManager.OnShutdown("rate_limiter", func(context.Context) error {
		s.rateLimiterCancel()
		return nil
	})

	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer 启动 Metrics 服务器
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号，关闭 HTTP 服务器（含关闭钩子）后关闭 Metrics 服务器
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown(context.Background())
	}

	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(context.Background()); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}
