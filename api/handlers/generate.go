package handlers

import (
	"net/http"

	"github.com/k11techlab/testsmith/api"
	"github.com/k11techlab/testsmith/generator"
	"github.com/k11techlab/testsmith/workflow"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 测试生成 Handler
// =============================================================================

// GenerateHandler 测试生成与生成并执行处理器
type GenerateHandler struct {
	gen    *generator.Generator
	runs   *workflow.Orchestrator
	logger *zap.Logger
}

// NewGenerateHandler 创建生成处理器
func NewGenerateHandler(gen *generator.Generator, runs *workflow.Orchestrator, logger *zap.Logger) *GenerateHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerateHandler{
		gen:    gen,
		runs:   runs,
		logger: logger.With(zap.String("handler", "generate")),
	}
}

// HandleGenerateTest 生成 Playwright/TestNG 测试类，不编译、不写盘
// @Summary 生成测试
// @Tags 生成
// @Accept json
// @Produce json
// @Param request body api.GenerateTestRequest true "生成请求"
// @Success 200 {object} Response{data=generator.Artifact} "生成产物"
// @Failure 400 {object} Response "无效请求"
// @Failure 502 {object} Response "生成失败"
// @Failure 503 {object} Response "LLM 未配置"
// @Security ApiKeyAuth
// @Router /api/v1/generate-test [post]
func (h *GenerateHandler) HandleGenerateTest(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodPost) {
		return
	}
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.GenerateTestRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.RequestID == "" {
		req.RequestID = w.Header().Get("X-Request-ID")
	}

	artifact, err := h.gen.Generate(r.Context(), req)
	if err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}
	WriteSuccess(w, artifact)
}

// HandleGenerateAndRun 生成、编译、修复并执行测试。修复次数耗尽时返回 422，
// 响应 data 中携带完整的尝试历史。
// @Summary 生成并执行
// @Tags 生成
// @Accept json
// @Produce json
// @Param request body api.GenerateAndRunRequest true "生成并执行请求"
// @Success 200 {object} Response{data=api.GenerateAndRunResponse} "工作流结果"
// @Failure 400 {object} Response "无效请求"
// @Failure 422 {object} Response{data=api.GenerateAndRunResponse} "修复次数耗尽"
// @Failure 503 {object} Response "工具链未启用"
// @Security ApiKeyAuth
// @Router /api/v1/generate-and-run [post]
func (h *GenerateHandler) HandleGenerateAndRun(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodPost) {
		return
	}
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.GenerateAndRunRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.RequestID == "" {
		req.RequestID = w.Header().Get("X-Request-ID")
	}

	run, err := h.runs.Execute(r.Context(), workflow.Request{
		CorrelationKey: req.CorrelationKey,
		Generation:     req.Request,
		MaxAttempts:    req.MaxAttempts,
	})
	if err != nil {
		if run != nil {
			WriteAnyErrorWithData(w, err, run, h.logger)
			return
		}
		WriteAnyError(w, err, h.logger)
		return
	}
	WriteSuccess(w, run)
}

// =============================================================================
// 📄 页面对象 Handler
// =============================================================================

// PageObjectHandler 页面对象生成处理器（确定性渲染，不调用 LLM）
type PageObjectHandler struct {
	gen    *generator.Generator
	logger *zap.Logger
}

// NewPageObjectHandler 创建页面对象处理器
func NewPageObjectHandler(gen *generator.Generator, logger *zap.Logger) *PageObjectHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageObjectHandler{
		gen:    gen,
		logger: logger.With(zap.String("handler", "page_object")),
	}
}

// HandleGeneratePageObject 根据字段描述渲染 Playwright 页面对象
// @Summary 生成页面对象
// @Tags 生成
// @Accept json
// @Produce json
// @Param request body generator.PageObjectRequest true "页面对象描述"
// @Success 200 {object} Response{data=api.PageObjectResponse} "页面对象源码"
// @Failure 400 {object} Response "无效请求"
// @Security ApiKeyAuth
// @Router /api/v1/generate-page-object [post]
func (h *PageObjectHandler) HandleGeneratePageObject(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodPost) {
		return
	}
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req generator.PageObjectRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	objects, err := h.gen.RenderPageObjects(req)
	if err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}
	WriteSuccess(w, api.PageObjectResponse{PageObjects: objects, Count: len(objects)})
}
