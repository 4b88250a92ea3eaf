package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/k11techlab/testsmith/api"
	"github.com/k11techlab/testsmith/llm"
	"github.com/k11techlab/testsmith/store"
	"github.com/k11techlab/testsmith/types"
	"github.com/k11techlab/testsmith/workflow"
	"go.uber.org/zap"
)

// =============================================================================
// 🔀 工作流 Handler
// =============================================================================

// 单次工作流写入上下文的角色
const (
	roleUser      = "user"
	roleAssistant = "assistant"
)

// WorkflowHandler 单次工作流与工作流回放处理器
type WorkflowHandler struct {
	client      llm.Client
	store       *store.Store
	runs        *workflow.Orchestrator
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

// NewWorkflowHandler 创建工作流处理器。runs 为空时回放路由返回 503。
func NewWorkflowHandler(client llm.Client, st *store.Store, runs *workflow.Orchestrator, temperature float64, maxTokens int, logger *zap.Logger) *WorkflowHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowHandler{
		client:      client,
		store:       st,
		runs:        runs,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger.With(zap.String("handler", "workflow")),
	}
}

// HandleExecute 处理单次工作流：调用 LLM 并把提示词与结果保存在 wf-<uuid> 下
// @Summary 单次工作流
// @Tags 工作流
// @Accept json
// @Produce json
// @Param request body api.WorkflowRequest true "工作流请求"
// @Success 200 {object} Response{data=api.WorkflowResponse} "执行结果"
// @Failure 400 {object} Response "无效请求"
// @Failure 502 {object} Response "上游错误"
// @Failure 503 {object} Response "LLM 未配置"
// @Security ApiKeyAuth
// @Router /api/v1/workflow [post]
func (h *WorkflowHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodPost) {
		return
	}
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.WorkflowRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "prompt is required"), h.logger)
		return
	}

	result, err := h.client.Complete(r.Context(), req.Prompt, h.temperature, h.maxTokens)
	if err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}

	key := "wf-" + uuid.NewString()
	ctx := types.WithCorrelationKey(r.Context(), key)
	if _, err := h.store.Append(ctx, key, roleUser, req.Prompt); err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}
	if _, err := h.store.Append(ctx, key, roleAssistant, result); err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}

	h.logger.Info("workflow executed", zap.String("correlation_key", key))
	WriteSuccess(w, api.WorkflowResponse{Workflow: "executed", Key: key, Result: result})
}

// HandleGet 回放关联键下的工作流运行
// @Summary 查询工作流运行
// @Tags 工作流
// @Produce json
// @Param key path string true "关联键"
// @Success 200 {object} Response{data=workflow.Run} "运行状态"
// @Failure 404 {object} Response "不存在"
// @Security ApiKeyAuth
// @Router /api/v1/workflow/{key} [get]
func (h *WorkflowHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodGet) {
		return
	}
	key := extractWorkflowKey(r)
	if key == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "workflow key is required"), h.logger)
		return
	}
	if h.runs == nil {
		WriteError(w, types.NewError(types.ErrServiceUnavailable, "workflow orchestration is not configured"), h.logger)
		return
	}

	run, err := h.runs.Get(r.Context(), key)
	if err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}
	WriteSuccess(w, run)
}

// extractWorkflowKey 从请求中提取关联键（Go 1.22+ PathValue 优先，回退到路径解析）
func extractWorkflowKey(r *http.Request) string {
	if key := r.PathValue("key"); key != "" {
		return key
	}
	const prefix = "/api/v1/workflow/"
	if rest, ok := strings.CutPrefix(r.URL.Path, prefix); ok {
		return strings.Trim(rest, "/")
	}
	return ""
}
