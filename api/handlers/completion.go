package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/k11techlab/testsmith/api"
	"github.com/k11techlab/testsmith/llm"
	"github.com/k11techlab/testsmith/types"
	"go.uber.org/zap"
)

// =============================================================================
// 💬 单次补全 Handler
// =============================================================================

// CompletionHandler 单次补全处理器：提示词原样发送，结果原样返回
type CompletionHandler struct {
	client      llm.Client
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

// NewCompletionHandler 创建补全处理器。temperature/maxTokens 为请求未指定时的默认值。
func NewCompletionHandler(client llm.Client, temperature float64, maxTokens int, logger *zap.Logger) *CompletionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionHandler{
		client:      client,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger.With(zap.String("handler", "completion")),
	}
}

// HandleCompletion 处理单次补全请求
// @Summary 单次补全
// @Description 将提示词发送给 LLM 并返回回复
// @Tags 补全
// @Accept json
// @Produce json
// @Param request body api.CompletionRequest true "补全请求"
// @Success 200 {object} Response{data=api.CompletionResponse} "补全结果"
// @Failure 400 {object} Response "无效请求"
// @Failure 502 {object} Response "上游错误"
// @Failure 503 {object} Response "LLM 未配置"
// @Failure 504 {object} Response "传输超时"
// @Security ApiKeyAuth
// @Router /api/v1/completion [post]
func (h *CompletionHandler) HandleCompletion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodPost) {
		return
	}
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.CompletionRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "prompt is required"), h.logger)
		return
	}

	temperature := h.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := h.maxTokens
	if req.MaxTokens != 0 {
		maxTokens = req.MaxTokens
	}

	start := time.Now()
	result, err := h.client.Complete(r.Context(), req.Prompt, temperature, maxTokens)
	if err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}

	h.logger.Info("completion served",
		zap.Int("prompt_chars", len(req.Prompt)),
		zap.Int("result_chars", len(result)),
		zap.Duration("duration", time.Since(start)),
	)
	WriteSuccess(w, api.CompletionResponse{Result: result})
}
