package handlers

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/k11techlab/testsmith/api"
	"github.com/k11techlab/testsmith/store"
	"github.com/k11techlab/testsmith/types"
	"github.com/k11techlab/testsmith/workflow"
	"go.uber.org/zap"
)

// =============================================================================
// 🗂️ 上下文存储 Handler
// =============================================================================

// defaultContextRole POST 未指定角色时使用的角色
const defaultContextRole = "user"

// ContextHandler 上下文存储处理器
type ContextHandler struct {
	store  *store.Store
	logger *zap.Logger
}

// NewContextHandler 创建上下文处理器
func NewContextHandler(st *store.Store, logger *zap.Logger) *ContextHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextHandler{
		store:  st,
		logger: logger.With(zap.String("handler", "context")),
	}
}

// HandleContext 处理 /api/v1/context：GET 查询、POST 追加
// @Summary 上下文读写
// @Description GET ?key= 返回最新值与完整历史；POST 追加一条记录（JSON 或表单）
// @Tags 上下文
// @Accept json
// @Produce json
// @Param key query string false "上下文键（GET）"
// @Param history query bool false "是否返回完整历史（GET，默认 true）"
// @Param request body api.ContextPutRequest false "追加请求（POST）"
// @Success 200 {object} Response{data=api.ContextResponse} "上下文"
// @Failure 400 {object} Response "缺少键或值"
// @Failure 404 {object} Response "键不存在"
// @Failure 405 {object} Response "方法不允许"
// @Security ApiKeyAuth
// @Router /api/v1/context [get]
// @Router /api/v1/context [post]
func (h *ContextHandler) HandleContext(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodGet, http.MethodPost) {
		return
	}
	if r.Method == http.MethodGet {
		h.get(w, r)
		return
	}
	h.put(w, r)
}

func (h *ContextHandler) get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := strings.TrimSpace(q.Get("key"))
	if key == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "query parameter key is required"), h.logger)
		return
	}

	history, err := h.store.History(r.Context(), key)
	if err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}

	last, _ := history.Last()
	resp := api.ContextResponse{Key: key, Value: last.Content, Seq: last.Seq}
	if q.Get("history") != "false" {
		resp.Entries = history.Entries
	}
	WriteSuccess(w, resp)
}

func (h *ContextHandler) put(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodePut(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "key is required"), h.logger)
		return
	}
	if req.Value == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "value is required"), h.logger)
		return
	}
	if strings.TrimSpace(req.Role) == "" {
		req.Role = defaultContextRole
	}
	if strings.EqualFold(strings.TrimSpace(req.Role), workflow.RoleWorkflow) {
		WriteError(w, types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("role %q is reserved for workflow records", workflow.RoleWorkflow)), h.logger)
		return
	}

	entry, err := h.store.Append(r.Context(), req.Key, req.Role, req.Value)
	if err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}
	WriteSuccess(w, entry)
}

// decodePut 接受 JSON 或 application/x-www-form-urlencoded 请求体
func (h *ContextHandler) decodePut(w http.ResponseWriter, r *http.Request) (api.ContextPutRequest, bool) {
	var req api.ContextPutRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			WriteError(w, types.NewError(types.ErrInvalidRequest, "invalid form body").WithCause(err), h.logger)
			return req, false
		}
		req.Key = r.PostForm.Get("key")
		req.Value = r.PostForm.Get("value")
		req.Role = r.PostForm.Get("role")
		return req, true
	}

	if !ValidateContentType(w, r, h.logger) {
		return req, false
	}
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return req, false
	}
	return req, true
}

// HandleList 处理 /api/v1/context/list
// @Summary 上下文键列表
// @Description 按前缀与角色过滤列出键摘要
// @Tags 上下文
// @Produce json
// @Param prefix query string false "键前缀"
// @Param role query string false "仅包含该角色记录的键"
// @Param limit query int false "最大返回数量"
// @Success 200 {object} Response{data=api.ContextListResponse} "键列表"
// @Failure 400 {object} Response "参数无效"
// @Security ApiKeyAuth
// @Router /api/v1/context/list [get]
func (h *ContextHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	filter := store.Filter{Prefix: q.Get("prefix"), Role: q.Get("role")}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			WriteError(w, types.NewError(types.ErrInvalidRequest, "limit must be a non-negative integer"), h.logger)
			return
		}
		filter.Limit = limit
	}

	keys, err := h.store.List(r.Context(), filter)
	if err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}
	if keys == nil {
		keys = []store.Summary{}
	}
	WriteSuccess(w, api.ContextListResponse{Keys: keys, Count: len(keys)})
}
