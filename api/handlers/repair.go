package handlers

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/k11techlab/testsmith/api"
	"github.com/k11techlab/testsmith/codegen"
	"github.com/k11techlab/testsmith/generator"
	"github.com/k11techlab/testsmith/internal/fileutil"
	"github.com/k11techlab/testsmith/repair"
	"github.com/k11techlab/testsmith/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🔧 定向修复 Handler
// =============================================================================

// RepairHandler 定向代码修复处理器
type RepairHandler struct {
	engine         *repair.Engine
	writeRoot      string
	defaultPackage string
	logger         *zap.Logger
}

// NewRepairHandler 创建修复处理器。writeRoot 为 write_path 的根目录（测试源码根目录），
// 为空时拒绝写盘请求；write_path 只能指向其中的 .java 文件。
func NewRepairHandler(engine *repair.Engine, writeRoot, defaultPackage string, logger *zap.Logger) *RepairHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RepairHandler{
		engine:         engine,
		writeRoot:      writeRoot,
		defaultPackage: defaultPackage,
		logger:         logger.With(zap.String("handler", "repair")),
	}
}

// HandleCorrectCode 处理定向修复。请求体为 JSON（api.CorrectCodeRequest）
// 或纯文本源码。带编译输出或场景时使用完整修复提示词。
// @Summary 定向修复
// @Tags 修复
// @Accept json
// @Accept plain
// @Produce json
// @Param request body api.CorrectCodeRequest true "修复请求"
// @Success 200 {object} Response{data=api.CorrectCodeResponse} "修复结果"
// @Failure 400 {object} Response "无效请求"
// @Failure 502 {object} Response "修复失败"
// @Security ApiKeyAuth
// @Router /api/v1/correct-code [post]
func (h *RepairHandler) HandleCorrectCode(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodPost) {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "code is required"), h.logger)
		return
	}

	declaredPkg, declaredClass := codegen.Declared(req.Code)
	pkg := firstNonBlank(req.PackageName, declaredPkg, h.defaultPackage)
	class := firstNonBlank(req.ClassName, declaredClass)
	if class == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest,
			"class_name is required when the code declares no public type"), h.logger)
		return
	}

	var dest string
	if req.WritePath != "" {
		var apiErr *types.Error
		if dest, apiErr = h.destination(req.WritePath); apiErr != nil {
			WriteError(w, apiErr, h.logger)
			return
		}
	}

	requestID := w.Header().Get("X-Request-ID")
	var (
		artifact *generator.Artifact
		err      error
	)
	if strings.TrimSpace(req.CompilerOutput) != "" || strings.TrimSpace(req.Scenario) != "" {
		artifact, err = h.engine.Repair(r.Context(), repair.Request{
			Artifact: &generator.Artifact{
				Source:      req.Code,
				PackageName: pkg,
				ClassName:   class,
				RequestID:   requestID,
			},
			CompilerOutput: req.CompilerOutput,
			Scenario:       req.Scenario,
		})
	} else {
		artifact, err = h.engine.Correct(r.Context(), req.Code, pkg, class, requestID)
	}
	if err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}

	resp := api.CorrectCodeResponse{
		CorrectedCode: artifact.Source,
		PackageName:   artifact.PackageName,
		ClassName:     artifact.ClassName,
		Warnings:      artifact.Warnings,
	}
	if dest != "" {
		if err := repair.WriteFixedCode(dest, artifact.Source); err != nil {
			WriteAnyErrorWithData(w, err, resp, h.logger)
			return
		}
		resp.WrittenTo = req.WritePath
	}
	WriteSuccess(w, resp)
}

func (h *RepairHandler) decode(w http.ResponseWriter, r *http.Request) (api.CorrectCodeRequest, bool) {
	var req api.CorrectCodeRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
			return req, false
		}
		return req, true
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "failed to read request body").WithCause(err), h.logger)
		return req, false
	}
	req.Code = string(body)
	return req, true
}

func (h *RepairHandler) destination(rel string) (string, *types.Error) {
	if h.writeRoot == "" {
		return "", types.NewError(types.ErrServiceUnavailable, "writing corrected code is not enabled")
	}
	if filepath.Ext(rel) != ".java" {
		return "", types.NewError(types.ErrInvalidRequest, "write_path must name a .java file")
	}
	dest, err := fileutil.Within(h.writeRoot, rel)
	if err != nil {
		return "", types.NewError(types.ErrInvalidRequest, "write_path must stay inside the test source root").WithCause(err)
	}
	return dest, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
