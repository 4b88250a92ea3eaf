package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/k11techlab/testsmith/api"
	"github.com/k11techlab/testsmith/generator"
	"github.com/k11techlab/testsmith/internal/toolchain"
	"github.com/k11techlab/testsmith/repair"
	"github.com/k11techlab/testsmith/store"
	"github.com/k11techlab/testsmith/testutil/fixtures"
	"github.com/k11techlab/testsmith/testutil/mocks"
	"github.com/k11techlab/testsmith/types"
	"github.com/k11techlab/testsmith/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 GenerateHandler / PageObjectHandler 测试
// =============================================================================

type generateEnv struct {
	gen    *generator.Generator
	engine *repair.Engine
	store  *store.Store
	runs   *workflow.Orchestrator
}

func newGenerateEnv(t *testing.T, client *mocks.MockLLM, tools toolchain.Toolchain, cfg workflow.Config) *generateEnv {
	t.Helper()
	st := store.New(store.NewMemoryBackend(), nil, zap.NewNop())
	gen := generator.New(client, generator.Config{DefaultPackage: "com.acme", PromptDir: t.TempDir()}, nil, zap.NewNop())
	engine := repair.New(client, repair.Config{MaxAttempts: cfg.MaxAttempts, Temperature: 0.2}, nil, zap.NewNop()).
		WithTokenCounter(types.NewEstimateTokenizer())
	return &generateEnv{
		gen:    gen,
		engine: engine,
		store:  st,
		runs:   workflow.New(gen, engine, tools, st, cfg, nil, zap.NewNop()),
	}
}

func validReply(class string) string {
	return fixtures.FencedReply(fixtures.ValidTestClass(class))
}

func loginGeneration() generator.Request {
	return generator.Request{
		Scenario:  "user logs in with valid credentials",
		ClassName: "LoginTest",
	}
}

func TestGenerateHandler_HandleGenerateTest(t *testing.T) {
	client := mocks.NewSuccessLLM(validReply("LoginTest"))
	env := newGenerateEnv(t, client, toolchain.Disabled{}, workflow.Config{})
	h := NewGenerateHandler(env.gen, env.runs, zap.NewNop())

	r := jsonRequest(t, http.MethodPost, "/api/v1/generate-test", loginGeneration())
	w := httptest.NewRecorder()
	w.Header().Set("X-Request-ID", "req-42")
	h.HandleGenerateTest(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var artifact generator.Artifact
	resp := decodeResponse(t, w, &artifact)
	assert.Equal(t, "req-42", resp.RequestID)
	assert.Equal(t, "com.acme", artifact.PackageName)
	assert.Equal(t, "LoginTest", artifact.ClassName)
	assert.Equal(t, "req-42", artifact.RequestID)
	assert.Contains(t, artifact.Source, "package com.acme;")
	assert.NotContains(t, artifact.Source, "```")
	assert.Contains(t, client.GetLastCall().Prompt, "user logs in with valid credentials")
}

func TestGenerateHandler_HandleGenerateTest_Errors(t *testing.T) {
	tests := []struct {
		name       string
		client     *mocks.MockLLM
		body       any
		wantStatus int
		wantCode   types.ErrorCode
	}{
		{
			name:       "missing scenario",
			client:     mocks.NewMockLLM(),
			body:       generator.Request{ClassName: "LoginTest"},
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrInvalidRequest,
		},
		{
			name:       "invalid class name",
			client:     mocks.NewMockLLM(),
			body:       generator.Request{Scenario: "s", ClassName: "1abc"},
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrInvalidRequest,
		},
		{
			name:       "prompt file escapes directory",
			client:     mocks.NewMockLLM(),
			body:       generator.Request{Scenario: "s", PromptFile: "../../etc/passwd"},
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrInvalidRequest,
		},
		{
			name:       "unknown field",
			client:     mocks.NewMockLLM(),
			body:       `{"scenario":"s","surprise":true}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrInvalidRequest,
		},
		{
			name:       "llm not configured",
			client:     mocks.NewErrorLLM(types.NewError(types.ErrConfiguration, "OPENAI_API_KEY is not set")),
			body:       loginGeneration(),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   types.ErrGenerationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newGenerateEnv(t, tt.client, toolchain.Disabled{}, workflow.Config{})
			h := NewGenerateHandler(env.gen, env.runs, zap.NewNop())

			w := httptest.NewRecorder()
			h.HandleGenerateTest(w, jsonRequest(t, http.MethodPost, "/api/v1/generate-test", tt.body))

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			resp := decodeResponse(t, w, nil)
			require.NotNil(t, resp.Error)
			assert.Equal(t, string(tt.wantCode), resp.Error.Code)
		})
	}
}

func TestGenerateHandler_HandleGenerateAndRun(t *testing.T) {
	client := mocks.NewScriptedLLM(validReply("LoginTest"), validReply("LoginTest"))
	tools := mocks.NewMockToolchain().WithCompileResults(
		mocks.CompileFailure(fixtures.CompilerErrors("LoginTest")),
		mocks.CompileSuccess(),
	)
	env := newGenerateEnv(t, client, tools, workflow.Config{MaxAttempts: 3, Execute: true})
	h := NewGenerateHandler(env.gen, env.runs, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleGenerateAndRun(w, jsonRequest(t, http.MethodPost, "/api/v1/generate-and-run", api.GenerateAndRunRequest{
		Request:        loginGeneration(),
		CorrelationKey: "wf-login",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var run workflow.Run
	decodeResponse(t, w, &run)
	assert.Equal(t, "wf-login", run.CorrelationKey)
	assert.Equal(t, workflow.PhasePassed, run.Phase)
	assert.Equal(t, 1, run.Repairs)
	require.Len(t, run.Attempts, 1)
	assert.Contains(t, run.Attempts[0].Diagnostics, "';' expected")
	assert.Equal(t, 1, tools.CountStage("run"))
	assert.Equal(t, 2, client.GetCallCount())
}

func TestGenerateHandler_HandleGenerateAndRun_Exhausted(t *testing.T) {
	client := mocks.NewSuccessLLM(validReply("LoginTest"))
	tools := mocks.NewMockToolchain().WithDefaultCompile(mocks.CompileFailure(fixtures.CompilerErrors("LoginTest")))
	env := newGenerateEnv(t, client, tools, workflow.Config{MaxAttempts: 3, Execute: true})
	h := NewGenerateHandler(env.gen, env.runs, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleGenerateAndRun(w, jsonRequest(t, http.MethodPost, "/api/v1/generate-and-run", api.GenerateAndRunRequest{
		Request:     loginGeneration(),
		MaxAttempts: 1,
	}))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	var run workflow.Run
	resp := decodeResponse(t, w, &run)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(types.ErrRepairExhausted), resp.Error.Code)
	assert.Equal(t, workflow.PhaseExhausted, run.Phase)
	assert.Len(t, run.Attempts, 1)
	assert.Zero(t, tools.CountStage("run"))
}

func TestGenerateHandler_HandleGenerateAndRun_ToolchainDisabled(t *testing.T) {
	client := mocks.NewSuccessLLM(validReply("LoginTest"))
	env := newGenerateEnv(t, client, toolchain.Disabled{}, workflow.Config{MaxAttempts: 3})
	h := NewGenerateHandler(env.gen, env.runs, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleGenerateAndRun(w, jsonRequest(t, http.MethodPost, "/api/v1/generate-and-run", api.GenerateAndRunRequest{
		Request: loginGeneration(),
	}))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Zero(t, client.GetCallCount(), "nothing is generated without a toolchain")
}

func TestPageObjectHandler_HandleGeneratePageObject(t *testing.T) {
	env := newGenerateEnv(t, mocks.NewMockLLM(), toolchain.Disabled{}, workflow.Config{})
	h := NewPageObjectHandler(env.gen, zap.NewNop())

	body := `{"className":"LoginPage","package":"com.acme.pages","fields":{
		"enterUsername":{"id":"username","method":"fill"},
		"submit":{"text":"Sign in","method":"click"}}}`
	w := httptest.NewRecorder()
	h.HandleGeneratePageObject(w, jsonRequest(t, http.MethodPost, "/api/v1/generate-page-object", body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data api.PageObjectResponse
	decodeResponse(t, w, &data)
	require.Equal(t, 1, data.Count)
	po := data.PageObjects[0]
	assert.Equal(t, "LoginPage", po.ClassName)
	assert.Contains(t, po.Source, "package com.acme.pages;")
	assert.Contains(t, po.Source, "public void enterUsername(String value)")
	assert.Contains(t, po.Source, "public void submit()")
}

func TestPageObjectHandler_Errors(t *testing.T) {
	env := newGenerateEnv(t, mocks.NewMockLLM(), toolchain.Disabled{}, workflow.Config{})
	h := NewPageObjectHandler(env.gen, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleGeneratePageObject(w, jsonRequest(t, http.MethodPost, "/api/v1/generate-page-object", `{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.HandleGeneratePageObject(w, jsonRequest(t, http.MethodPost, "/api/v1/generate-page-object",
		`{"className":"bad name","fields":{"a":{"id":"x","method":"click"}}}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
