package generator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/k11techlab/testsmith/testutil"
	"github.com/k11techlab/testsmith/testutil/fixtures"
	"github.com/k11techlab/testsmith/testutil/mocks"
	"github.com/k11techlab/testsmith/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGenerator(t *testing.T, client *mocks.MockLLM) *Generator {
	t.Helper()
	g := New(client, Config{
		DefaultPackage: "com.acme.generated",
		PromptDir:      t.TempDir(),
		Temperature:    0.7,
		MaxTokens:      2048,
	}, nil, zap.NewNop())
	g.now = func() time.Time { return time.UnixMilli(1765827236416) }
	return g
}

func TestGenerate_NormalizesModelOutput(t *testing.T) {
	client := mocks.NewSuccessLLM(fixtures.FencedReply(fixtures.WrongPackageReply()))
	g := newTestGenerator(t, client)

	a, err := g.Generate(testutil.TestContext(t), Request{
		Scenario:    "log in with valid credentials",
		BaseURL:     "https://k11softwaresolutions.com",
		PackageName: "com.acme",
		ClassName:   "LoginTest",
		RequestID:   "req-1",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a.Source, "package com.acme;\n\n"))
	assert.Contains(t, a.Source, "public class LoginTest {")
	assert.NotContains(t, a.Source, "com.wrong.place")
	assert.NotContains(t, a.Source, "```")
	assert.Equal(t, "com.acme", a.PackageName)
	assert.Equal(t, "LoginTest", a.ClassName)
	assert.Equal(t, "req-1", a.RequestID)
	assert.NotEmpty(t, a.ID)
	assert.Empty(t, a.Warnings)

	require.Equal(t, 1, client.GetCallCount())
	call := client.GetLastCall()
	assert.Contains(t, call.Prompt, "Package: com.acme")
	assert.Contains(t, call.Prompt, "Class: LoginTest")
	assert.Contains(t, call.Prompt, "https://k11softwaresolutions.com")
	assert.Contains(t, call.Prompt, "log in with valid credentials")
	assert.Equal(t, 0.7, call.Temperature)
	assert.Equal(t, 2048, call.MaxTokens)
}

func TestGenerate_Defaults(t *testing.T) {
	client := mocks.NewSuccessLLM(fixtures.ValidTestClass("Whatever"))
	g := newTestGenerator(t, client)

	a, err := g.Generate(context.Background(), Request{Scenario: "search for shoes"})
	require.NoError(t, err)

	assert.Equal(t, "com.acme.generated", a.PackageName)
	assert.Equal(t, "GeneratedTest_1765827236416Test", a.ClassName)
	assert.True(t, strings.HasSuffix(a.ClassName, "Test"))
	assert.Contains(t, a.Source, "public class GeneratedTest_1765827236416Test {")
}

func TestGenerate_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"empty scenario", Request{Scenario: "   "}},
		{"bad package", Request{Scenario: "x", PackageName: "com..acme"}},
		{"keyword class", Request{Scenario: "x", ClassName: "class"}},
		{"bad class", Request{Scenario: "x", ClassName: "Login-Test"}},
		{"prompt traversal", Request{Scenario: "x", PromptFile: "../secrets.txt"}},
		{"absolute prompt", Request{Scenario: "x", PromptFile: "/etc/passwd"}},
		{"missing prompt", Request{Scenario: "x", PromptFile: "nope.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mocks.NewMockLLM()
			g := newTestGenerator(t, client)

			_, err := g.Generate(context.Background(), tt.req)
			testutil.AssertErrorCode(t, err, types.ErrInvalidRequest)
			assert.Zero(t, client.GetCallCount())
		})
	}
}

func TestGenerate_LLMFailureIsGenerationFailed(t *testing.T) {
	tests := []struct {
		name       string
		cause      *types.Error
		wantStatus int
	}{
		{"configuration", types.NewError(types.ErrConfiguration, "no key").WithHTTPStatus(503), 503},
		{"upstream", types.NewError(types.ErrUpstreamError, "429").WithHTTPStatus(502).WithRetryable(true), 502},
		{"transport", types.NewError(types.ErrTransport, "timed out").WithHTTPStatus(504), 504},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGenerator(t, mocks.NewErrorLLM(tt.cause))

			a, err := g.Generate(context.Background(), Request{Scenario: "x"})
			assert.Nil(t, a)
			testutil.AssertErrorCode(t, err, types.ErrGenerationFailed)
			assert.True(t, types.HasCode(err, tt.cause.Code))

			e, ok := types.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, e.HTTPStatus)
		})
	}
}

func TestGenerate_NormalizationWarningsSurface(t *testing.T) {
	g := newTestGenerator(t, mocks.NewSuccessLLM("// nothing useful here"))

	a, err := g.Generate(context.Background(), Request{Scenario: "x", ClassName: "LoginTest"})
	require.NoError(t, err)
	require.NotEmpty(t, a.Warnings)
	assert.True(t, strings.HasPrefix(a.Warnings[0], string(types.ErrNormalizationAmbiguity)))
}

func TestGenerate_PromptFileAppendedAsStandards(t *testing.T) {
	client := mocks.NewSuccessLLM(fixtures.ValidTestClass("X"))
	g := newTestGenerator(t, client)
	require.NoError(t, os.MkdirAll(filepath.Join(g.cfg.PromptDir, "styles"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(g.cfg.PromptDir, "styles", "k11.txt"),
		[]byte("Use Page Object pattern."), 0o644))

	_, err := g.Generate(context.Background(), Request{Scenario: "x", PromptFile: "styles/k11.txt"})
	require.NoError(t, err)

	prompt := client.GetLastCall().Prompt
	assert.Contains(t, prompt, "Coding standards:\nUse Page Object pattern.")
}

func TestGenerate_ConcurrentCallsAreIndependent(t *testing.T) {
	g := newTestGenerator(t, mocks.NewSuccessLLM(fixtures.ValidTestClass("Any")))

	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func(i int) {
			a, err := g.Generate(context.Background(), Request{Scenario: "x", ClassName: "Test" + string(rune('A'+i))})
			if err == nil && a.ClassName != "Test"+string(rune('A'+i)) {
				err = assert.AnError
			}
			errs <- err
		}(i)
	}
	for i := 0; i < 10; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestDefaultClassName(t *testing.T) {
	assert.Equal(t, "GeneratedTest_0Test", DefaultClassName(time.UnixMilli(0)))
}

func TestArtifact_QualifiedName(t *testing.T) {
	a := &Artifact{PackageName: "com.acme", ClassName: "LoginTest"}
	assert.Equal(t, "com.acme.LoginTest", a.QualifiedName())
}
