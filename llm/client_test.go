package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/k11techlab/testsmith/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type providerStub struct {
	calls  atomic.Int32
	server *httptest.Server
}

func newProviderStub(t *testing.T, handler http.HandlerFunc) *providerStub {
	t.Helper()
	s := &providerStub{}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(s.server.Close)
	return s
}

func (s *providerStub) client(apiKey string) *OpenAIClient {
	return NewOpenAIClient(Config{
		APIKey:  apiKey,
		BaseURL: s.server.URL,
		Model:   "gpt-test",
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
}

// ---------------------------------------------------------------------------
// Complete
// ---------------------------------------------------------------------------

func TestComplete_SendsExpectedRequest(t *testing.T) {
	var got chatRequest
	stub := newProviderStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(w, "public class A {}")
	})

	out, err := stub.client("sk-test").Complete(context.Background(), "write a test", 0.3, 512)
	require.NoError(t, err)
	assert.Equal(t, "public class A {}", out)

	assert.Equal(t, "gpt-test", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "write a test", got.Messages[0].Content)
	assert.InDelta(t, 0.3, got.Temperature, 1e-9)
	assert.Equal(t, 512, got.MaxTokens)
}

func TestComplete_StripsOnlyTrailingControlCharacters(t *testing.T) {
	stub := newProviderStub(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "\n  class A {\n}\n\r\n\x00")
	})

	out, err := stub.client("k").Complete(context.Background(), "p", 0.7, 10)
	require.NoError(t, err)
	assert.Equal(t, "\n  class A {\n}", out)
}

func TestComplete_InvalidParameters(t *testing.T) {
	stub := newProviderStub(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "x")
	})
	c := stub.client("k")

	tests := []struct {
		name        string
		temperature float64
		maxTokens   int
	}{
		{"negative temperature", -0.1, 10},
		{"temperature above two", 2.01, 10},
		{"zero max tokens", 0.5, 0},
		{"negative max tokens", 0.5, -4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Complete(context.Background(), "p", tt.temperature, tt.maxTokens)
			require.Error(t, err)
			assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
		})
	}
	assert.Zero(t, stub.calls.Load())
}

func TestComplete_BoundaryParametersAccepted(t *testing.T) {
	stub := newProviderStub(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "ok")
	})
	c := stub.client("k")

	_, err := c.Complete(context.Background(), "p", 0, 1)
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "p", 2, 1)
	require.NoError(t, err)
}

func TestComplete_MissingCredentialMakesNoNetworkCall(t *testing.T) {
	stub := newProviderStub(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "x")
	})

	_, err := stub.client("").Complete(context.Background(), "p", 0.7, 10)
	require.Error(t, err)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))
	assert.Zero(t, stub.calls.Load())
}

func TestComplete_UpstreamStatus(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantMsg       string
		wantRetryable bool
	}{
		{
			name:    "unauthorized with error envelope",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`,
			wantMsg: "Incorrect API key (type: invalid_request_error)",
		},
		{
			name:          "rate limited",
			status:        http.StatusTooManyRequests,
			body:          `{"error":{"message":"slow down"}}`,
			wantMsg:       "slow down",
			wantRetryable: true,
		},
		{
			name:          "plain text server error",
			status:        http.StatusInternalServerError,
			body:          "boom",
			wantMsg:       "boom",
			wantRetryable: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newProviderStub(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := stub.client("k").Complete(context.Background(), "p", 0.7, 10)
			require.Error(t, err)
			e, ok := types.AsError(err)
			require.True(t, ok)
			assert.Equal(t, types.ErrUpstreamError, e.Code)
			assert.Equal(t, tt.status, e.UpstreamStatus)
			assert.Equal(t, http.StatusBadGateway, e.HTTPStatus)
			assert.Equal(t, tt.wantRetryable, e.Retryable)
			assert.Contains(t, e.Message, tt.wantMsg)
			assert.Equal(t, int32(1), stub.calls.Load(), "client must not retry")
		})
	}
}

func TestComplete_MalformedSuccessBody(t *testing.T) {
	stub := newProviderStub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := stub.client("k").Complete(context.Background(), "p", 0.7, 10)
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
}

func TestComplete_TimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	stub := newProviderStub(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := stub.client("k").Complete(ctx, "p", 0.7, 10)
	require.Error(t, err)
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrTransport, e.Code)
	assert.Equal(t, http.StatusGatewayTimeout, e.HTTPStatus)
	assert.Contains(t, e.Message, "timed out")
}

func TestComplete_ConnectionRefusedIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewOpenAIClient(Config{APIKey: "k", BaseURL: url}, nil)
	_, err := c.Complete(context.Background(), "p", 0.7, 10)
	require.Error(t, err)
	assert.Equal(t, types.ErrTransport, types.GetErrorCode(err))
}

func TestNewOpenAIClient_Defaults(t *testing.T) {
	c := NewOpenAIClient(Config{BaseURL: "https://api.example.com/"}, nil)
	assert.Equal(t, DefaultModel, c.Model())
	assert.False(t, c.Configured())
	assert.Equal(t, "https://api.example.com/v1/chat/completions", c.endpoint())
	assert.Equal(t, defaultTimeout, c.cfg.Timeout)
}

func TestOpenAIClient_ConcurrentUse(t *testing.T) {
	stub := newProviderStub(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeCompletion(w, req.Messages[0].Content)
	})
	c := stub.client("k")

	const n = 16
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			prompt := string(rune('a' + i))
			out, err := c.Complete(context.Background(), prompt, 0.5, 5)
			if err == nil && out != prompt {
				err = assert.AnError
			}
			errs <- err
		}(i)
	}
	for i := 0; i < n; i++ {
		assert.NoError(t, <-errs)
	}
	assert.Equal(t, int32(n), stub.calls.Load())
}
