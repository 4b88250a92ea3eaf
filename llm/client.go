// =============================================================================
// testsmith LLM Client
// =============================================================================
// Single-shot chat completion against an OpenAI-compatible endpoint.
// The client never retries; callers decide what a failure means.
// =============================================================================

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/k11techlab/testsmith/config"
	"github.com/k11techlab/testsmith/internal/tlsutil"
	"github.com/k11techlab/testsmith/types"
	"go.uber.org/zap"
)

const (
	providerName    = "openai"
	defaultEndpoint = "/v1/chat/completions"
	defaultTimeout  = 30 * time.Second
)

// Client completes a single prompt.
type Client interface {
	Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// Config holds the resolved settings of an OpenAIClient.
type Config struct {
	// APIKey is the bearer credential. Empty means unconfigured.
	APIKey string

	// BaseURL is the provider root, e.g. "https://api.openai.com".
	BaseURL string

	// Model is the chat model name.
	Model string

	// Timeout bounds a whole request. Defaults to 30s if zero.
	Timeout time.Duration

	// EndpointPath defaults to "/v1/chat/completions".
	EndpointPath string
}

// ConfigFromSettings resolves credentials and model through the resolver
// chain and fills the rest from cfg.
func ConfigFromSettings(cfg config.LLMConfig, logger *zap.Logger) Config {
	resolvers := DefaultResolvers(cfg.APIKey, cfg.Model, cfg.DotenvPath, logger)
	apiKey, _ := Chain(EnvAPIKey, resolvers...)
	model, ok := Chain(EnvModel, resolvers...)
	if !ok {
		model = DefaultModel
	}
	return Config{
		APIKey:  apiKey,
		BaseURL: cfg.BaseURL,
		Model:   model,
		Timeout: cfg.Timeout,
	}
}

// OpenAIClient talks to an OpenAI-compatible chat completions endpoint.
// It is immutable after construction and safe for concurrent use.
type OpenAIClient struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewOpenAIClient creates a client from resolved settings.
func NewOpenAIClient(cfg Config, logger *zap.Logger) *OpenAIClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = defaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIClient{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("component", "llm")),
	}
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string { return c.cfg.Model }

// Configured reports whether a credential is available.
func (c *OpenAIClient) Configured() bool { return c.cfg.APIKey != "" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as a single user message and returns the first
// choice's content.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	if err := ValidateParams(temperature, maxTokens); err != nil {
		return "", err
	}
	if !c.Configured() {
		return "", types.NewError(types.ErrConfiguration, "LLM API key is not configured").
			WithHTTPStatus(http.StatusServiceUnavailable).
			WithProvider(providerName)
	}

	body := chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", types.NewError(types.ErrInternalError, "failed to encode completion request").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return "", types.NewError(types.ErrConfiguration, "invalid LLM endpoint").
			WithCause(err).
			WithHTTPStatus(http.StatusServiceUnavailable).
			WithProvider(providerName)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", transportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := readErrorMessage(resp.Body)
		c.logger.Warn("completion rejected by provider",
			zap.Int("status", resp.StatusCode),
			zap.String("model", c.cfg.Model),
			zap.Duration("duration", time.Since(start)))
		return "", upstreamError(resp.StatusCode, msg)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(err)
	}
	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", upstreamError(resp.StatusCode, "malformed completion response").WithCause(err)
	}
	if len(parsed.Choices) == 0 {
		return "", upstreamError(resp.StatusCode, "completion response has no choices")
	}

	c.logger.Debug("completion finished",
		zap.String("model", c.cfg.Model),
		zap.Int("prompt_chars", len(prompt)),
		zap.Duration("duration", time.Since(start)))

	return strings.TrimRightFunc(parsed.Choices[0].Message.Content, unicode.IsControl), nil
}

func (c *OpenAIClient) endpoint() string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + c.cfg.EndpointPath
}

// ValidateParams checks sampling parameters shared by every Client.
func ValidateParams(temperature float64, maxTokens int) error {
	if temperature < 0 || temperature > 2 {
		return types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("temperature must be within [0, 2], got %v", temperature)).
			WithHTTPStatus(http.StatusBadRequest)
	}
	if maxTokens <= 0 {
		return types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("max tokens must be positive, got %d", maxTokens)).
			WithHTTPStatus(http.StatusBadRequest)
	}
	return nil
}

// readErrorMessage extracts a provider error message, falling back to the
// raw body text.
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return "failed to read error response"
	}
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &errResp) == nil && errResp.Error.Message != "" {
		if errResp.Error.Type != "" {
			return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return errResp.Error.Message
	}
	return strings.TrimSpace(string(data))
}

func upstreamError(status int, msg string) *types.Error {
	if msg == "" {
		msg = http.StatusText(status)
	}
	return types.NewError(types.ErrUpstreamError, fmt.Sprintf("provider returned status %d: %s", status, msg)).
		WithHTTPStatus(http.StatusBadGateway).
		WithUpstreamStatus(status).
		WithRetryable(status == http.StatusTooManyRequests || status >= 500).
		WithProvider(providerName)
}

func transportError(err error) *types.Error {
	msg := "request to LLM provider failed"
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		msg = "request to LLM provider timed out"
	case errors.Is(err, context.Canceled):
		msg = "request to LLM provider was cancelled"
	}
	return types.NewError(types.ErrTransport, msg).
		WithCause(err).
		WithHTTPStatus(http.StatusGatewayTimeout).
		WithRetryable(true).
		WithProvider(providerName)
}
