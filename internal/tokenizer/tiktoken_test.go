package tokenizer

import (
	"strings"
	"testing"

	"github.com/k11techlab/testsmith/types"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestEncodingForModel(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"gpt-4o", "o200k_base"},
		{"gpt-4o-mini", "o200k_base"},
		{"gpt-4o-2024-08-06", "o200k_base"},
		{"gpt-4-0613", "cl100k_base"},
		{"gpt-3.5-turbo", "cl100k_base"},
		{"llama-3", "cl100k_base"},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodingForModel(tt.model))
		})
	}
}

func TestCounter_FallsBackToEstimator(t *testing.T) {
	c := newWithEncoding("no_such_encoding", zap.NewNop())

	text := strings.Repeat("a", 400)
	assert.Equal(t, types.NewEstimateTokenizer().CountTokens(text), c.CountTokens(text))
	assert.False(t, c.Exact())
	assert.Equal(t, "estimator", c.Name())
}

func TestCounter_EmptyText(t *testing.T) {
	c := newWithEncoding("no_such_encoding", nil)
	assert.Equal(t, 0, c.CountTokens(""))
}

func TestCounter_ImplementsTokenCounter(t *testing.T) {
	var _ types.TokenCounter = New("gpt-4o", nil)
}
