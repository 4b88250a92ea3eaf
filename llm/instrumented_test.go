package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/k11techlab/testsmith/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcClient func(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)

func (f funcClient) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	return f(ctx, prompt, temperature, maxTokens)
}

func TestInstrument_PassesThrough(t *testing.T) {
	var gotPrompt string
	inner := funcClient(func(_ context.Context, prompt string, _ float64, _ int) (string, error) {
		gotPrompt = prompt
		return "out", nil
	})

	out, err := Instrument(inner, "m", nil).Complete(context.Background(), "in", 0.1, 5)
	require.NoError(t, err)
	assert.Equal(t, "out", out)
	assert.Equal(t, "in", gotPrompt)
}

func TestInstrument_PreservesErrors(t *testing.T) {
	want := types.NewError(types.ErrUpstreamError, "nope")
	inner := funcClient(func(context.Context, string, float64, int) (string, error) {
		return "", want
	})

	_, err := Instrument(inner, "m", nil).Complete(context.Background(), "in", 0.1, 5)
	assert.Same(t, want, err)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "error", outcome(errors.New("plain")))
	assert.Equal(t, "transport_error", outcome(types.NewError(types.ErrTransport, "t")))
	assert.Equal(t, "upstream_error", outcome(types.NewError(types.ErrUpstreamError, "u")))
}
