package llm

import (
	"context"
	"strings"
	"time"

	"github.com/k11techlab/testsmith/internal/metrics"
	"github.com/k11techlab/testsmith/internal/telemetry"
	"github.com/k11techlab/testsmith/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedClient records metrics and a span around every call of the
// wrapped Client.
type InstrumentedClient struct {
	next      Client
	model     string
	collector *metrics.Collector
	tracer    trace.Tracer
}

// Instrument wraps next. A nil collector disables metrics.
func Instrument(next Client, model string, collector *metrics.Collector) *InstrumentedClient {
	return &InstrumentedClient{
		next:      next,
		model:     model,
		collector: collector,
		tracer:    telemetry.Tracer("llm"),
	}
}

// Complete implements Client.
func (c *InstrumentedClient) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	ctx, span := c.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.model", c.model),
		attribute.Float64("llm.temperature", temperature),
		attribute.Int("llm.max_tokens", maxTokens),
		attribute.Int("llm.prompt_chars", len(prompt)),
	))
	start := time.Now()
	out, err := c.next.Complete(ctx, prompt, temperature, maxTokens)
	telemetry.EndSpan(span, err)

	if c.collector != nil {
		c.collector.RecordLLMRequest(c.model, outcome(err), time.Since(start), len(prompt))
	}
	return out, err
}

// outcome is the metric label for a call result, e.g. "ok" or "upstream_error".
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	code := types.GetErrorCode(err)
	if code == "" {
		return "error"
	}
	return strings.ToLower(string(code))
}
