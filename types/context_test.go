package types

import (
	"context"
	"testing"
)

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	ctx = WithTraceID(ctx, "t1")
	if got, ok := TraceID(ctx); !ok || got != "t1" {
		t.Fatalf("TraceID mismatch: %v %v", got, ok)
	}

	ctx = WithRequestID(ctx, "req-1")
	if got, ok := RequestID(ctx); !ok || got != "req-1" {
		t.Fatalf("RequestID mismatch: %v %v", got, ok)
	}

	ctx = WithCorrelationKey(ctx, "wf-1")
	if got, ok := CorrelationKey(ctx); !ok || got != "wf-1" {
		t.Fatalf("CorrelationKey mismatch: %v %v", got, ok)
	}

	ctx = WithSubject(ctx, "ci-bot")
	if got, ok := Subject(ctx); !ok || got != "ci-bot" {
		t.Fatalf("Subject mismatch: %v %v", got, ok)
	}
}

func TestContextHelpers_Empty(t *testing.T) {
	t.Parallel()

	ctx := WithRequestID(context.Background(), "")
	if _, ok := RequestID(ctx); ok {
		t.Fatalf("expected empty request ID to be reported missing")
	}
	if _, ok := CorrelationKey(context.Background()); ok {
		t.Fatalf("expected missing correlation key")
	}
}
