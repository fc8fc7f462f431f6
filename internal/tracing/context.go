// Package tracing threads a Collector and the identifiers of the current
// trace/span through context.Context so deeply nested calls (tool
// execution, delegated sub-agent runs) can attach spans to the right trace
// without every function signature carrying a *Collector parameter.
package tracing

import (
	"context"

	"github.com/google/uuid"
)

type tracingCtxKey string

const (
	ctxCollector           tracingCtxKey = "tracing_collector"
	ctxTraceID             tracingCtxKey = "tracing_trace_id"
	ctxParentSpanID        tracingCtxKey = "tracing_parent_span_id"
	ctxAnnounceParentSpan  tracingCtxKey = "tracing_announce_parent_span_id"
	ctxDelegateParentTrace tracingCtxKey = "tracing_delegate_parent_trace_id"
)

func WithCollector(ctx context.Context, c *Collector) context.Context {
	return context.WithValue(ctx, ctxCollector, c)
}

func CollectorFromContext(ctx context.Context) *Collector {
	c, _ := ctx.Value(ctxCollector).(*Collector)
	return c
}

func WithTraceID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxTraceID, id)
}

func TraceIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxTraceID).(uuid.UUID)
	return id
}

// WithParentSpanID sets the span new child spans should nest under — the
// current "innermost" span, not the trace root.
func WithParentSpanID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxParentSpanID, id)
}

func ParentSpanIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxParentSpanID).(uuid.UUID)
	return id
}

// WithAnnounceParentSpanID marks the root span of an announce run (a loop
// run triggered by a cron/bus event rather than a direct user turn) as
// nesting under a span from a separate, already-finished trace.
func WithAnnounceParentSpanID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxAnnounceParentSpan, id)
}

func AnnounceParentSpanIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxAnnounceParentSpan).(uuid.UUID)
	return id
}

// WithDelegateParentTraceID marks a sub-agent run (Task tool, delegate
// manager) as belonging to the originating trace, so its spans show up
// nested under the parent run instead of starting a disconnected trace.
func WithDelegateParentTraceID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxDelegateParentTrace, id)
}

func DelegateParentTraceIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxDelegateParentTrace).(uuid.UUID)
	return id
}
