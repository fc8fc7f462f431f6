package store

import (
	"time"

	"github.com/google/uuid"
)

// GenNewID returns a fresh random UUID. Tracing code calls this to mint
// trace and span IDs before the record they identify is built.
func GenNewID() uuid.UUID { return uuid.New() }

// TraceStatus is the lifecycle state of one top-level agent run trace.
type TraceStatus string

const (
	TraceStatusRunning   TraceStatus = "running"
	TraceStatusCompleted TraceStatus = "completed"
	TraceStatusError     TraceStatus = "error"
	TraceStatusCancelled TraceStatus = "cancelled"
)

// TraceData is one agent.Loop.Run invocation: the root of a span tree.
type TraceData struct {
	ID               uuid.UUID  `json:"id"`
	RunID            string     `json:"runId,omitempty"`
	SessionKey       string     `json:"sessionKey,omitempty"`
	UserID           string     `json:"userId,omitempty"`
	Channel          string     `json:"channel,omitempty"`
	AgentID          *uuid.UUID `json:"agentId,omitempty"`
	ParentTraceID    *uuid.UUID `json:"parentTraceId,omitempty"`
	Name          string      `json:"name"`
	InputPreview  string      `json:"inputPreview,omitempty"`
	OutputPreview string      `json:"outputPreview,omitempty"`
	Status        TraceStatus `json:"status"`
	Error         string      `json:"error,omitempty"`
	Tags          []string    `json:"tags,omitempty"`
	StartTime     time.Time   `json:"startTime"`
	EndTime       *time.Time  `json:"endTime,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// SpanType distinguishes the three kinds of span a trace can contain.
type SpanType string

const (
	SpanTypeAgent    SpanType = "agent"
	SpanTypeLLMCall  SpanType = "llm_call"
	SpanTypeToolCall SpanType = "tool_call"
)

// SpanStatus mirrors TraceStatus at the span level; spans don't suspend on
// their own (a yield ends the enclosing agent span, not a child span), so
// there is no span-level "cancelled" or "awaiting" state.
type SpanStatus string

const (
	SpanStatusCompleted SpanStatus = "completed"
	SpanStatusError     SpanStatus = "error"
)

// SpanLevel is a coarse verbosity tag clients can filter on, independent of
// Collector.Verbose() which controls how much gets captured in the first
// place.
type SpanLevel string

const SpanLevelDefault SpanLevel = "DEFAULT"

// SpanData is one LLM call, tool call, or agent-run span within a trace.
type SpanData struct {
	ID            uuid.UUID  `json:"id"`
	TraceID       uuid.UUID  `json:"traceId"`
	ParentSpanID  *uuid.UUID `json:"parentSpanId,omitempty"`
	AgentID       *uuid.UUID `json:"agentId,omitempty"`
	SpanType      SpanType   `json:"spanType"`
	Name          string     `json:"name"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       *time.Time `json:"endTime,omitempty"`
	DurationMS    int        `json:"durationMs"`
	Model         string     `json:"model,omitempty"`
	Provider      string     `json:"provider,omitempty"`
	ToolName      string     `json:"toolName,omitempty"`
	ToolCallID    string     `json:"toolCallId,omitempty"`
	InputPreview  string     `json:"inputPreview,omitempty"`
	OutputPreview string     `json:"outputPreview,omitempty"`
	FinishReason  string     `json:"finishReason,omitempty"`
	InputTokens   int        `json:"inputTokens,omitempty"`
	OutputTokens  int        `json:"outputTokens,omitempty"`
	Metadata      []byte     `json:"metadata,omitempty"`
	Status        SpanStatus `json:"status"`
	Level         SpanLevel  `json:"level"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}
