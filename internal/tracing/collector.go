package tracing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/goclaw/internal/store"
)

// Collector persists traces and their spans as one JSON file per trace
// (trace metadata plus accumulated spans), written with the same
// temp-file-then-rename idiom internal/turnstate.Store uses for suspended
// turns. There is no query surface here and no CLI command reads these
// files: traces are for post-hoc inspection of the files themselves (for
// example in a support bundle), not a live dashboard.
type Collector struct {
	dir     string
	verbose bool

	mu     sync.Mutex
	active map[uuid.UUID]*traceFile
}

type traceFile struct {
	Trace *store.TraceData `json:"trace"`
	Spans []store.SpanData `json:"spans"`
}

// NewCollector creates a Collector rooted at dir ($DATA/traces). verbose
// controls whether full message bodies and untruncated output are
// captured (see Loop.emitLLMSpan) or just short previews.
func NewCollector(dir string, verbose bool) *Collector {
	return &Collector{dir: dir, verbose: verbose, active: make(map[uuid.UUID]*traceFile)}
}

// Verbose reports whether full payloads should be captured in spans.
func (c *Collector) Verbose() bool { return c.verbose }

func (c *Collector) path(traceID uuid.UUID) string {
	return filepath.Join(c.dir, traceID.String()+".json")
}

// CreateTrace registers trace as the root of a new span tree and writes
// its initial (running) state to disk.
func (c *Collector) CreateTrace(ctx context.Context, trace *store.TraceData) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("tracing: create dir: %w", err)
	}
	tf := &traceFile{Trace: trace}

	c.mu.Lock()
	c.active[trace.ID] = tf
	c.mu.Unlock()

	return c.flush(tf)
}

// EmitSpan appends span to its trace's in-memory span list and flushes to
// disk. Spans for traces the collector never saw CreateTrace for (a race
// with a very short-lived run, or a span emitted after the process
// restarted) are logged and dropped rather than silently lost.
func (c *Collector) EmitSpan(span store.SpanData) {
	c.mu.Lock()
	tf, ok := c.active[span.TraceID]
	if ok {
		tf.Spans = append(tf.Spans, span)
	}
	c.mu.Unlock()

	if !ok {
		slog.Debug("tracing: span for unknown trace, dropping", "trace_id", span.TraceID, "span_type", span.SpanType)
		return
	}
	if err := c.flush(tf); err != nil {
		slog.Warn("tracing: failed to persist span", "trace_id", span.TraceID, "error", err)
	}
}

// FinishTrace marks trace as done, records the terminal status/error/output
// preview, and removes it from the in-memory active set — later EmitSpan
// calls for the same ID (a bug, since a trace finishes only once) are
// dropped per the EmitSpan unknown-trace path above.
func (c *Collector) FinishTrace(ctx context.Context, traceID uuid.UUID, status store.TraceStatus, errMsg, outputPreview string) error {
	c.mu.Lock()
	tf, ok := c.active[traceID]
	if ok {
		delete(c.active, traceID)
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("tracing: finish unknown trace %s", traceID)
	}

	now := time.Now().UTC()
	tf.Trace.Status = status
	tf.Trace.Error = errMsg
	tf.Trace.OutputPreview = outputPreview
	tf.Trace.EndTime = &now
	return c.flush(tf)
}

func (c *Collector) flush(tf *traceFile) error {
	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return err
	}
	path := c.path(tf.Trace.ID)
	tmp, err := os.CreateTemp(c.dir, "trace-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmpPath)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	tmp.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	cleanup = false
	return nil
}
