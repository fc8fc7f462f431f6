// Package agentserver implements the C5 Agent Server: a Unix-socket NDJSON
// peer that runs turns through a worker.Worker on behalf of a process that
// doesn't want to link the full agent.Loop stack directly — typically a
// gateway process running as a separate binary from the agent daemon.
// Grounded on original_source/src/agent_service/server.rs, adapted to the
// worker.Worker/turnstate.Store shapes already established for C3/C4.
package agentserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/goclaw/internal/agent"
	"github.com/nextlevelbuilder/goclaw/internal/lanes"
	"github.com/nextlevelbuilder/goclaw/internal/turnstate"
	"github.com/nextlevelbuilder/goclaw/internal/worker"
	"github.com/nextlevelbuilder/goclaw/pkg/protocol"
)

// maxLineBytes bounds one NDJSON line (request or event): large enough for
// a full conversation turn's tool arguments, small enough to bound a
// runaway peer.
const maxLineBytes = 4 << 20

// Config configures one Agent Server listener.
type Config struct {
	SocketPath    string
	MaxConcurrent int // max simultaneous connections; default 4
}

// Server is the C5 Agent Server. It owns a worker.Worker and acts as that
// worker's EventSink, routing lifecycle events back to whichever connection
// is waiting on the turn they belong to.
type Server struct {
	cfg    Config
	worker *worker.Worker

	mu      sync.Mutex
	writers map[string]*connWriter // turn ID -> the connection that started it
}

// New builds a Server. loop, lanesMgr, and turns are the same C2/C10/C3
// instances a cmd/agentd entrypoint would otherwise hand to worker.New
// directly; New does that wiring itself so the Server can register as the
// worker's EventSink.
func New(loop worker.Loop, lanesMgr *lanes.Manager, turns *turnstate.Store, cfg Config) *Server {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	s := &Server{cfg: cfg, writers: make(map[string]*connWriter)}
	s.worker = worker.New(loop, lanesMgr, turns, s)
	return s
}

// Worker exposes the underlying worker, e.g. so a hosting process can also
// wire it behind an in-process gateway bridge.
func (s *Server) Worker() *worker.Worker { return s.worker }

// Serve binds the Unix socket and accepts connections until ctx is
// cancelled. Any stale socket file from an unclean prior exit is removed
// first.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.RemoveAll(s.cfg.SocketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("agentserver: remove stale socket: %w", err)
	}
	if dir := filepath.Dir(s.cfg.SocketPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("agentserver: create socket dir: %w", err)
		}
	}

	ln, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("agentserver: listen: %w", err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	slog.Info("agentserver: listening", "socket", s.cfg.SocketPath, "max_concurrent", s.cfg.MaxConcurrent)

	sem := make(chan struct{}, s.cfg.MaxConcurrent)
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			slog.Warn("agentserver: accept failed", "error", err)
			continue
		}
		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			s.handleConn(ctx, conn)
		}()
	}
}

// connWriter serializes writes of AgentEvents to one connection: a turn's
// lifecycle events and another turn's on the same connection must not
// interleave mid-line.
type connWriter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func (c *connWriter) writeEvent(evt protocol.AgentEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(data); err != nil {
		return err
	}
	if err := c.w.WriteByte('\n'); err != nil {
		return err
	}
	return c.w.Flush()
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	cw := &connWriter{w: bufio.NewWriter(conn)}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var req protocol.AgentRequest
		if err := json.Unmarshal(line, &req); err != nil {
			_ = cw.writeEvent(protocol.AgentEvent{Type: protocol.TurnEventError, Error: fmt.Sprintf("bad request: %v", err)})
			continue
		}
		s.dispatch(ctx, req, cw)
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("agentserver: connection read error", "error", err)
	}
}

func (s *Server) dispatch(ctx context.Context, req protocol.AgentRequest, cw *connWriter) {
	switch req.Method {
	case protocol.AgentMethodPing:
		_ = cw.writeEvent(protocol.AgentEvent{Type: protocol.TurnEventPong})

	case protocol.AgentMethodCancel:
		cancelled := s.worker.Cancel(req.SessionID)
		_ = cw.writeEvent(protocol.AgentEvent{
			Type:      protocol.TurnEventDone,
			SessionID: req.SessionID,
			Payload:   map[string]bool{"cancelled": cancelled},
		})

	case protocol.AgentMethodRun:
		turnID := req.TurnID
		if turnID == "" {
			turnID = uuid.NewString()
		}
		s.registerWriter(turnID, cw)
		defer s.unregisterWriter(turnID)

		_, err := s.worker.RunTurn(ctx, worker.Request{
			TurnID:    turnID,
			SessionID: req.SessionID,
			Run: agent.RunRequest{
				SessionKey: req.SessionID,
				Message:    req.Message,
				Channel:    req.Channel,
				ChatID:     req.ChatID,
				PeerKind:   req.PeerKind,
				RunID:      uuid.NewString(),
			},
		})
		if err != nil && !isYield(err) {
			_ = cw.writeEvent(protocol.AgentEvent{Type: protocol.TurnEventError, TurnID: turnID, Error: err.Error()})
		}

	case protocol.AgentMethodResume:
		if req.TurnID == "" {
			_ = cw.writeEvent(protocol.AgentEvent{Type: protocol.TurnEventError, Error: "turn.resume requires turn_id"})
			return
		}
		s.registerWriter(req.TurnID, cw)
		defer s.unregisterWriter(req.TurnID)

		_, err := s.worker.ResumeTurn(ctx, req.TurnID, req.SessionID, req.Answer)
		if err != nil && !isYield(err) {
			_ = cw.writeEvent(protocol.AgentEvent{Type: protocol.TurnEventError, TurnID: req.TurnID, Error: err.Error()})
		}

	default:
		_ = cw.writeEvent(protocol.AgentEvent{Type: protocol.TurnEventError, Error: fmt.Sprintf("unknown method %q", req.Method)})
	}
}

func isYield(err error) bool {
	var y *worker.YieldError
	return errors.As(err, &y)
}

func (s *Server) registerWriter(turnID string, cw *connWriter) {
	s.mu.Lock()
	s.writers[turnID] = cw
	s.mu.Unlock()
}

func (s *Server) unregisterWriter(turnID string) {
	s.mu.Lock()
	delete(s.writers, turnID)
	s.mu.Unlock()
}

func (s *Server) emit(turnID string, evt protocol.AgentEvent) {
	s.mu.Lock()
	cw, ok := s.writers[turnID]
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := cw.writeEvent(evt); err != nil {
		slog.Warn("agentserver: write event failed", "turn_id", turnID, "error", err)
	}
}

// OnStarted implements worker.EventSink.
func (s *Server) OnStarted(turnID string) {
	s.emit(turnID, protocol.AgentEvent{Type: protocol.TurnEventThinking, TurnID: turnID})
}

// OnResult implements worker.EventSink.
func (s *Server) OnResult(turnID string, result *agent.RunResult) {
	s.emit(turnID, protocol.AgentEvent{Type: protocol.TurnEventContent, TurnID: turnID, Content: result.Content})
	s.emit(turnID, protocol.AgentEvent{Type: protocol.TurnEventDone, TurnID: turnID})
}

// OnYield implements worker.EventSink.
func (s *Server) OnYield(turnID string, reason turnstate.YieldReason, pending turnstate.PendingToolCall) {
	evtType := protocol.TurnEventYield
	if reason == turnstate.YieldAwaitingInput {
		evtType = protocol.TurnEventAwaitingInput
	}
	s.emit(turnID, protocol.AgentEvent{
		Type:       evtType,
		TurnID:     turnID,
		Reason:     string(reason),
		ToolName:   pending.ToolName,
		ToolCallID: pending.ToolCallID,
		Pending:    pending,
	})
}

// OnError implements worker.EventSink.
func (s *Server) OnError(turnID string, err error) {
	s.emit(turnID, protocol.AgentEvent{Type: protocol.TurnEventError, TurnID: turnID, Error: err.Error()})
}
