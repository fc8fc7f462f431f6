// Package worker implements the C4 Worker: it runs requests through an
// agent.Loop, one at a time per session, and persists a suspended
// continuation to the Turn State Store when a turn yields instead of
// completing. Requests are run directly when called; the worker does not
// enqueue them on or dequeue them from the Lane Scheduler.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/goclaw/internal/agent"
	"github.com/nextlevelbuilder/goclaw/internal/lanes"
	"github.com/nextlevelbuilder/goclaw/internal/turnstate"
)

// ErrAwaitingApproval and ErrAwaitingInput are sentinel errors an agent.Loop
// run returns to signal a yield instead of a failure: the turn is not done,
// it is parked pending a policy decision or a user answer. agent.Loop.Run
// raises one of these with the pending call attached via errors.As on
// *YieldError.
var (
	ErrAwaitingApproval = turnstate.ErrAwaitingApproval
	ErrAwaitingInput    = turnstate.ErrAwaitingInput
)

// YieldError carries the suspended continuation payload alongside one of
// the sentinel yield errors above. It is an alias for turnstate.YieldError:
// agent.Loop.Run constructs one directly (agent cannot import worker, which
// already imports agent for RunRequest/RunResult), and errors.As against
// *worker.YieldError here resolves to the identical concrete type.
type YieldError = turnstate.YieldError

// Loop is the subset of agent.Loop the worker depends on.
type Loop interface {
	Run(ctx context.Context, req agent.RunRequest) (*agent.RunResult, error)
}

// Request is one unit of admitted work: a fresh turn or a resume.
type Request struct {
	TurnID    string
	SessionID string
	Lane      lanes.Type
	Run       agent.RunRequest
	ResumeOf  string // non-empty when this is a resume of a prior suspended turn
	Answer    string // user's answer when resuming an awaiting_input yield
}

// EventSink receives lifecycle notifications for one turn. Implementations
// adapt these into C5's NDJSON stream or C7's WebSocket events.
type EventSink interface {
	OnStarted(turnID string)
	OnResult(turnID string, result *agent.RunResult)
	OnYield(turnID string, reason turnstate.YieldReason, pending turnstate.PendingToolCall)
	OnError(turnID string, err error)
}

// Worker runs admitted lane requests one at a time per session, enforcing
// the "single in-flight run per session" invariant via an in-flight set.
type Worker struct {
	loop   Loop
	lanes  *lanes.Manager
	turns  *turnstate.Store
	sink   EventSink

	mu       sync.Mutex
	inFlight map[string]context.CancelFunc // sessionID -> cancel
}

// New builds a Worker over loop, persisting yields to turns. lanesMgr is
// stored on the Worker, but RunTurn and ResumeTurn do not pass requests
// through it. sink may be nil if the caller doesn't need lifecycle
// notifications (e.g. in tests).
func New(loop Loop, lanesMgr *lanes.Manager, turns *turnstate.Store, sink EventSink) *Worker {
	return &Worker{loop: loop, lanes: lanesMgr, turns: turns, sink: sink, inFlight: make(map[string]context.CancelFunc)}
}

// RunTurn starts a fresh turn for req.SessionID. Returns an error if that
// session already has a run in flight: only one turn may run per session
// at a time.
func (w *Worker) RunTurn(ctx context.Context, req Request) (*agent.RunResult, error) {
	claimCtx, err := w.claim(req.SessionID)
	if err != nil {
		return nil, err
	}
	defer w.release(req.SessionID)

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()
	go func() {
		<-claimCtx.Done()
		runCancel()
	}()

	if req.TurnID == "" {
		req.TurnID = uuid.NewString()
	}
	if w.sink != nil {
		w.sink.OnStarted(req.TurnID)
	}

	result, err := w.loop.Run(runCtx, req.Run)
	return w.finish(req.TurnID, req.SessionID, req.Run, result, err)
}

// ResumeTurn loads the suspended state for turnID, appends answer (if this
// was an awaiting_input yield) or the approval outcome (if awaiting_approval),
// removes it from the store (a turn resumes at most once), and re-enters the
// loop with the reconstructed request.
func (w *Worker) ResumeTurn(ctx context.Context, turnID, sessionID, answer string) (*agent.RunResult, error) {
	state, ok := w.turns.Remove(turnID)
	if !ok {
		return nil, fmt.Errorf("worker: no suspended turn %q", turnID)
	}

	claimCtx, err := w.claim(sessionID)
	if err != nil {
		// Put it back: the caller can retry once the in-flight run ends.
		_ = w.turns.Save(state)
		return nil, err
	}
	defer w.release(sessionID)

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()
	go func() {
		<-claimCtx.Done()
		runCancel()
	}()

	run := agent.RunRequest{
		SessionKey:       state.SessionID,
		Message:          answer,
		RunID:            uuid.NewString(),
		ResumeToolCallID: state.Pending.ToolCallID,
	}
	if w.sink != nil {
		w.sink.OnStarted(turnID)
	}

	result, err := w.loop.Run(runCtx, run)
	return w.finish(turnID, sessionID, run, result, err)
}

func (w *Worker) finish(turnID, sessionID string, run agent.RunRequest, result *agent.RunResult, err error) (*agent.RunResult, error) {
	var yield *YieldError
	if errors.As(err, &yield) {
		state := &turnstate.State{
			TurnID:      turnID,
			SessionID:   sessionID,
			RequestID:   run.RunID,
			Messages:    yield.Messages,
			Pending:     yield.Pending,
			YieldReason: yield.Reason,
			Target:      run.Channel,
		}
		if saveErr := w.turns.Save(state); saveErr != nil {
			slog.Error("worker: failed to persist suspended turn", "turn_id", turnID, "error", saveErr)
		}
		if w.sink != nil {
			w.sink.OnYield(turnID, yield.Reason, yield.Pending)
		}
		return nil, yield
	}
	if err != nil {
		if w.sink != nil {
			w.sink.OnError(turnID, err)
		}
		return nil, err
	}
	if w.sink != nil {
		w.sink.OnResult(turnID, result)
	}
	return result, nil
}

// Cancel aborts the in-flight run for sessionID, if any. Returns false if
// no run was in flight.
func (w *Worker) Cancel(sessionID string) bool {
	w.mu.Lock()
	cancel, ok := w.inFlight[sessionID]
	w.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	return true
}

// Ping reports whether sessionID currently has a run in flight.
func (w *Worker) Ping(sessionID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.inFlight[sessionID]
	return ok
}

var errAlreadyRunning = errors.New("worker: session already has a run in flight")

func (w *Worker) claim(sessionID string) (context.Context, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.inFlight[sessionID]; ok {
		return nil, errAlreadyRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.inFlight[sessionID] = cancel
	return ctx, nil
}

func (w *Worker) release(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cancel, ok := w.inFlight[sessionID]; ok {
		cancel()
		delete(w.inFlight, sessionID)
	}
}
