package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/nextlevelbuilder/goclaw/internal/agent"
	"github.com/nextlevelbuilder/goclaw/internal/turnstate"
)

type stubLoop struct {
	result *agent.RunResult
	err    error
}

func (s *stubLoop) Run(ctx context.Context, req agent.RunRequest) (*agent.RunResult, error) {
	return s.result, s.err
}

func TestRunTurnReturnsResultOnSuccess(t *testing.T) {
	dir := t.TempDir()
	store, err := turnstate.NewStore(dir, turnstate.DefaultTTL)
	if err != nil {
		t.Fatal(err)
	}
	w := New(&stubLoop{result: &agent.RunResult{Content: "ok"}}, nil, store, nil)

	res, err := w.RunTurn(context.Background(), Request{SessionID: "s1", Run: agent.RunRequest{SessionKey: "s1"}})
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if res.Content != "ok" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if w.Ping("s1") {
		t.Fatal("expected session to be released after completion")
	}
}

func TestRunTurnRejectsConcurrentSameSession(t *testing.T) {
	dir := t.TempDir()
	store, _ := turnstate.NewStore(dir, turnstate.DefaultTTL)
	w := New(&stubLoop{result: &agent.RunResult{}}, nil, store, nil)

	_, err := w.claim("s1")
	if err != nil {
		t.Fatal(err)
	}
	defer w.release("s1")

	if _, err := w.RunTurn(context.Background(), Request{SessionID: "s1", Run: agent.RunRequest{SessionKey: "s1"}}); err == nil {
		t.Fatal("expected error for already in-flight session")
	}
}

func TestRunTurnPersistsYield(t *testing.T) {
	dir := t.TempDir()
	store, _ := turnstate.NewStore(dir, turnstate.DefaultTTL)
	yieldErr := &YieldError{
		Reason:  turnstate.YieldAwaitingApproval,
		Pending: turnstate.PendingToolCall{ToolCallID: "call-1", ToolName: "Bash"},
		Err:     ErrAwaitingApproval,
	}
	w := New(&stubLoop{err: yieldErr}, nil, store, nil)

	_, err := w.RunTurn(context.Background(), Request{TurnID: "turn-9", SessionID: "s1", Run: agent.RunRequest{SessionKey: "s1"}})
	var ye *YieldError
	if !errors.As(err, &ye) {
		t.Fatalf("expected YieldError, got %v", err)
	}

	state, ok := store.Get("turn-9")
	if !ok {
		t.Fatal("expected suspended turn to be persisted")
	}
	if state.Pending.ToolName != "Bash" {
		t.Fatalf("unexpected persisted state: %+v", state)
	}
}
