package turnstate

import (
	"testing"
	"time"
)

func TestSaveGetRemoveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, time.Minute)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	st := &State{
		TurnID:      "turn-1",
		SessionID:   "session-1",
		RequestID:   "req-1",
		Messages:    []Message{{Role: "user", Content: "hi"}},
		YieldReason: YieldAwaitingApproval,
		Pending:     PendingToolCall{ToolCallID: "call-1", ToolName: "Bash"},
	}
	if err := store.Save(st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok := store.Get("turn-1")
	if !ok {
		t.Fatal("expected Get to find saved state")
	}
	if got.SessionID != "session-1" || got.Pending.ToolName != "Bash" {
		t.Fatalf("unexpected state: %+v", got)
	}

	removed, ok := store.Remove("turn-1")
	if !ok || removed.TurnID != "turn-1" {
		t.Fatalf("Remove returned %+v, %v", removed, ok)
	}

	if _, ok := store.Get("turn-1"); ok {
		t.Fatal("expected Get to miss after Remove")
	}
	if _, ok := store.Remove("turn-1"); ok {
		t.Fatal("expected second Remove to report not-found")
	}
}

func TestExpiryIsInvisibleToGet(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	st := &State{TurnID: "turn-expiring", SessionID: "s", CreatedAt: time.Now().Add(-time.Hour)}
	if err := store.Save(st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, ok := store.Get("turn-expiring"); ok {
		t.Fatal("expected already-expired state to be invisible immediately")
	}

	if n := store.CleanupExpired(); n != 1 {
		t.Fatalf("CleanupExpired removed %d, want 1", n)
	}
}

func TestHydrateDiscardsExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, time.Hour)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	expired := &State{TurnID: "old", SessionID: "s", CreatedAt: time.Now().Add(-2 * time.Hour)}
	if err := store.Save(expired); err != nil {
		t.Fatalf("Save: %v", err)
	}
	store.Stop()

	reopened, err := NewStore(dir, time.Hour)
	if err != nil {
		t.Fatalf("NewStore reopen: %v", err)
	}
	if _, ok := reopened.Get("old"); ok {
		t.Fatal("expected hydrate to discard the expired file")
	}
}
