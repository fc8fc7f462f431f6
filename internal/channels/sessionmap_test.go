package channels

import (
	"testing"
	"time"
)

func TestTouchAndLookup(t *testing.T) {
	m := NewChannelSessionMap()
	m.Touch("telegram", "peer-1", "session-a")

	key, ok := m.Lookup("telegram", "peer-1")
	if !ok || key != "session-a" {
		t.Fatalf("expected session-a, got %q, %v", key, ok)
	}
}

func TestSweepStaleRemovesOldSessions(t *testing.T) {
	m := NewChannelSessionMap()
	m.Touch("telegram", "peer-1", "session-a")
	m.sessions[peerKey("telegram", "peer-1")].LastActive = time.Now().Add(-time.Hour)

	if n := m.SweepStale(); n != 1 {
		t.Fatalf("expected 1 removed, got %d", n)
	}
	if _, ok := m.Lookup("telegram", "peer-1"); ok {
		t.Fatal("expected session to be gone after sweep")
	}
}
