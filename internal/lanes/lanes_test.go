package lanes

import "testing"

func TestPriorityOrderingDequeuesHighestFirst(t *testing.T) {
	m := NewManager(DefaultConfig())
	if _, _, err := m.Enqueue(Batch, "s1", "batch-item"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.Enqueue(Main, "s2", "main-item"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.Enqueue(Cron, "s3", "cron-item"); err != nil {
		t.Fatal(err)
	}

	req, ok := m.TryDequeue()
	if !ok || req.Lane != Cron {
		t.Fatalf("expected Cron lane first, got %+v", req)
	}
	req, ok = m.TryDequeue()
	if !ok || req.Lane != Main {
		t.Fatalf("expected Main lane second, got %+v", req)
	}
	req, ok = m.TryDequeue()
	if !ok || req.Lane != Batch {
		t.Fatalf("expected Batch lane third, got %+v", req)
	}
}

func TestConcurrencyCapBlocksDequeue(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Concurrency[Main] = 1
	m := NewManager(cfg)

	m.Enqueue(Main, "s1", "a")
	m.Enqueue(Main, "s1", "b")

	first, ok := m.TryDequeue()
	if !ok || first.Lane != Main {
		t.Fatal("expected first dequeue to succeed")
	}
	if _, ok := m.TryDequeue(); ok {
		t.Fatal("expected second dequeue to be blocked by concurrency cap")
	}
	m.Complete(Main)
	if _, ok := m.TryDequeue(); !ok {
		t.Fatal("expected dequeue to succeed after Complete frees a slot")
	}
}

func TestQueueFullReturnsError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxQueueDepth[Batch] = 1
	m := NewManager(cfg)

	if _, _, err := m.Enqueue(Batch, "s", 1); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if _, _, err := m.Enqueue(Batch, "s", 2); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestHigherPriorityStarvesLowerWhileBothHaveSlack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Concurrency[Main] = 0 // forces default fallback, not what we want here
	m := NewManager(DefaultConfig())

	m.Enqueue(Main, "s", "main-item")
	m.Enqueue(Subagent, "s", "sub-item")

	// TryDequeue must never return the Subagent item while Main has a
	// pending item and slack.
	req, ok := m.TryDequeue()
	if !ok || req.Lane != Main {
		t.Fatalf("expected Main lane to win, got %+v", req)
	}
	_ = cfg
}

func TestStatsReportsPendingAndActive(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.Enqueue(Main, "s", "a")
	m.Enqueue(Main, "s", "b")
	m.TryDequeue()

	stats := m.Stats()
	var mainStats Stats
	for _, s := range stats {
		if s.Lane == Main {
			mainStats = s
		}
	}
	if mainStats.Pending != 1 || mainStats.Active != 1 {
		t.Fatalf("unexpected main lane stats: %+v", mainStats)
	}
}
