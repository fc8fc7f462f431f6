package lanes

import (
	"context"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
)

// pollInterval matches the 10ms poll used by LaneWorker in the reference
// implementation's tokio::select! loop.
const pollInterval = 10 * time.Millisecond

// Handler processes one dequeued request; req.Lane names the lane it came
// from. RunWorker calls Complete for that lane once the handler returns.
type Handler func(ctx context.Context, req *QueuedRequest)

// RunWorker polls TryDequeue on pollInterval until ctx is cancelled,
// dispatching each popped request to handle and calling Complete after it
// returns. This is the Go equivalent of the reference's tokio::select!
// between a shutdown watch channel and an interval tick — ctx.Done() plays
// the role of the shutdown watch.
func RunWorker(ctx context.Context, m *Manager, handle Handler) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			req, ok := m.TryDequeue()
			if !ok {
				continue
			}
			go func(req *QueuedRequest) {
				defer m.Complete(req.Lane)
				handle(ctx, req)
			}(req)
		}
	}
}

// CronSpec is one operator-configured scheduled turn.
type CronSpec struct {
	Expr    string // standard 5-field cron expression
	Payload interface{}
}

// CronFeeder periodically checks each CronSpec against gronx and enqueues a
// Cron-lane request whenever its expression is due. This gives the Lane
// Scheduler's highest-priority lane an actual producer: cron jobs describe
// the Cron lane's priority and concurrency but not what feeds it.
type CronFeeder struct {
	mgr    *Manager
	specs  []CronSpec
	lastID int
}

// NewCronFeeder builds a feeder over the given specs.
func NewCronFeeder(mgr *Manager, specs []CronSpec) *CronFeeder {
	return &CronFeeder{mgr: mgr, specs: specs}
}

// Run checks every spec once a minute (cron granularity) until ctx is
// cancelled, enqueueing a Cron-lane item for every expression due "now".
func (f *CronFeeder) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	check := func() {
		now := time.Now()
		for _, spec := range f.specs {
			due, err := gronx.IsDue(spec.Expr, now)
			if err != nil {
				slog.Warn("lanes: invalid cron expression", "expr", spec.Expr, "error", err)
				continue
			}
			if !due {
				continue
			}
			f.lastID++
			if _, _, err := f.mgr.Enqueue(Cron, "cron", spec.Payload); err != nil {
				slog.Warn("lanes: cron lane enqueue failed", "expr", spec.Expr, "error", err)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
