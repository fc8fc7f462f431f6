package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nextlevelbuilder/goclaw/internal/sessions"
)

// Agent is anything that can run one turn request — satisfied by *Loop.
// Kept as an interface (rather than depending on *Loop directly) so
// Router and worker.Worker can both be driven by a test double.
type Agent interface {
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
}

// ResolverFunc builds (or rebuilds) the Agent backing one persona key.
// Implementations resolve from config (NewConfigResolver) — see
// resolver.go.
type ResolverFunc func(agentKey string) (Agent, error)

type agentEntry struct {
	agent Agent
}

// Router lazily resolves and caches one Agent per persona key, and
// dispatches RunRequest by extracting the persona key from its canonical
// "agent:{agentID}:{rest}" session key (internal/sessions.ParseSessionKey).
// It implements worker.Loop directly, so a Router can be handed to
// worker.New in place of a single persona's *Loop.
type Router struct {
	mu            sync.Mutex
	resolve       ResolverFunc
	agents        map[string]*agentEntry
	defaultAgentID string
}

// NewRouter builds a Router over resolve. defaultAgentID is used when a
// session key doesn't carry the canonical "agent:{id}:..." prefix (e.g. a
// bare channel session).
func NewRouter(resolve ResolverFunc, defaultAgentID string) *Router {
	return &Router{resolve: resolve, agents: make(map[string]*agentEntry), defaultAgentID: defaultAgentID}
}

// Resolve returns the cached Agent for agentKey, building and caching it
// via ResolverFunc on first use.
func (r *Router) Resolve(agentKey string) (Agent, error) {
	r.mu.Lock()
	if e, ok := r.agents[agentKey]; ok {
		r.mu.Unlock()
		return e.agent, nil
	}
	r.mu.Unlock()

	ag, err := r.resolve(agentKey)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.agents[agentKey] = &agentEntry{agent: ag}
	r.mu.Unlock()
	return ag, nil
}

// Run implements worker.Loop: it extracts the persona key from
// req.SessionKey's "agent:{agentID}:{rest}" convention and dispatches to
// that persona's resolved Loop.
func (r *Router) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	agentID, _ := sessions.ParseSessionKey(req.SessionKey)
	if agentID == "" {
		agentID = r.defaultAgentID
	}
	ag, err := r.Resolve(agentID)
	if err != nil {
		return nil, fmt.Errorf("agent router: %w", err)
	}
	return ag.Run(ctx, req)
}

// InvalidateAgent drops agentKey from the cache, forcing re-resolution on
// its next use (e.g. after a config reload).
func (r *Router) InvalidateAgent(agentKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, agentKey)
	slog.Debug("invalidated agent cache", "agent", agentKey)
}

// InvalidateAll clears the entire agent cache.
func (r *Router) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = make(map[string]*agentEntry)
	slog.Debug("invalidated all agent caches")
}

// ListResolved returns the persona keys currently cached (already built).
func (r *Router) ListResolved() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.agents))
	for k := range r.agents {
		keys = append(keys, k)
	}
	return keys
}
