package tools

import (
	"context"
	"sort"
	"sync"

	"github.com/nextlevelbuilder/goclaw/internal/providers"
)

// Tool is the interface every built-in and MCP-backed tool implements.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// ExtraContext carries per-call routing info (channel/chat/session) that
// some tools need (e.g. sessions_send, delegate) without threading it
// through every Tool.Execute signature.
type ExtraContext struct {
	Channel    string
	ChatID     string
	PeerKind   string
	SessionKey string
}

// Registry holds the set of tools available to an agent instance.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool under its own Name().
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get looks up a tool by canonical name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tool names, sorted for deterministic
// iteration (policy evaluation and schema generation depend on stable
// ordering across calls).
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ProviderDefs returns provider-ready schemas for every registered tool,
// unfiltered. Callers that need policy filtering use PolicyEngine.FilterTools.
func (r *Registry) ProviderDefs() []providers.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]providers.ToolDefinition, 0, len(r.tools))
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		defs = append(defs, ToProviderDef(r.tools[n]))
	}
	return defs
}

// ToProviderDef converts a Tool into the wire schema sent to the LLM.
func ToProviderDef(t Tool) providers.ToolDefinition {
	return providers.ToolDefinition{
		Type: "function",
		Function: providers.ToolFunctionSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}

type extraContextKey struct{}

// WithExtraContext attaches routing info for the duration of one dispatch.
func WithExtraContext(ctx context.Context, extra ExtraContext) context.Context {
	ctx = WithToolChannel(ctx, extra.Channel)
	ctx = WithToolChatID(ctx, extra.ChatID)
	ctx = WithToolPeerKind(ctx, extra.PeerKind)
	return context.WithValue(ctx, extraContextKey{}, extra)
}

// ExtraContextFromCtx retrieves routing info set by WithExtraContext.
func ExtraContextFromCtx(ctx context.Context) (ExtraContext, bool) {
	v, ok := ctx.Value(extraContextKey{}).(ExtraContext)
	return v, ok
}

// ExecuteWithContext runs a tool by name and always returns a non-nil
// Result — an unknown tool name or panic inside Execute is converted to
// an Error result rather than propagated, matching the dispatcher
// contract's "never propagates failures up the call stack".
func (r *Registry) ExecuteWithContext(ctx context.Context, name string, args map[string]interface{}, channel, chatID, peerKind, sessionKey string, extra *ExtraContext) (result *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = ErrorResult("tool panicked", ErrDispatchError).WithError(nil)
		}
	}()

	t, ok := r.Get(name)
	if !ok {
		return ErrorResult("unknown tool: "+name, ErrDispatchError)
	}
	ctx = WithExtraContext(ctx, ExtraContext{Channel: channel, ChatID: chatID, PeerKind: peerKind, SessionKey: sessionKey})
	res := t.Execute(ctx, args)
	if res == nil {
		return ErrorResult("tool returned no result", ErrToolError)
	}
	if res.Kind == 0 && !res.IsError {
		res.Kind = KindOk
	} else if res.IsError && res.Kind == 0 {
		res.Kind = KindError
	}
	return res
}
