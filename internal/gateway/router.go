package gateway

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nextlevelbuilder/goclaw/pkg/protocol"
)

// MethodHandler processes one RPC request frame for client.
type MethodHandler func(ctx context.Context, client *Client, req *protocol.RequestFrame)

// MethodRouter maps RPC method names to handlers, optionally rate-limited
// before dispatch. Additional handlers are added by calling Register against
// the *Server's router returned by Server.Router().
type MethodRouter struct {
	server *Server

	mu       sync.RWMutex
	handlers map[string]MethodHandler
}

// NewMethodRouter builds a router bound to srv (used for rate limiting at
// dispatch time).
func NewMethodRouter(srv *Server) *MethodRouter {
	return &MethodRouter{server: srv, handlers: make(map[string]MethodHandler)}
}

// Register binds name to handler, overwriting any existing binding.
func (r *MethodRouter) Register(name string, handler MethodHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Dispatch looks up req.Method and invokes its handler, replying with
// method_not_found if nothing is registered and rate_limited if the
// server's rate limiter rejects the client.
func (r *MethodRouter) Dispatch(ctx context.Context, client *Client, req *protocol.RequestFrame) {
	if r.server.rateLimiter != nil && r.server.rateLimiter.Enabled() && !r.server.rateLimiter.Allow(client.id) {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrRateLimited, "rate limit exceeded"))
		return
	}

	r.mu.RLock()
	handler, ok := r.handlers[req.Method]
	r.mu.RUnlock()
	if !ok {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrMethodNotFound, "unknown method: "+req.Method))
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("gateway: method handler panicked", "method", req.Method, "recover", rec)
			client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, "internal error"))
		}
	}()
	handler(ctx, client, req)
}
