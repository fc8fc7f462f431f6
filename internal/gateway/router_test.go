package gateway

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nextlevelbuilder/goclaw/pkg/protocol"
)

func TestDispatchUnknownMethodReturnsMethodNotFound(t *testing.T) {
	srv := &Server{rateLimiter: NewRateLimiter(0, 5)}
	srv.router = NewMethodRouter(srv)

	recorder := &recordingClient{}
	srv.router.Dispatch(context.Background(), recorder.asClient(), &protocol.RequestFrame{ID: "1", Method: "bogus.method"})

	resp := recorder.drain(t)
	if resp == nil || resp.Error == nil || resp.Error.Code != protocol.ErrMethodNotFound {
		t.Fatalf("expected method_not_found error, got %+v", resp)
	}
}

func TestDispatchRegisteredMethodInvokesHandler(t *testing.T) {
	srv := &Server{rateLimiter: NewRateLimiter(0, 5)}
	srv.router = NewMethodRouter(srv)

	var called bool
	srv.router.Register("ping", func(ctx context.Context, c *Client, req *protocol.RequestFrame) {
		called = true
		c.SendResponse(protocol.NewOKResponse(req.ID, "pong"))
	})

	recorder := &recordingClient{}
	srv.router.Dispatch(context.Background(), recorder.asClient(), &protocol.RequestFrame{ID: "1", Method: "ping"})

	if !called {
		t.Fatal("expected handler to be invoked")
	}
	resp := recorder.drain(t)
	if resp == nil || resp.Result != "pong" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestDispatchRecoversFromHandlerPanic(t *testing.T) {
	srv := &Server{rateLimiter: NewRateLimiter(0, 5)}
	srv.router = NewMethodRouter(srv)
	srv.router.Register("boom", func(ctx context.Context, c *Client, req *protocol.RequestFrame) {
		panic("kaboom")
	})

	recorder := &recordingClient{}
	srv.router.Dispatch(context.Background(), recorder.asClient(), &protocol.RequestFrame{ID: "1", Method: "boom"})

	resp := recorder.drain(t)
	if resp == nil || resp.Error == nil || resp.Error.Code != protocol.ErrInternal {
		t.Fatalf("expected internal_error after panic recovery, got %+v", resp)
	}
}

// recordingClient captures the response sent to a *Client without opening
// a real websocket connection: it reads the single buffered send once
// Dispatch returns, which is safe since every handler here sends at most
// one response synchronously before returning.
type recordingClient struct {
	c *Client
}

func (r *recordingClient) asClient() *Client {
	r.c = &Client{id: "test-client", send: make(chan []byte, 1), done: make(chan struct{})}
	return r.c
}

func (r *recordingClient) drain(t *testing.T) *protocol.ResponseFrame {
	t.Helper()
	select {
	case data := <-r.c.send:
		var resp protocol.ResponseFrame
		if err := json.Unmarshal(data, &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		return &resp
	default:
		return nil
	}
}
