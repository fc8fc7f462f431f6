package agentserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/nextlevelbuilder/goclaw/pkg/protocol"
)

// Client is a thin NDJSON client for a Server's Unix socket: it lets a
// process that doesn't own a worker.Worker (a gateway running as a
// separate binary from the agent daemon) delegate turn execution to one.
// Grounded on original_source/src/gateway/agent_conn.rs.
type Client struct {
	SocketPath  string
	DialTimeout time.Duration
}

// NewClient builds a Client for socketPath with a 5s default dial timeout.
func NewClient(socketPath string) *Client {
	return &Client{SocketPath: socketPath, DialTimeout: 5 * time.Second}
}

// IsAvailable reports whether the socket file exists, without dialing it —
// a cheap check before falling back to an in-process agent.Loop.
func (c *Client) IsAvailable() bool {
	_, err := os.Stat(c.SocketPath)
	return err == nil
}

// Ping dials the socket and waits for a pong, confirming the daemon is
// actually accepting connections (not just that the socket file exists).
func (c *Client) Ping(ctx context.Context) error {
	events, err := c.Send(ctx, protocol.AgentRequest{Method: protocol.AgentMethodPing})
	if err != nil {
		return err
	}
	evt, ok := <-events
	if !ok {
		return fmt.Errorf("agentserver: no response to ping")
	}
	if evt.Type != protocol.TurnEventPong {
		return fmt.Errorf("agentserver: unexpected ping response %q", evt.Type)
	}
	return nil
}

// Send dials the socket, writes req as one NDJSON line, and returns a
// channel of events read back until a terminal event (done, error, yield,
// awaiting_input, or the pong answering a ping) closes it. The connection is closed when the channel
// closes.
func (c *Client) Send(ctx context.Context, req protocol.AgentRequest) (<-chan protocol.AgentEvent, error) {
	dialCtx := ctx
	if c.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.DialTimeout)
		defer cancel()
	}
	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "unix", c.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("agentserver: dial: %w", err)
	}

	data, err := json.Marshal(req)
	if err != nil {
		conn.Close()
		return nil, err
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		conn.Close()
		return nil, fmt.Errorf("agentserver: write request: %w", err)
	}

	events := make(chan protocol.AgentEvent, 8)
	go func() {
		defer conn.Close()
		defer close(events)
		scanner := bufio.NewScanner(conn)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			var evt protocol.AgentEvent
			if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
				return
			}
			select {
			case events <- evt:
			case <-ctx.Done():
				return
			}
			switch evt.Type {
			case protocol.TurnEventDone, protocol.TurnEventError, protocol.TurnEventYield, protocol.TurnEventAwaitingInput, protocol.TurnEventPong:
				return
			}
		}
	}()
	return events, nil
}
