package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/goclaw/pkg/protocol"
)

const (
	writeTimeout  = 10 * time.Second
	pongWait      = 60 * time.Second
	pingInterval  = 30 * time.Second
	sendQueueSize = 64
)

// Client wraps one WebSocket connection after a completed Hello/Welcome
// handshake: a read loop dispatching frames to the method router, and a
// single writer goroutine serializing concurrent SendEvent/SendResponse
// calls onto the connection.
type Client struct {
	id        string
	role      Role
	deviceID  string
	caps      map[string]interface{}
	sessionID string

	conn   *websocket.Conn
	server *Server

	send      chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

// NewClient wraps conn for srv, generating a fresh client id.
func NewClient(conn *websocket.Conn, srv *Server) *Client {
	return &Client{
		id:     uuid.NewString(),
		conn:   conn,
		server: srv,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// helloTimeout bounds how long the server waits for the first hello frame:
// a 10-second handshake deadline.
const helloTimeout = 10 * time.Second

// handshake performs the Hello/Welcome exchange: it reads Hello{role,
// device_id, caps} within helloTimeout, assigns a session_id, and replies
// Welcome{session_id, policy}. Returns false if the client never sent a
// valid hello, presented the wrong token, or timed out.
func (c *Client) handshake(expectedToken string) bool {
	c.conn.SetReadDeadline(time.Now().Add(helloTimeout))
	var hello protocol.HelloFrame
	if err := c.conn.ReadJSON(&hello); err != nil {
		slog.Warn("gateway: hello read failed", "error", err)
		return false
	}
	if hello.Type != "hello" {
		slog.Warn("gateway: expected hello frame", "got", hello.Type)
		return false
	}
	if expectedToken != "" && hello.Token != expectedToken {
		slog.Warn("gateway: hello token mismatch", "client", hello.ClientID)
		return false
	}
	if hello.ClientID != "" {
		c.id = hello.ClientID
	}
	c.role = RoleNode
	if hello.Role == string(RoleOperator) {
		c.role = RoleOperator
	}
	c.deviceID = hello.DeviceID
	c.caps = hello.Caps
	c.sessionID = uuid.NewString()
	c.conn.SetReadDeadline(time.Time{})

	welcome := protocol.WelcomeFrame{
		Type:            "welcome",
		ClientID:        c.id,
		SessionID:       c.sessionID,
		Policy:          protocol.WelcomePolicy{Mode: "standard", MaxTurns: 0},
		ProtocolVersion: protocol.ProtocolVersion,
	}
	data, _ := json.Marshal(welcome)
	return c.conn.WriteMessage(websocket.TextMessage, data) == nil
}

// Run services the connection until it closes or ctx is cancelled: a
// writer goroutine drains c.send, and the calling goroutine reads frames
// and dispatches them through the server's method router.
func (c *Client) Run(ctx context.Context) {
	go c.writeLoop()

	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var req protocol.RequestFrame
		if err := json.Unmarshal(data, &req); err != nil {
			c.SendResponse(protocol.NewErrorResponse("", protocol.ErrInvalidRequest, "malformed frame"))
			continue
		}
		if req.Type != "req" {
			continue
		}
		c.server.router.Dispatch(ctx, c, &req)
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEvent pushes an event frame to this client, dropping it if the send
// queue is full rather than blocking the writer goroutine indefinitely.
func (c *Client) SendEvent(event protocol.EventFrame) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	c.enqueue(data)
}

// SendResponse pushes an RPC response frame to this client.
func (c *Client) SendResponse(resp *protocol.ResponseFrame) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		slog.Warn("gateway: client send queue full, dropping frame", "client", c.id)
	}
}

// Close shuts the connection down and stops the writer goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
