package protocol

import "encoding/json"

// ProtocolVersion is the wire-protocol version advertised in Hello/Welcome
// and the /health response.
const ProtocolVersion = 1

// EventFrame is a server→client WebSocket push: {"type":"event",...}.
type EventFrame struct {
	Type      string      `json:"type"`
	Event     string      `json:"event"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
}

// NewEvent builds an EventFrame for name/payload.
func NewEvent(name string, payload interface{}) *EventFrame {
	return &EventFrame{Type: "event", Event: name, Payload: payload}
}

// HelloFrame is the first frame a client sends after the WS upgrade.
// Role/DeviceID/Caps identify the client to C6's Client Manager: an
// "operator" is a human-facing console, a "node" is an unattended peer
// (another gateway, a headless automation).
type HelloFrame struct {
	Type            string                 `json:"type"` // "hello"
	ClientID        string                 `json:"client_id,omitempty"`
	Token           string                 `json:"token,omitempty"`
	Role            string                 `json:"role,omitempty"` // "operator" or "node"
	DeviceID        string                 `json:"device_id,omitempty"`
	Caps            map[string]interface{} `json:"caps,omitempty"`
	ProtocolVersion int                    `json:"protocol_version"`
}

// WelcomePolicy advertises session limits to a newly joined client.
type WelcomePolicy struct {
	Mode     string `json:"mode"`
	MaxTurns int    `json:"max_turns,omitempty"`
}

// WelcomeFrame is the server's reply to a valid HelloFrame.
type WelcomeFrame struct {
	Type            string        `json:"type"` // "welcome"
	ClientID        string        `json:"client_id"`
	SessionID       string        `json:"session_id"`
	Policy          WelcomePolicy `json:"policy"`
	ProtocolVersion int           `json:"protocol_version"`
}

// RequestFrame is a client→server RPC call. Params stays as raw JSON so
// each method handler unmarshals its own params shape directly.
type RequestFrame struct {
	Type   string          `json:"type"` // "req"
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ResponseFrame is the server's reply to a RequestFrame.
type ResponseFrame struct {
	Type   string      `json:"type"` // "res"
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  *RPCError   `json:"error,omitempty"`
}

// RPCError is a JSON-RPC-style error payload on a ResponseFrame.
type RPCError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stable RPC error codes used across method handlers.
const (
	ErrInvalidRequest = "invalid_request"
	ErrNotFound       = "not_found"
	ErrInternal       = "internal_error"
	ErrUnauthorized   = "unauthorized"
	ErrRateLimited    = "rate_limited"
	ErrMethodNotFound = "method_not_found"
)

// NewErrorResponse builds a ResponseFrame carrying an error.
func NewErrorResponse(id, code, message string) *ResponseFrame {
	return &ResponseFrame{Type: "res", ID: id, Error: &RPCError{Code: code, Message: message}}
}

// NewOKResponse builds a ResponseFrame carrying a successful result.
func NewOKResponse(id string, result interface{}) *ResponseFrame {
	return &ResponseFrame{Type: "res", ID: id, Result: result}
}
