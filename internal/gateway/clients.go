package gateway

import (
	"sync"
	"time"

	"github.com/nextlevelbuilder/goclaw/pkg/protocol"
)

// Role distinguishes the two client kinds the Client Manager tracks: a human
// operator console versus an unattended node (another gateway, a headless
// automation peer).
type Role string

const (
	RoleOperator Role = "operator"
	RoleNode     Role = "node"
)

// ClientInfo is the registered identity of one connected client.
type ClientInfo struct {
	ID          string
	Role        Role
	DeviceID    string
	Capabilities map[string]interface{}
	SessionID   string
	ConnectedAt time.Time
}

// Sender is the narrow interface ClientManager needs to push frames to a
// connection — satisfied by *Client, swappable in tests.
type Sender interface {
	SendEvent(protocol.EventFrame)
	SendResponse(*protocol.ResponseFrame)
}

// ClientManager is C6: three maps keyed by client_id (clients, senders,
// sessions→[]client_id), single-writer-per-entry via one mutex. The
// teacher's Server carried only a flat map[string]*Client with a single
// global broadcast; this replaces that with role tracking and per-session
// fan-out.
type ClientManager struct {
	mu       sync.RWMutex
	clients  map[string]*ClientInfo
	senders  map[string]Sender
	sessions map[string][]string // session_id -> client_ids
}

// NewClientManager builds an empty manager.
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients:  make(map[string]*ClientInfo),
		senders:  make(map[string]Sender),
		sessions: make(map[string][]string),
	}
}

// Register adds a newly handshaken client under its assigned session.
func (m *ClientManager) Register(info ClientInfo, sender Sender) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info.ConnectedAt = time.Now()
	m.clients[info.ID] = &info
	m.senders[info.ID] = sender
	if info.SessionID != "" {
		m.sessions[info.SessionID] = append(m.sessions[info.SessionID], info.ID)
	}
}

// Unregister removes a client from every map, including its session's
// client list.
func (m *ClientManager) Unregister(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.clients[clientID]
	if !ok {
		return
	}
	delete(m.clients, clientID)
	delete(m.senders, clientID)
	if info.SessionID != "" {
		m.removeFromSessionLocked(info.SessionID, clientID)
	}
}

func (m *ClientManager) removeFromSessionLocked(sessionID, clientID string) {
	ids := m.sessions[sessionID]
	for i, id := range ids {
		if id == clientID {
			m.sessions[sessionID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(m.sessions[sessionID]) == 0 {
		delete(m.sessions, sessionID)
	}
}

// JoinSession moves clientID into sessionID, leaving any prior session.
func (m *ClientManager) JoinSession(clientID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.clients[clientID]
	if !ok {
		return
	}
	if info.SessionID != "" && info.SessionID != sessionID {
		m.removeFromSessionLocked(info.SessionID, clientID)
	}
	info.SessionID = sessionID
	m.sessions[sessionID] = append(m.sessions[sessionID], clientID)
}

// SendToClient pushes event to one client, returning false if it isn't
// registered.
func (m *ClientManager) SendToClient(clientID string, event protocol.EventFrame) bool {
	m.mu.RLock()
	sender, ok := m.senders[clientID]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	sender.SendEvent(event)
	return true
}

// BroadcastToSession pushes event to every client joined to sessionID.
func (m *ClientManager) BroadcastToSession(sessionID string, event protocol.EventFrame) {
	m.mu.RLock()
	ids := append([]string(nil), m.sessions[sessionID]...)
	m.mu.RUnlock()
	for _, id := range ids {
		m.SendToClient(id, event)
	}
}

// BroadcastAll pushes event to every registered client, regardless of
// session — used for global bus events (e.g. cron lifecycle) that aren't
// scoped to one conversation.
func (m *ClientManager) BroadcastAll(event protocol.EventFrame) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.senders))
	for id := range m.senders {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		m.SendToClient(id, event)
	}
}

// ListOperators returns every registered client with Role == RoleOperator.
func (m *ClientManager) ListOperators() []ClientInfo { return m.listByRole(RoleOperator) }

// ListNodes returns every registered client with Role == RoleNode.
func (m *ClientManager) ListNodes() []ClientInfo { return m.listByRole(RoleNode) }

func (m *ClientManager) listByRole(role Role) []ClientInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ClientInfo
	for _, info := range m.clients {
		if info.Role == role {
			out = append(out, *info)
		}
	}
	return out
}

// Count returns the number of registered clients, for /health.
func (m *ClientManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}
