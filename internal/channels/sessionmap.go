package channels

import (
	"sync"
	"time"
)

// staleSessionSweepInterval is how often stale session bindings are swept.
const staleSessionSweepInterval = 5 * time.Minute

// staleSessionTTL is how long a channel session may sit idle before the
// sweep drops it.
const staleSessionTTL = 30 * time.Minute

// ChannelSession maps one channel peer to the agent session it talks to.
type ChannelSession struct {
	Channel    string
	PeerID     string
	SessionKey string
	LastActive time.Time
}

// ChannelSessionMap tracks the live channel-peer-to-session bindings and
// periodically evicts ones that have gone idle past staleSessionTTL.
type ChannelSessionMap struct {
	mu       sync.Mutex
	sessions map[string]*ChannelSession // "channel:peer_id" -> session

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewChannelSessionMap builds an empty map.
func NewChannelSessionMap() *ChannelSessionMap {
	return &ChannelSessionMap{sessions: make(map[string]*ChannelSession), stopCh: make(chan struct{})}
}

// Touch records activity on channel/peerID, creating the binding to
// sessionKey if it doesn't exist yet.
func (m *ChannelSessionMap) Touch(channel, peerID, sessionKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := peerKey(channel, peerID)
	if s, ok := m.sessions[key]; ok {
		s.SessionKey = sessionKey
		s.LastActive = time.Now()
		return
	}
	m.sessions[key] = &ChannelSession{Channel: channel, PeerID: peerID, SessionKey: sessionKey, LastActive: time.Now()}
}

// Lookup returns the session key bound to channel/peerID, if any.
func (m *ChannelSessionMap) Lookup(channel, peerID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[peerKey(channel, peerID)]
	if !ok {
		return "", false
	}
	return s.SessionKey, true
}

// Remove drops the binding for channel/peerID.
func (m *ChannelSessionMap) Remove(channel, peerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, peerKey(channel, peerID))
}

// SweepStale evicts every session whose last activity is older than
// staleSessionTTL, returning the number removed.
func (m *ChannelSessionMap) SweepStale() int {
	cutoff := time.Now().Add(-staleSessionTTL)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, s := range m.sessions {
		if s.LastActive.Before(cutoff) {
			delete(m.sessions, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs SweepStale every staleSessionSweepInterval until Stop.
func (m *ChannelSessionMap) StartSweeper() {
	go func() {
		ticker := time.NewTicker(staleSessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.SweepStale()
			case <-m.stopCh:
				return
			}
		}
	}()
}

// Stop halts the background sweeper.
func (m *ChannelSessionMap) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}
