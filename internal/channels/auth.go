// auth.go implements the C9 channel authentication subsystem: pairing codes
// gate a new channel peer until an operator approves it, after which the
// peer is durably authorized. Grounded on
// original_source/src/gateway/channels/auth.rs.
package channels

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuthStatus is the lifecycle state of one channel peer.
type AuthStatus string

const (
	AuthPending    AuthStatus = "pending"
	AuthAuthorized AuthStatus = "authorized"
	AuthRevoked    AuthStatus = "revoked"
)

// pairingCodeTTL is how long an unclaimed pairing code stays valid.
const pairingCodeTTL = 10 * time.Minute

// pairingCharset excludes characters easily confused with each other when
// read aloud or typed (I, O, 0, 1).
const pairingCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// PendingPairing is an outstanding pairing request awaiting operator approval.
type PendingPairing struct {
	Code      string    `json:"code"`
	Channel   string    `json:"channel"`
	PeerID    string    `json:"peer_id"`
	PeerName  string    `json:"peer_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (p PendingPairing) expired(now time.Time) bool {
	return now.Sub(p.CreatedAt) > pairingCodeTTL
}

// AuthRecord is one durably authorized (or revoked) channel peer.
type AuthRecord struct {
	Channel      string     `json:"channel"`
	PeerID       string     `json:"peer_id"`
	PeerName     string     `json:"peer_name,omitempty"`
	Status       AuthStatus `json:"status"`
	AuthorizedAt time.Time  `json:"authorized_at,omitempty"`
	RevokedAt    time.Time  `json:"revoked_at,omitempty"`
}

func peerKey(channel, peerID string) string { return channel + ":" + peerID }

// authFile is the on-disk shape persisted under $DATA/channel_auth.json.
type authFile struct {
	Records []AuthRecord `json:"records"`
}

// ChannelAuthManager gates channel peers behind pairing-code approval and
// persists authorized/revoked state to disk.
type ChannelAuthManager struct {
	path string

	mu         sync.Mutex
	pending    map[string]PendingPairing // code -> pairing
	authorized map[string]AuthRecord     // "channel:peer_id" -> record
}

// NewChannelAuthManager loads state from path (created empty if absent).
func NewChannelAuthManager(path string) (*ChannelAuthManager, error) {
	m := &ChannelAuthManager{
		path:       path,
		pending:    make(map[string]PendingPairing),
		authorized: make(map[string]AuthRecord),
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ChannelAuthManager) load() error {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("channels: read auth file: %w", err)
	}
	var f authFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("channels: parse auth file: %w", err)
	}
	for _, rec := range f.Records {
		m.authorized[peerKey(rec.Channel, rec.PeerID)] = rec
	}
	return nil
}

func (m *ChannelAuthManager) save() error {
	f := authFile{Records: make([]AuthRecord, 0, len(m.authorized))}
	for _, rec := range m.authorized {
		f.Records = append(f.Records, rec)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, m.path)
}

func generatePairingCode(n int) (string, error) {
	buf := make([]byte, n)
	out := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		out[i] = pairingCharset[int(b)%len(pairingCharset)]
	}
	return string(out), nil
}

// Status reports the current auth status for a channel peer.
func (m *ChannelAuthManager) Status(channel, peerID string) AuthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.authorized[peerKey(channel, peerID)]; ok {
		return rec.Status
	}
	return AuthPending
}

// RequestPairing issues a fresh 6-character pairing code for an unauthorized
// peer, valid for pairingCodeTTL.
func (m *ChannelAuthManager) RequestPairing(channel, peerID, peerName string) (PendingPairing, error) {
	code, err := generatePairingCode(6)
	if err != nil {
		return PendingPairing{}, err
	}
	p := PendingPairing{Code: code, Channel: channel, PeerID: peerID, PeerName: peerName, CreatedAt: time.Now()}

	m.mu.Lock()
	m.pending[code] = p
	m.mu.Unlock()
	return p, nil
}

// ApprovePairing promotes the pairing matching code to an authorized
// record, persisting it to disk. Returns an error if the code is unknown
// or has expired.
func (m *ChannelAuthManager) ApprovePairing(code string) (AuthRecord, error) {
	m.mu.Lock()
	p, ok := m.pending[code]
	if ok {
		delete(m.pending, code)
	}
	if !ok {
		m.mu.Unlock()
		return AuthRecord{}, errors.New("channels: unknown pairing code")
	}
	if p.expired(time.Now()) {
		m.mu.Unlock()
		return AuthRecord{}, errors.New("channels: pairing code expired")
	}

	rec := AuthRecord{Channel: p.Channel, PeerID: p.PeerID, PeerName: p.PeerName, Status: AuthAuthorized, AuthorizedAt: time.Now()}
	m.authorized[peerKey(p.Channel, p.PeerID)] = rec
	err := m.save()
	m.mu.Unlock()
	return rec, err
}

// Revoke marks a previously authorized peer revoked.
func (m *ChannelAuthManager) Revoke(channel, peerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := peerKey(channel, peerID)
	rec, ok := m.authorized[key]
	if !ok {
		return errors.New("channels: peer not authorized")
	}
	rec.Status = AuthRevoked
	rec.RevokedAt = time.Now()
	m.authorized[key] = rec
	return m.save()
}

// List returns every pending pairing and authorized record, for admin UIs.
func (m *ChannelAuthManager) List() (pending []PendingPairing, authorized []AuthRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pending {
		pending = append(pending, p)
	}
	for _, rec := range m.authorized {
		authorized = append(authorized, rec)
	}
	return pending, authorized
}

// CleanupExpired drops pending pairings whose TTL has elapsed. Returns the
// number removed.
func (m *ChannelAuthManager) CleanupExpired() int {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for code, p := range m.pending {
		if p.expired(now) {
			delete(m.pending, code)
			removed++
		}
	}
	return removed
}
