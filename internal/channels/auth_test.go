package channels

import (
	"path/filepath"
	"testing"
)

func TestRequestAndApprovePairingPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	m, err := NewChannelAuthManager(path)
	if err != nil {
		t.Fatal(err)
	}

	p, err := m.RequestPairing("telegram", "peer-1", "Alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Code) != 6 {
		t.Fatalf("expected 6-char code, got %q", p.Code)
	}
	for _, c := range p.Code {
		if c == 'I' || c == 'O' || c == '0' || c == '1' {
			t.Fatalf("code %q contains excluded character", p.Code)
		}
	}

	if m.Status("telegram", "peer-1") != AuthPending {
		t.Fatal("expected pending status before approval")
	}

	rec, err := m.ApprovePairing(p.Code)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != AuthAuthorized {
		t.Fatalf("expected authorized record, got %+v", rec)
	}

	reopened, err := NewChannelAuthManager(path)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Status("telegram", "peer-1") != AuthAuthorized {
		t.Fatal("expected authorization to survive reload")
	}
}

func TestApproveUnknownCodeFails(t *testing.T) {
	m, _ := NewChannelAuthManager(filepath.Join(t.TempDir(), "auth.json"))
	if _, err := m.ApprovePairing("NOPE12"); err == nil {
		t.Fatal("expected error for unknown code")
	}
}

func TestRevokeAuthorizedPeer(t *testing.T) {
	m, _ := NewChannelAuthManager(filepath.Join(t.TempDir(), "auth.json"))
	p, _ := m.RequestPairing("discord", "peer-2", "")
	m.ApprovePairing(p.Code)

	if err := m.Revoke("discord", "peer-2"); err != nil {
		t.Fatal(err)
	}
	if m.Status("discord", "peer-2") != AuthRevoked {
		t.Fatal("expected revoked status")
	}
}
