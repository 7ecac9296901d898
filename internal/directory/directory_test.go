package directory

import (
	"testing"

	"floatingtemple/internal/testutil"
)

type fakeConn struct{ closed bool }

func (f *fakeConn) Send([]byte) error { return nil }
func (f *fakeConn) Close() error      { f.closed = true; return nil }

func TestPeerIDSentinelsOrder(t *testing.T) {
	id := NewPeerID()
	if !Min.Less(id) {
		t.Errorf("Min should be less than a random peer id")
	}
	if !id.Less(Max) {
		t.Errorf("a random peer id should be less than Max")
	}
}

func TestPeerIDHalvesRoundTrip(t *testing.T) {
	id := NewPeerID()
	hi, lo := id.Uint64Halves()
	if got := PeerIDFromHalves(hi, lo); got != id {
		t.Errorf("round trip mismatch: got %s want %s", got, id)
	}
}

func TestDirectoryRegisterLookupRemove(t *testing.T) {
	d := New(testutil.NoopLogger{})
	id := NewPeerID()
	conn := &fakeConn{}

	if !d.Register(id, conn) {
		t.Fatalf("first registration should be accepted")
	}
	got, ok := d.Lookup(id)
	if !ok || got != conn {
		t.Fatalf("Lookup returned (%v, %v), want (%v, true)", got, ok, conn)
	}

	d.Remove(id)
	if _, ok := d.Lookup(id); ok {
		t.Errorf("peer should be gone after Remove")
	}
}

func TestDirectoryRegisterDuplicateRejected(t *testing.T) {
	d := New(testutil.NoopLogger{})
	id := NewPeerID()
	first := &fakeConn{}
	second := &fakeConn{}

	if !d.Register(id, first) {
		t.Fatalf("first registration should be accepted")
	}
	if d.Register(id, second) {
		t.Errorf("duplicate registration should be rejected")
	}
	got, _ := d.Lookup(id)
	if got != first {
		t.Errorf("the first connection should win the race")
	}
}

func TestDirectoryPeersSnapshot(t *testing.T) {
	d := New(testutil.NoopLogger{})
	ids := []PeerID{NewPeerID(), NewPeerID(), NewPeerID()}
	for _, id := range ids {
		d.Register(id, &fakeConn{})
	}
	snapshot := d.Peers()
	if len(snapshot) != len(ids) {
		t.Fatalf("got %d peers, want %d", len(snapshot), len(ids))
	}
}
