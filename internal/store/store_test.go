package store

import (
	"testing"

	"floatingtemple/internal/bridge"
	"floatingtemple/internal/codec"
	"floatingtemple/internal/testutil"
	"floatingtemple/internal/txid"
)

// counter is a trivial bridge.LocalObject used to exercise the store
// without any real interpreter wired in.
type counter struct {
	n int64
}

func (c *counter) Clone() bridge.LocalObject { return &counter{n: c.n} }

func (c *counter) Serialize(ctx *codec.SerializationContext) ([]byte, error) {
	return []byte{byte(c.n)}, nil
}

func (c *counter) InvokeMethod(method string, params []bridge.Value) (bridge.Value, error) {
	switch method {
	case "increment":
		c.n++
		return bridge.Int64(c.n, 0), nil
	case "get":
		return bridge.Int64(c.n, 0), nil
	}
	return bridge.Empty, nil
}

func (c *counter) Dump() string { return "counter" }

func TestCreateObjectNamedIsIdempotent(t *testing.T) {
	s := New(testutil.NoopLogger{})
	ref1 := s.CreateObject(&counter{}, "shared-counter", true)
	ref2 := s.CreateObject(&counter{n: 99}, "shared-counter", true)
	if !s.ObjectsAreIdentical(ref1, ref2) {
		t.Fatalf("creating the same name twice should return identical refs, got %d and %d", ref1, ref2)
	}
}

func TestCreateObjectAnonymousIsUnique(t *testing.T) {
	s := New(testutil.NoopLogger{})
	ref1 := s.CreateObject(&counter{}, "", true)
	ref2 := s.CreateObject(&counter{}, "", true)
	if s.ObjectsAreIdentical(ref1, ref2) {
		t.Fatalf("anonymous objects should never collide")
	}
}

func TestForkCommitVisibility(t *testing.T) {
	s := New(testutil.NoopLogger{})
	ref := s.CreateObject(&counter{}, "ctr", true)

	tid := txid.ID{A: 1, B: 0, C: 1}
	state, err := s.Fork(ref, txid.Min)
	if err != nil {
		t.Fatalf("Fork failed: %v", err)
	}
	c := state.(*counter)
	if _, err := c.InvokeMethod("increment", nil); err != nil {
		t.Fatalf("InvokeMethod failed: %v", err)
	}

	if err := s.Commit(ref, tid, nil); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	head, _, err := s.GetVersion(ref, txid.Max)
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}
	if got := head.(*counter).n; got != 1 {
		t.Errorf("committed head has n=%d, want 1", got)
	}

	// The version visible strictly before the commit should be unaffected.
	before, _, err := s.GetVersion(ref, txid.Min)
	if err != nil {
		t.Fatalf("GetVersion(Min) failed: %v", err)
	}
	if got := before.(*counter).n; got != 0 {
		t.Errorf("version at Min has n=%d, want 0", got)
	}
}

func TestForkIsIdempotentPerTransaction(t *testing.T) {
	s := New(testutil.NoopLogger{})
	ref := s.CreateObject(&counter{}, "ctr", true)

	tid := txid.ID{A: 1, B: 0, C: 1}
	first, err := s.Fork(ref, tid)
	if err != nil {
		t.Fatalf("Fork failed: %v", err)
	}
	first.(*counter).n = 42

	second, err := s.Fork(ref, tid)
	if err != nil {
		t.Fatalf("second Fork failed: %v", err)
	}
	if second.(*counter).n != 42 {
		t.Errorf("second Fork for the same transaction should return the same working copy, got n=%d", second.(*counter).n)
	}
}

func TestCommitRejectsNonIncreasingID(t *testing.T) {
	s := New(testutil.NoopLogger{})
	ref := s.CreateObject(&counter{}, "ctr", true)

	tid := txid.ID{A: 1, B: 0, C: 1}
	if _, err := s.Fork(ref, txid.Min); err != nil {
		t.Fatalf("Fork failed: %v", err)
	}
	if err := s.Commit(ref, tid, nil); err != nil {
		t.Fatalf("first Commit failed: %v", err)
	}

	if _, err := s.Fork(ref, txid.Min); err != nil {
		t.Fatalf("second Fork failed: %v", err)
	}
	if err := s.Commit(ref, tid, nil); err == nil {
		t.Errorf("committing a non-increasing id should fail")
	}
}

func TestAbortDiscardsWorkingCopy(t *testing.T) {
	s := New(testutil.NoopLogger{})
	ref := s.CreateObject(&counter{}, "ctr", true)

	tid := txid.ID{A: 1, B: 0, C: 1}
	state, err := s.Fork(ref, txid.Min)
	if err != nil {
		t.Fatalf("Fork failed: %v", err)
	}
	state.(*counter).n = 7
	s.Abort(ref, tid)

	if err := s.Commit(ref, tid, nil); err == nil {
		t.Errorf("committing after Abort should fail, there is no working copy left")
	}
	if _, ok := s.WorkingCopy(ref, tid); ok {
		t.Errorf("working copy should be gone after Abort")
	}
}

func TestUnversionedObjectHasNoWorkingCopies(t *testing.T) {
	s := New(testutil.NoopLogger{})
	ref := s.CreateObject(&counter{}, "singleton", false)

	state, err := s.UnversionedState(ref)
	if err != nil {
		t.Fatalf("UnversionedState failed: %v", err)
	}
	if _, err := state.InvokeMethod("increment", nil); err != nil {
		t.Fatalf("InvokeMethod failed: %v", err)
	}

	again, err := s.UnversionedState(ref)
	if err != nil {
		t.Fatalf("UnversionedState failed: %v", err)
	}
	if got := again.(*counter).n; got != 1 {
		t.Errorf("unversioned state should mutate in place, got n=%d", got)
	}

	if _, err := s.Fork(ref, txid.Min); err == nil {
		t.Errorf("Fork on an unversioned object should not succeed via the versioned path")
	}
}

func TestInstallRemoteVersionOutOfOrder(t *testing.T) {
	s := New(testutil.NoopLogger{})
	ref := s.CreateObject(&counter{}, "ctr", true)

	late := txid.ID{A: 1, B: 0, C: 3}
	s.InstallRemoteVersion(ref, late, &counter{n: 3}, nil)

	early := txid.ID{A: 1, B: 0, C: 2}
	s.InstallRemoteVersion(ref, early, &counter{n: 2}, nil)

	head, _, err := s.GetVersion(ref, txid.Max)
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}
	if got := head.(*counter).n; got != 3 {
		t.Errorf("head after out-of-order install should be the latest id's state, got n=%d", got)
	}

	after := s.VersionsAfter(ref, txid.Min)
	if len(after) != 2 || !after[0].Less(after[1]) {
		t.Errorf("VersionsAfter should return ids in increasing order, got %v", after)
	}
}

func TestKnownPeersTracking(t *testing.T) {
	s := New(testutil.NoopLogger{})
	ref := s.CreateObject(&counter{}, "ctr", true)

	s.RecordKnownPeer(ref, "peer-a")
	s.RecordKnownPeer(ref, "peer-b")
	s.RecordKnownPeer(ref, "peer-a")

	peers := s.KnownPeers(ref)
	if len(peers) != 2 {
		t.Errorf("got %d known peers, want 2 (duplicates should collapse): %v", len(peers), peers)
	}
}
