// Package store implements shared object identity and versioning across
// peers: named and anonymous objects, versioned and unversioned variants,
// and ownership of live local states (spec §4.6).
//
// Grounded on the teacher's types.Log/types.Storage/types.StateMachine
// trio (pkg/mcast/types/{data,state_machine,storage}.go), generalized
// from "one shared log" to "many named/anonymous shared objects".
package store

import (
	"crypto/sha1"
	"errors"
	"sync"

	"github.com/google/uuid"

	"floatingtemple/internal/bridge"
	"floatingtemple/internal/logging"
	"floatingtemple/internal/txid"
)

// ObjectID is the global identity of a shared object (spec §3 "Shared
// object"). Named objects derive it deterministically from a namespace
// uuid and their textual name so two peers creating the same name agree;
// anonymous objects get a fresh random id.
type ObjectID [16]byte

// ErrUnknownObject is returned by operations addressing an object id the
// store has never seen.
var ErrUnknownObject = errors.New("store: unknown object")

// namespace is the fixed namespace UUID used to derive named-object ids
// via uuid v5 (SHA-1), the same construction
// original_source/engine/uuid_util.cc uses for named objects.
var namespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

func namedObjectID(name string) ObjectID {
	return ObjectID(uuid.NewHash(sha1.New(), namespace, []byte(name), 5))
}

// Store owns every shared object live on this peer for the peer's
// lifetime (objects are never garbage-collected during a session, spec
// §3 "Lifecycle").
type Store struct {
	mu      sync.RWMutex
	byID    map[ObjectID]*object
	byRef   map[bridge.Ref]*object
	nextRef bridge.Ref

	log logging.Logger
}

// New creates an empty object store.
func New(log logging.Logger) *Store {
	return &Store{
		byID:  make(map[ObjectID]*object),
		byRef: make(map[bridge.Ref]*object),
		log:   log,
	}
}

// object is the store's bookkeeping for one shared object: its identity,
// variant, and either its committed version history (versioned) or its
// single live state (unversioned).
type object struct {
	id        ObjectID
	ref       bridge.Ref
	versioned bool

	// versioned-object fields
	versionsMu sync.RWMutex
	versions   []version
	workingMu  sync.Mutex
	working    map[txid.ID]*workingCopy

	// unversioned-object field: the interpreter is responsible for this
	// state's own thread safety (spec §4.6 "never forked").
	single bridge.LocalObject

	knownPeers map[string]struct{} // peers known to hold a copy, keyed by directory.PeerID.String()
}

// version is one committed snapshot of a versioned object, keyed by the
// transaction id that created it.
type version struct {
	tid   txid.ID
	state bridge.LocalObject
	// refs is the transitive closure of object references embedded in
	// state, captured from the serializer's last call over it, so the
	// store knows what to ship alongside this version (spec §4.6).
	refs []bridge.Ref
}

// workingCopy is a transaction's private fork of a versioned object,
// taken from the version visible at the transaction's start id.
type workingCopy struct {
	startTID txid.ID
	state    bridge.LocalObject
}

// CreateObject creates a new shared object, or returns the existing one
// if name already names a live object on this peer (spec §4.6:
// "if the id already exists the existing reference is returned and
// initial_state is discarded").
func (s *Store) CreateObject(initial bridge.LocalObject, name string, versioned bool) bridge.Ref {
	var id ObjectID
	anonymous := name == ""
	if !anonymous {
		id = namedObjectID(name)
	} else {
		id = ObjectID(uuid.New())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !anonymous {
		if existing, ok := s.byID[id]; ok {
			return existing.ref
		}
	}

	ref := s.nextRef
	s.nextRef++

	obj := &object{
		id:         id,
		ref:        ref,
		versioned:  versioned,
		working:    make(map[txid.ID]*workingCopy),
		knownPeers: make(map[string]struct{}),
	}
	if versioned {
		obj.versions = []version{{tid: txid.Min, state: initial}}
	} else {
		obj.single = initial
	}

	s.byID[id] = obj
	s.byRef[ref] = obj
	s.log.Debugf("store: created object %x (ref=%d versioned=%v)", id, ref, versioned)
	return ref
}

// GlobalID returns the object id ref names, for building outbound
// TransactionRecords — peer-local Refs are never portable across peers,
// only the global ObjectID is (spec §6 "ObjectVersion").
func (s *Store) GlobalID(ref bridge.Ref) (ObjectID, bool) {
	obj, ok := s.lookup(ref)
	if !ok {
		return ObjectID{}, false
	}
	return obj.id, true
}

// RefForObjectID resolves a global object id to this peer's local Ref,
// if the object is already known here.
func (s *Store) RefForObjectID(id ObjectID) (bridge.Ref, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.byID[id]
	if !ok {
		return 0, false
	}
	return obj.ref, true
}

// EnsureRemoteObject returns the local Ref for id, creating an empty
// versioned bookkeeping entry if this peer has never seen it before —
// used when applying a TransactionRecord for an object this peer only
// now learns about (spec §4.7 "On receiving a TransactionRecord").
func (s *Store) EnsureRemoteObject(id ObjectID) bridge.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	if obj, ok := s.byID[id]; ok {
		return obj.ref
	}
	ref := s.nextRef
	s.nextRef++
	obj := &object{
		id:         id,
		ref:        ref,
		versioned:  true,
		working:    make(map[txid.ID]*workingCopy),
		knownPeers: make(map[string]struct{}),
	}
	s.byID[id] = obj
	s.byRef[ref] = obj
	return ref
}

// lookup resolves a Ref to its bookkeeping object.
func (s *Store) lookup(ref bridge.Ref) (*object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.byRef[ref]
	return obj, ok
}

// ObjectsAreIdentical reports whether a and b name the same shared
// object — CreateObject(_, name) is idempotent by name, so two refs
// obtained for the same name must compare identical here (spec §8).
func (s *Store) ObjectsAreIdentical(a, b bridge.Ref) bool {
	return a == b
}

// IsVersioned reports whether ref names a versioned object.
func (s *Store) IsVersioned(ref bridge.Ref) (bool, bool) {
	obj, ok := s.lookup(ref)
	if !ok {
		return false, false
	}
	return obj.versioned, true
}

// UnversionedState returns the single live state of an unversioned
// object, for direct in-place invocation (spec §4.7 step 1).
func (s *Store) UnversionedState(ref bridge.Ref) (bridge.LocalObject, error) {
	obj, ok := s.lookup(ref)
	if !ok {
		return nil, ErrUnknownObject
	}
	if obj.versioned {
		return nil, errors.New("store: object is versioned")
	}
	return obj.single, nil
}

// GetVersion returns the version committed with the greatest id <= at.
func (s *Store) GetVersion(ref bridge.Ref, at txid.ID) (bridge.LocalObject, []bridge.Ref, error) {
	obj, ok := s.lookup(ref)
	if !ok {
		return nil, nil, ErrUnknownObject
	}
	obj.versionsMu.RLock()
	defer obj.versionsMu.RUnlock()
	v, err := latestAt(obj.versions, at)
	if err != nil {
		return nil, nil, err
	}
	return v.state, v.refs, nil
}

func latestAt(versions []version, at txid.ID) (version, error) {
	best := -1
	for i, v := range versions {
		if v.tid.Compare(at) > 0 {
			continue // committed after the point we're looking at; not visible
		}
		if best == -1 || versions[best].tid.Less(v.tid) {
			best = i
		}
	}
	if best == -1 {
		return version{}, errors.New("store: no committed version visible at given id")
	}
	return versions[best], nil
}

// Fork clones the version visible to a transaction starting at fromTID,
// and remembers the fork as that transaction's working copy. Calling
// Fork twice for the same (ref, tid) returns the same working copy
// (look-up-or-fork, per spec §4.7 step 2).
func (s *Store) Fork(ref bridge.Ref, fromTID txid.ID) (bridge.LocalObject, error) {
	obj, ok := s.lookup(ref)
	if !ok {
		return nil, ErrUnknownObject
	}

	obj.workingMu.Lock()
	defer obj.workingMu.Unlock()
	if wc, ok := obj.working[fromTID]; ok {
		return wc.state, nil
	}

	obj.versionsMu.RLock()
	v, err := latestAt(obj.versions, fromTID)
	obj.versionsMu.RUnlock()
	if err != nil {
		return nil, err
	}

	clone := v.state.Clone()
	obj.working[fromTID] = &workingCopy{startTID: fromTID, state: clone}
	return clone, nil
}

// WorkingCopy returns the working copy already forked for (ref, tid), if
// any, without creating one.
func (s *Store) WorkingCopy(ref bridge.Ref, tid txid.ID) (bridge.LocalObject, bool) {
	obj, ok := s.lookup(ref)
	if !ok {
		return nil, false
	}
	obj.workingMu.Lock()
	defer obj.workingMu.Unlock()
	wc, ok := obj.working[tid]
	if !ok {
		return nil, false
	}
	return wc.state, true
}

// Commit installs the working copy forked for tid as ref's new head,
// keyed by tid. The caller (the transaction engine) is responsible for
// conflict detection before calling Commit; the store's only invariant
// is that the sequence of committed version ids stays strictly
// increasing (spec §4.6).
func (s *Store) Commit(ref bridge.Ref, tid txid.ID, refs []bridge.Ref) error {
	obj, ok := s.lookup(ref)
	if !ok {
		return ErrUnknownObject
	}

	obj.workingMu.Lock()
	wc, ok := obj.working[tid]
	if ok {
		delete(obj.working, tid)
	}
	obj.workingMu.Unlock()
	if !ok {
		return errors.New("store: no working copy to commit for this transaction")
	}

	obj.versionsMu.Lock()
	defer obj.versionsMu.Unlock()
	if len(obj.versions) > 0 && !obj.versions[len(obj.versions)-1].tid.Less(tid) {
		return errors.New("store: committed version ids must be strictly increasing")
	}
	obj.versions = append(obj.versions, version{tid: tid, state: wc.state, refs: refs})
	return nil
}

// InstallRemoteVersion installs a version received from a remote peer
// directly, without going through Fork/Commit — used by the engine when
// applying a TransactionRecord (spec §4.7 "On receiving a
// TransactionRecord"). Unlike Commit, it tolerates insertion out of
// strict append order, since reconciliation may need to splice a
// lower-id version back in after a rewrite.
func (s *Store) InstallRemoteVersion(ref bridge.Ref, tid txid.ID, state bridge.LocalObject, refs []bridge.Ref) {
	obj, ok := s.lookup(ref)
	if !ok {
		return
	}
	obj.versionsMu.Lock()
	defer obj.versionsMu.Unlock()
	insertAt := len(obj.versions)
	for i, v := range obj.versions {
		if tid.Equal(v.tid) {
			obj.versions[i] = version{tid: tid, state: state, refs: refs}
			return
		}
		if tid.Less(v.tid) {
			insertAt = i
			break
		}
	}
	obj.versions = append(obj.versions, version{})
	copy(obj.versions[insertAt+1:], obj.versions[insertAt:])
	obj.versions[insertAt] = version{tid: tid, state: state, refs: refs}
}

// VersionsAfter returns every version committed strictly after after, in
// commit order — used by conflict detection at commit time (spec §4.7
// step 4: a transaction conflicts if anything committed to one of its
// writes since the snapshot it started from).
func (s *Store) VersionsAfter(ref bridge.Ref, after txid.ID) []txid.ID {
	obj, ok := s.lookup(ref)
	if !ok {
		return nil
	}
	obj.versionsMu.RLock()
	defer obj.versionsMu.RUnlock()
	var ids []txid.ID
	for _, v := range obj.versions {
		if after.Less(v.tid) {
			ids = append(ids, v.tid)
		}
	}
	return ids
}

// RemoveVersion deletes the version committed at tid for ref, if one
// exists. Reconciliation uses this to retract a locally-committed
// version before replaying the transaction that produced it on top of
// an adopted remote version — otherwise the retracted version would
// still shadow, or spuriously conflict with, the replay (spec §4.7
// "otherwise" branch).
func (s *Store) RemoveVersion(ref bridge.Ref, tid txid.ID) {
	obj, ok := s.lookup(ref)
	if !ok {
		return
	}
	obj.versionsMu.Lock()
	defer obj.versionsMu.Unlock()
	for i, v := range obj.versions {
		if v.tid.Equal(tid) {
			obj.versions = append(obj.versions[:i], obj.versions[i+1:]...)
			return
		}
	}
}

// Abort drops the working copy forked for tid, discarding its effects
// (spec §4.7 "rolls the working copies back by discarding them").
func (s *Store) Abort(ref bridge.Ref, tid txid.ID) {
	obj, ok := s.lookup(ref)
	if !ok {
		return
	}
	obj.workingMu.Lock()
	delete(obj.working, tid)
	obj.workingMu.Unlock()
}

// RecordKnownPeer notes that peerID is believed to hold a copy of ref,
// for routing invalidations/propagation (spec §3 "Shared object").
func (s *Store) RecordKnownPeer(ref bridge.Ref, peerID string) {
	obj, ok := s.lookup(ref)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	obj.knownPeers[peerID] = struct{}{}
}

// KnownPeers returns the peers believed to hold a copy of ref.
func (s *Store) KnownPeers(ref bridge.Ref) []string {
	obj, ok := s.lookup(ref)
	if !ok {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(obj.knownPeers))
	for p := range obj.knownPeers {
		out = append(out, p)
	}
	return out
}
