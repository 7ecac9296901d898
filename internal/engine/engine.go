// Package engine implements the transaction engine (spec §4.7): the
// per-thread transaction stack, conflict detection, the return-false
// protocol, and cross-peer propagation of committed transactions.
//
// Grounded on the teacher's core/peer.go (Peer.process,
// finishMessageProcessing, conflict-then-retry shape) and
// core/deliver.go (Deliver.Commit), generalized from a single deliver
// queue with a conflict relationship over fixed addresses to the full
// per-thread transaction stack, method-call log, and remote propagation
// spec §4.7 describes.
package engine

import (
	"errors"
	"sync"

	"floatingtemple/internal/bridge"
	"floatingtemple/internal/codec"
	"floatingtemple/internal/directory"
	"floatingtemple/internal/logging"
	"floatingtemple/internal/proto"
	"floatingtemple/internal/store"
	"floatingtemple/internal/txid"
)

// ErrConflict is the one recoverable error condition (spec §7): a
// transaction's write set intersected with a transaction that committed
// after it started. Thread methods never return this directly — they
// translate it to the return-false protocol — but it is exported so an
// orchestrator-level retry loop can distinguish it from a programmer
// error if it ever does see one escape.
var ErrConflict = errors.New("engine: conflict")

// OutboundSink is how the engine hands a committed transaction's record
// to the network layer for delivery to a specific peer. The orchestrator
// supplies the real implementation (backed by internal/netio); tests can
// supply an in-memory stub.
type OutboundSink interface {
	Send(to directory.PeerID, rec *proto.TransactionRecord) error
}

// Engine composes the object store, the peer directory, and the
// transaction-id clock into the full per-peer transaction engine.
type Engine struct {
	log    logging.Logger
	store  *store.Store
	dir    *directory.Directory
	clock  *txid.Clock
	selfID directory.PeerID
	out    OutboundSink

	lastCommittedMu sync.Mutex
	lastCommitted   txid.ID

	outboxMu sync.Mutex
	outbox   map[directory.PeerID][]*proto.TransactionRecord

	// historyMu guards history: every outermost transaction this peer has
	// committed locally, kept so ApplyRemote can replay one on top of a
	// rewritten base (spec §4.7 reconciliation). Ordered by commit time,
	// which is also tid order since a single Clock only moves forward.
	historyMu sync.Mutex
	history   []*committedTxn

	interpMu sync.RWMutex
	interp   bridge.Interpreter
}

// SetInterpreter registers the embedded interpreter the engine uses to
// reconstruct objects received from remote peers (spec §4.7 "apply a
// TransactionRecord"). Called once by the orchestrator during peer
// startup.
func (e *Engine) SetInterpreter(interp bridge.Interpreter) {
	e.interpMu.Lock()
	e.interp = interp
	e.interpMu.Unlock()
}

func (e *Engine) interpreter() bridge.Interpreter {
	e.interpMu.RLock()
	defer e.interpMu.RUnlock()
	return e.interp
}

// New creates an Engine for one peer. The high 64 bits of selfID seed
// the transaction-id clock's B component so concurrently-committing peers
// rarely collide on (A, B) and, when they do, the peer id breaks the tie
// deterministically (spec §4.7 "the peer id being encoded in the id ...
// breaks ties").
func New(log logging.Logger, st *store.Store, dir *directory.Directory, selfID directory.PeerID, out OutboundSink) *Engine {
	hi, _ := selfID.Uint64Halves()
	return &Engine{
		log:    log,
		store:  st,
		dir:    dir,
		clock:  txid.NewClock(hi),
		selfID: selfID,
		out:    out,
		outbox: make(map[directory.PeerID][]*proto.TransactionRecord),
	}
}

// NewThread creates a fresh per-thread handle. One Thread must be used
// by exactly one interpreter thread at a time (spec §4.8 "a scoped
// handle"); the orchestrator binds it to the calling goroutine via
// BindThread so nested interpreter callbacks can recover it with
// CurrentThread.
func (e *Engine) NewThread() *Thread {
	return &Thread{eng: e}
}

// Snapshot returns this peer's current commit point — the transaction id
// visible to a brand new transaction started right now. Exported for the
// orchestrator, which needs it to read a just-adopted object's state
// without going through a Thread.
func (e *Engine) Snapshot() txid.ID {
	return e.snapshotPoint()
}

func (e *Engine) snapshotPoint() txid.ID {
	e.lastCommittedMu.Lock()
	defer e.lastCommittedMu.Unlock()
	return e.lastCommitted
}

func (e *Engine) advanceCommitPoint(id txid.ID) {
	e.lastCommittedMu.Lock()
	defer e.lastCommittedMu.Unlock()
	if e.lastCommitted.Less(id) {
		e.lastCommitted = id
	}
}

// hasConflict reports whether any transaction committed at this peer
// after startID touched ref — spec §4.7 "Conflict detection".
func (e *Engine) hasConflict(ref bridge.Ref, startID txid.ID) bool {
	return len(e.store.VersionsAfter(ref, startID)) > 0
}

// doCommit performs the outermost-commit algorithm of spec §4.7: check
// every written ref for a conflict, and if none exists, assign a fresh
// id, commit every working copy, and fan the transaction out to every
// peer known to hold a copy of a touched object.
func (e *Engine) doCommit(t *txn) error {
	for ref := range t.writes {
		if e.hasConflict(ref, t.startID) {
			return ErrConflict
		}
	}

	tid := e.clock.Tick()
	t.id = tid

	writes := make([]proto.ObjectVersion, 0, len(t.writes))
	peerSet := make(map[directory.PeerID]struct{})

	for ref := range t.writes {
		state, ok := e.store.WorkingCopy(ref, t.startID)
		if !ok {
			// Written but never forked under this snapshot: a
			// programmer error in the interpreter bridge, not a
			// conflict — fail fast per spec §7.
			e.log.Fatalf("engine: commit found no working copy for written ref %d", ref)
		}

		ctx := codec.NewSerializationContext()
		data, err := state.Serialize(ctx)
		if err != nil {
			e.log.Fatalf("engine: serialize failed for ref %d: %v", ref, err)
		}
		refs := ctx.Refs()

		globalID, ok := e.store.GlobalID(ref)
		if !ok {
			e.log.Fatalf("engine: committed ref %d has no global id", ref)
		}
		refIDs := make([][16]byte, 0, len(refs))
		for _, r := range refs {
			gid, ok := e.store.GlobalID(r)
			if !ok {
				e.log.Fatalf("engine: serialized reference %d has no global id", r)
			}
			refIDs = append(refIDs, [16]byte(gid))
		}

		if err := e.store.Commit(ref, tid, refs); err != nil {
			e.log.Fatalf("engine: store commit failed for ref %d: %v", ref, err)
		}

		writes = append(writes, proto.ObjectVersion{
			ObjectID: [16]byte(globalID),
			Data:     data,
			RefIDs:   refIDs,
		})

		for _, p := range e.store.KnownPeers(ref) {
			id, err := directory.ParsePeerIDString(p)
			if err == nil {
				peerSet[id] = struct{}{}
			}
		}
	}

	e.advanceCommitPoint(tid)
	t.status = txnCommitted

	if len(writes) == 0 {
		return nil
	}

	e.historyMu.Lock()
	e.history = append(e.history, &committedTxn{
		tid:    tid,
		writes: t.writes,
		calls:  append([]methodCall(nil), t.calls...),
	})
	e.historyMu.Unlock()

	rec := &proto.TransactionRecord{TID: tid, PeerID: e.selfID, Writes: writes}
	for peerID := range peerSet {
		e.enqueueOutbound(peerID, rec)
	}
	return nil
}

// RunTransaction drives fn inside a fresh Thread bound to the calling
// goroutine, retrying the whole transaction on conflict — the "retry is
// performed by re-driving the enclosing CallMethod" guarantee spec §4.7
// assigns to whoever owns the transaction boundary. fn must return
// ok == false exactly when a nested BeginTransaction/EndTransaction/
// CallMethod returned false, so RunTransaction knows to retry rather
// than propagate a result computed against rolled-back state.
func (e *Engine) RunTransaction(fn func(th *Thread) (bridge.Value, bool)) bridge.Value {
	th := e.NewThread()
	release := BindThread(th)
	defer release()

	for {
		if !th.BeginTransaction() {
			continue
		}
		result, ok := fn(th)
		if !ok {
			// Discard this attempt's transaction so the retry opens a
			// fresh outermost one instead of nesting inside it.
			top := th.stack[len(th.stack)-1]
			th.stack = th.stack[:len(th.stack)-1]
			for ref := range top.writes {
				e.store.Abort(ref, top.startID)
			}
			continue
		}
		if !th.EndTransaction() {
			continue
		}
		return result
	}
}

// enqueueOutbound hands rec to the outbound sink, falling back to an
// in-memory retry queue on failure (spec §4.7 "Failure semantics": the
// peer transparently retries delivery from an in-memory outbox until
// the connection is restored or the peer is shut down; not durable
// across restarts, an explicit non-goal).
func (e *Engine) enqueueOutbound(to directory.PeerID, rec *proto.TransactionRecord) {
	if e.out == nil {
		return
	}
	if err := e.out.Send(to, rec); err != nil {
		e.log.Warnf("engine: send to %s failed, queuing for retry: %v", to, err)
		e.outboxMu.Lock()
		e.outbox[to] = append(e.outbox[to], rec)
		e.outboxMu.Unlock()
	}
}

// RetryOutbox attempts redelivery of every queued record for peerID,
// called by the orchestrator when a connection to that peer is
// (re)established.
func (e *Engine) RetryOutbox(peerID directory.PeerID) {
	e.outboxMu.Lock()
	pending := e.outbox[peerID]
	delete(e.outbox, peerID)
	e.outboxMu.Unlock()

	for _, rec := range pending {
		e.enqueueOutbound(peerID, rec)
	}
}

// ApplyRemote implements spec §4.7 "On receiving a TransactionRecord":
// install rec's version of every object it touched, then — if doing so
// landed rec behind one or more of this peer's own later commits, the
// "otherwise" branch — reconcile by retracting those later commits and
// replaying them on top of the newly-adopted base.
//
// Two peers committing concurrently against a common ancestor (spec §8
// scenario 2) only converge once both directions have been exchanged.
// The peer whose own commit has the larger tid reconciles as soon as it
// receives the other's record: it replays its commit on top, producing
// a new, still-larger-tid version that already contains both writes.
// The peer with the smaller tid does not reconcile on receipt — its own
// commit is not "later" than anything it has seen, so by the first
// bullet of §4.7 it simply installs the incoming version — but that
// peer's own write is not lost, only shadowed until the other peer's
// replayed, merged record reaches it in turn and is installed the same
// way. Nothing needs to retry this; it falls out of every commit,
// including a replay's, being propagated to every known peer same as
// any other.
//
// Replay only ever considers this peer's own commit history: a
// TransactionRecord carries the losing side's final serialized state,
// not its call log, so a later version that arrived from some other
// remote peer (rather than being committed locally) can't be replayed
// here and is left to shadow rec's write the same way a plain
// last-writer-wins merge would. That asymmetry is accepted: every
// commit eventually reaches every peer that holds the object, so the
// peer that originated the now-shadowed write will itself reconcile
// when it receives the third peer's record.
func (e *Engine) ApplyRemote(rec *proto.TransactionRecord) {
	e.clock.Leap(rec.TID)

	interp := e.interpreter()
	if interp == nil {
		e.log.Fatalf("engine: ApplyRemote called before SetInterpreter")
	}

	touched := make(map[bridge.Ref]struct{}, len(rec.Writes))

	for _, w := range rec.Writes {
		ref := e.store.EnsureRemoteObject(store.ObjectID(w.ObjectID))
		touched[ref] = struct{}{}

		refs := make([]bridge.Ref, 0, len(w.RefIDs))
		for _, rid := range w.RefIDs {
			refs = append(refs, e.store.EnsureRemoteObject(store.ObjectID(rid)))
		}

		dctx := codec.NewDeserializationContext(refs)
		state, err := interp.DeserializeObject(w.Data, dctx)
		if err != nil {
			e.log.Fatalf("engine: failed to deserialize remote version of %x: %v", w.ObjectID, err)
		}

		e.store.InstallRemoteVersion(ref, rec.TID, state, refs)
		e.log.Debugf("engine: installed remote version %s for object %x from peer %s", rec.TID, w.ObjectID, rec.PeerID)
	}

	e.advanceCommitPoint(rec.TID)
	e.reconcile(rec.TID, touched)
}

// reconcile finds every locally-committed transaction that touched one
// of touched and committed after after, retracts its now-stale version
// from the store, and replays its method-call log as a brand new
// transaction (spec §4.7 "otherwise" branch). A replay that conflicts —
// against another replay it overlaps with, say — is dropped rather than
// retried: its calls already observed the state reconciliation just
// discarded, so reordering it further would compound the divergence
// rather than resolve it.
func (e *Engine) reconcile(after txid.ID, touched map[bridge.Ref]struct{}) {
	e.historyMu.Lock()
	var pending []*committedTxn
	kept := e.history[:0]
	for _, entry := range e.history {
		if after.Less(entry.tid) && intersects(entry.writes, touched) {
			pending = append(pending, entry)
			continue
		}
		kept = append(kept, entry)
	}
	e.history = kept
	e.historyMu.Unlock()

	for _, entry := range pending {
		for ref := range entry.writes {
			e.store.RemoveVersion(ref, entry.tid)
		}
	}
	for _, entry := range pending {
		e.replay(entry)
	}
}

func intersects(writes, other map[bridge.Ref]struct{}) bool {
	for ref := range other {
		if _, ok := writes[ref]; ok {
			return true
		}
	}
	return false
}

// replay re-executes entry's recorded method calls as a fresh top-level
// transaction. Since entry.tid was retracted first, the replay forks
// from whatever base is now visible — the just-installed remote version
// plus any earlier replay already folded back in — exactly as if the
// interpreter had made these same calls for the first time against
// today's state.
func (e *Engine) replay(entry *committedTxn) {
	th := e.NewThread()
	release := BindThread(th)
	defer release()

	if !th.BeginTransaction() {
		e.log.Warnf("engine: could not reopen transaction %s for replay, dropping", entry.tid)
		return
	}
	for _, call := range entry.calls {
		th.CallMethod(call.Ref, call.Method, call.Params)
	}
	if !th.EndTransaction() {
		e.log.Warnf("engine: replay of transaction %s conflicted against the reconciled state, dropping", entry.tid)
	}
}

// FetchLocalObject answers an ObjectRequest (spec §6): if this peer
// holds a version of id, it serializes the current head; otherwise it
// reports Found: false. It never blocks on the network — id's referenced
// objects, if any, are resolved against this peer's own global ids so
// the response is self-contained.
func (e *Engine) FetchLocalObject(id store.ObjectID) proto.ObjectResponse {
	ref, ok := e.store.RefForObjectID(id)
	if !ok {
		return proto.ObjectResponse{Found: false}
	}

	state, refs, err := e.store.GetVersion(ref, e.snapshotPoint())
	if err != nil {
		return proto.ObjectResponse{Found: false}
	}

	ctx := codec.NewSerializationContext()
	data, err := state.Serialize(ctx)
	if err != nil {
		e.log.Fatalf("engine: serialize failed answering ObjectRequest for %x: %v", id, err)
	}

	refIDs := make([][16]byte, 0, len(refs))
	for _, r := range refs {
		gid, ok := e.store.GlobalID(r)
		if !ok {
			e.log.Fatalf("engine: referenced object has no global id while answering ObjectRequest for %x", id)
		}
		refIDs = append(refIDs, [16]byte(gid))
	}

	return proto.ObjectResponse{
		Found: true,
		Version: proto.ObjectVersion{
			ObjectID: [16]byte(id),
			Data:     data,
			RefIDs:   refIDs,
		},
	}
}

// AdoptFetchedVersion installs a version obtained via the ObjectRequest/
// ObjectResponse fetch path as an object's baseline, but only if this
// peer has no version of it at all yet. It installs at the zero
// transaction id — guaranteed older than any real commit or applied
// TransactionRecord — so a fetched baseline can never shadow a more
// precise version learned some other way, and never participates in
// conflict detection (store.VersionsAfter only looks forward from a
// transaction's snapshot point, which is always >= the zero id).
func (e *Engine) AdoptFetchedVersion(v proto.ObjectVersion) {
	ref := e.store.EnsureRemoteObject(store.ObjectID(v.ObjectID))
	if _, _, err := e.store.GetVersion(ref, e.snapshotPoint()); err == nil {
		return
	}

	interp := e.interpreter()
	if interp == nil {
		e.log.Fatalf("engine: AdoptFetchedVersion called before SetInterpreter")
	}

	refs := make([]bridge.Ref, 0, len(v.RefIDs))
	for _, rid := range v.RefIDs {
		refs = append(refs, e.store.EnsureRemoteObject(store.ObjectID(rid)))
	}

	dctx := codec.NewDeserializationContext(refs)
	state, err := interp.DeserializeObject(v.Data, dctx)
	if err != nil {
		e.log.Fatalf("engine: failed to deserialize fetched object %x: %v", v.ObjectID, err)
	}
	e.store.InstallRemoteVersion(ref, txid.ID{}, state, refs)
}
