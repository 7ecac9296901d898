package engine

import (
	"floatingtemple/internal/bridge"
)

// Thread implements bridge.Thread: the scoped handle an interpreter uses
// for the duration of one top-level InvokeMethod call (spec §4.8). It
// owns the per-goroutine transaction stack described in spec §4.7.
type Thread struct {
	eng   *Engine
	stack []*txn
}

func (t *Thread) top() *txn {
	if len(t.stack) == 0 {
		return nil
	}
	return t.stack[len(t.stack)-1]
}

// BeginTransaction pushes a new transaction onto the stack (spec §4.7
// "State per thread").
func (t *Thread) BeginTransaction() bool {
	parent := t.top()
	startID := t.eng.snapshotPoint()
	if parent != nil {
		startID = parent.startID
	}
	t.stack = append(t.stack, newTxn(startID, parent))
	return true
}

// EndTransaction pops and, if this was the outermost transaction,
// commits. Nested calls just fold into the parent.
func (t *Thread) EndTransaction() bool {
	if len(t.stack) == 0 {
		t.eng.log.Fatalf("engine: EndTransaction called with no open transaction")
	}
	current := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]

	if current.parent != nil {
		current.mergeIntoParent()
		current.status = txnCommitted
		return true
	}

	if err := t.eng.doCommit(current); err != nil {
		for ref := range current.writes {
			t.eng.store.Abort(ref, current.startID)
		}
		current.status = txnAborted
		return false
	}
	return true
}

// CreateObject implements bridge.Thread.
func (t *Thread) CreateObject(initial bridge.LocalObject, name string, versioned bool) bridge.Ref {
	return t.eng.store.CreateObject(initial, name, versioned)
}

// CallMethod implements the three-way dispatch of spec §4.7 steps 1-3.
func (t *Thread) CallMethod(ref bridge.Ref, method string, params []bridge.Value) (bridge.Value, bool) {
	versioned, known := t.eng.store.IsVersioned(ref)
	if !known {
		t.eng.log.Fatalf("engine: CallMethod on unknown ref %d", ref)
	}

	if !versioned {
		// Step 1: unversioned objects are never forked; the interpreter's
		// own state owns its synchronization contract (spec §4.6).
		state, err := t.eng.store.UnversionedState(ref)
		if err != nil {
			t.eng.log.Fatalf("engine: unversioned state lookup failed for ref %d: %v", ref, err)
		}
		result, err := state.InvokeMethod(method, params)
		if err != nil {
			t.eng.log.Fatalf("engine: InvokeMethod failed for ref %d method %q: %v", ref, method, err)
		}
		return result, true
	}

	current := t.top()
	if current != nil {
		// Step 2: inside an open transaction.
		return t.callInOpenTransaction(current, ref, method, params)
	}

	// Step 3: implicit singleton transaction.
	if !t.BeginTransaction() {
		return bridge.Empty, false
	}
	result, ok := t.callInOpenTransaction(t.top(), ref, method, params)
	if !ok {
		t.stack = t.stack[:len(t.stack)-1]
		return bridge.Empty, false
	}
	if !t.EndTransaction() {
		return bridge.Empty, false
	}
	return result, true
}

func (t *Thread) callInOpenTransaction(tx *txn, ref bridge.Ref, method string, params []bridge.Value) (bridge.Value, bool) {
	state, err := t.eng.store.Fork(ref, tx.startID)
	if err != nil {
		t.eng.log.Fatalf("engine: fork failed for ref %d: %v", ref, err)
	}

	result, err := state.InvokeMethod(method, params)
	if err != nil {
		t.eng.log.Fatalf("engine: InvokeMethod failed for ref %d method %q: %v", ref, method, err)
	}

	// Every call is treated as a write by default (spec §4.7, documented
	// simplification — see DESIGN.md Open Question resolution).
	tx.recordWrite(ref)
	tx.calls = append(tx.calls, methodCall{Ref: ref, Method: method, Params: params})
	return result, true
}

// ObjectsAreIdentical implements bridge.Thread.
func (t *Thread) ObjectsAreIdentical(a, b bridge.Ref) bool {
	return t.eng.store.ObjectsAreIdentical(a, b)
}
