package bridge

// Thread is the scoped handle the core hands to the interpreter for the
// duration of a single InvokeMethod call (spec §4.8). It is implemented
// by internal/engine; declaring the interface here keeps the interpreter
// front-ends buildable against bridge alone, without a direct dependency
// on the transaction engine's internals.
//
// Any of BeginTransaction, EndTransaction, or CallMethod may return false
// to signal a conflict (spec §4.7 "return-false protocol"). The contract
// with the interpreter is strict: on false, the interpreter must
// propagate the failure by returning from its own method call
// immediately, and must not inspect further state. The engine guarantees
// that retrying is the enclosing CallMethod's responsibility.
type Thread interface {
	// BeginTransaction pushes a new transaction onto this thread's stack.
	// An implementation may return false if opening the transaction
	// would already observe a conflict; internal/engine's implementation
	// always returns true.
	BeginTransaction() bool

	// EndTransaction pops and commits the top transaction on this
	// thread's stack. Returns false on conflict; the transaction's
	// working copies are discarded and rolled back.
	EndTransaction() bool

	// CreateObject creates a new shared object. name == "" means
	// anonymous (a fresh id every call); a non-empty name derives the
	// object id deterministically so peers creating the same name agree
	// (spec §4.6).
	CreateObject(initial LocalObject, name string, versioned bool) Ref

	// CallMethod invokes a method on the object named by ref, returning
	// its result. Returns false on conflict per the return-false
	// protocol above.
	CallMethod(ref Ref, method string, params []Value) (Value, bool)

	// ObjectsAreIdentical reports whether a and b name the same shared
	// object — the round-trip law CreateObject(_, name) must satisfy for
	// repeated calls with the same name (spec §8).
	ObjectsAreIdentical(a, b Ref) bool
}
