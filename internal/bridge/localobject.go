package bridge

import "floatingtemple/internal/codec"

// LocalObject is implemented by the embedded interpreter: it is the
// interpreter-supplied payload the core's object store carries alongside
// its own versioning metadata (spec §3 "Live object", §4.8).
//
// Per design note §9, this replaces the source's
// LocalObject -> VersionedLocalObject/UnversionedLocalObject inheritance
// hierarchy with a single capability set every local object implements;
// the core dispatches on the capability, never on a type hierarchy.
type LocalObject interface {
	// Clone produces an independent copy of the local object's state,
	// used to fork a working copy for a transaction (spec §4.6).
	Clone() LocalObject

	// Serialize encodes the object's state, substituting every object
	// reference it contains for the dense index codec.SerializationContext
	// assigns it.
	Serialize(ctx *codec.SerializationContext) ([]byte, error)

	// InvokeMethod dispatches a named method call against this object's
	// current state.
	InvokeMethod(method string, params []Value) (Value, error)

	// Dump renders a debugging representation of the object's state.
	Dump() string
}

// Interpreter is implemented by the interpreter to reconstruct a local
// object the core received from a remote peer.
type Interpreter interface {
	// DeserializeObject rebuilds a LocalObject from bytes produced by a
	// prior call to LocalObject.Serialize, resolving any embedded object
	// references through ctx.
	DeserializeObject(data []byte, ctx *codec.DeserializationContext) (LocalObject, error)

	// Name identifies which interpreter this is (e.g. "toy", "lua"), for
	// diagnostics. It is not part of the Hello exchange, so peers running
	// different interpreters are not detected at handshake.
	Name() string
}

// Versioned reports whether obj should be treated as a versioned shared
// object by the store (spec §3 "variant tag"). Local objects that don't
// implement this optional interface default to versioned, matching the
// source's "versioned is the common case" behavior.
type Versioned interface {
	Versioned() bool
}

// IsVersioned applies the Versioned default described above.
func IsVersioned(obj LocalObject) bool {
	v, ok := obj.(Versioned)
	if !ok {
		return true
	}
	return v.Versioned()
}
