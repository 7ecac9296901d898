// Package codec implements object-graph serialization: deduplicating
// object-index tables and reconstruction on the remote side (spec §4.5).
//
// Grounded on original_source/peer/serialization_context_impl.{h,cc} and
// original_source/engine/serialization_context_impl.h for the exact
// contract; the encoding itself is left to the interpreter (spec says the
// core is "oblivious to the rest of the encoding").
package codec

import "floatingtemple/internal/bridge"

// SerializationContext assigns each bridge.Ref it sees a dense
// non-negative integer index, in call order, deduplicating repeated
// references to the same object. The caller (the interpreter, via
// LocalObject.Serialize) substitutes each index for the object reference
// it replaces in the encoded payload; once serialization of the whole
// graph finishes, Refs() gives the ordered list of objects that must
// accompany the byte payload to the remote peer.
type SerializationContext struct {
	order   []bridge.Ref
	indexOf map[bridge.Ref]int
}

// NewSerializationContext creates an empty context for a single
// serialize call.
func NewSerializationContext() *SerializationContext {
	return &SerializationContext{indexOf: make(map[bridge.Ref]int)}
}

// Index returns the dense index for ref, assigning a fresh one the first
// time ref is seen.
func (c *SerializationContext) Index(ref bridge.Ref) int {
	if idx, ok := c.indexOf[ref]; ok {
		return idx
	}
	idx := len(c.order)
	c.indexOf[ref] = idx
	c.order = append(c.order, ref)
	return idx
}

// Refs returns the ordered, deduplicated list of object references
// encountered during serialization — the list that must travel alongside
// the byte payload (spec §4.5).
func (c *SerializationContext) Refs() []bridge.Ref {
	out := make([]bridge.Ref, len(c.order))
	copy(out, c.order)
	return out
}

// DeserializationContext is the mirror image: given the ordered list of
// object references resolved on the receiving side to local reference
// handles, it answers which Ref an index in the payload names.
type DeserializationContext struct {
	refs []bridge.Ref
}

// NewDeserializationContext builds a context from the ordered reference
// list that accompanied a serialized payload.
func NewDeserializationContext(refs []bridge.Ref) *DeserializationContext {
	return &DeserializationContext{refs: refs}
}

// Ref resolves an index encountered in a payload to the object reference
// it names, or false if index is out of range — a malformed payload,
// which is a protocol violation the caller should treat as a programmer
// error (spec §7).
func (c *DeserializationContext) Ref(index int) (bridge.Ref, bool) {
	if index < 0 || index >= len(c.refs) {
		return 0, false
	}
	return c.refs[index], true
}

// Len reports how many object references this context carries.
func (c *DeserializationContext) Len() int {
	return len(c.refs)
}
