package toy

import (
	"fmt"

	"floatingtemple/internal/codec"
	"floatingtemple/internal/wire"

	"floatingtemple/interpreter"
)

// Interpreter dispatches the tagged-byte payloads values.go, variable.go
// and list.go produce back into the matching concrete type. One value
// satisfies interpreter.Interpreter for the whole toy object family —
// the original's equivalent is the object-type switch in
// local_object_impl.cc's LocalObjectImpl::ParseObjectProto.
type Interpreter struct{}

// New returns the toy interpreter. There is no per-instance state: every
// object's own bytes carry everything needed to reconstruct it.
func New() Interpreter { return Interpreter{} }

func (Interpreter) Name() string { return "toy" }

func (Interpreter) DeserializeObject(data []byte, ctx *codec.DeserializationContext) (interpreter.LocalObject, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("toy: empty payload")
	}
	tag, payload := kind(data[0]), data[1:]

	switch tag {
	case kindNone:
		return NoneObject{}, nil
	case kindBool:
		if len(payload) != 1 {
			return nil, fmt.Errorf("toy: malformed bool payload")
		}
		return BoolObject{Value: payload[0] != 0}, nil
	case kindInt:
		v, _, ok := wire.DecodeVarint(payload)
		if !ok {
			return nil, fmt.Errorf("toy: malformed int payload")
		}
		return IntObject{Value: unzigzag(v)}, nil
	case kindString:
		n, consumed, ok := wire.DecodeVarint(payload)
		if !ok || uint64(len(payload)-consumed) < n {
			return nil, fmt.Errorf("toy: malformed string payload")
		}
		return StringObject{Value: string(payload[consumed : consumed+int(n)])}, nil
	case kindVariable:
		v, _, ok := wire.DecodeVarint(payload)
		if !ok {
			return nil, fmt.Errorf("toy: malformed variable payload")
		}
		return deserializeVariable(v, ctx)
	case kindList:
		return deserializeList(payload, ctx)
	default:
		return nil, fmt.Errorf("toy: unknown object kind %d", tag)
	}
}
