package toy

import (
	"errors"

	"floatingtemple/internal/codec"
	"floatingtemple/internal/wire"

	"floatingtemple/interpreter"
)

var errVariableUnset = errors.New("toy: get on an unset variable")

// VariableObject is a mutable single-slot reference cell, grounded on
// zoo/variable_object.cc: "get" returns the held reference, "set"
// replaces it. Unlike the value objects in values.go this is a shared,
// versioned object — every write to it goes through the transaction
// engine's conflict detection.
type VariableObject struct {
	ref   interpreter.Ref
	isSet bool
}

// NewVariable creates an unset variable cell.
func NewVariable() *VariableObject {
	return &VariableObject{}
}

func (o *VariableObject) Clone() interpreter.LocalObject {
	return &VariableObject{ref: o.ref, isSet: o.isSet}
}

func (o *VariableObject) Serialize(ctx *codec.SerializationContext) ([]byte, error) {
	buf := []byte{byte(kindVariable)}
	if !o.isSet {
		return wire.EncodeVarint(0, buf), nil
	}
	return wire.EncodeVarint(uint64(ctx.Index(o.ref))+1, buf), nil
}

func (o *VariableObject) InvokeMethod(method string, params []interpreter.Value) (interpreter.Value, error) {
	switch method {
	case "get":
		if !o.isSet {
			return interpreter.Value{}, errVariableUnset
		}
		return interpreter.ObjectRef(o.ref, 0), nil
	case "set":
		if len(params) != 1 {
			return interpreter.Value{}, wrongArity(method, len(params), 1)
		}
		o.ref = params[0].RefValue
		o.isSet = true
		return interpreter.Empty, nil
	default:
		return interpreter.Value{}, errUnsupportedMethod
	}
}

func (o *VariableObject) Dump() string {
	if !o.isSet {
		return "Variable(unset)"
	}
	return "Variable(set)"
}

// deserializeVariable rebuilds a VariableObject from the bytes Serialize
// produced, given the same reference table the rest of the record was
// decoded against.
func deserializeVariable(payload uint64, ctx *codec.DeserializationContext) (*VariableObject, error) {
	if payload == 0 {
		return &VariableObject{}, nil
	}
	ref, ok := ctx.Ref(int(payload - 1))
	if !ok {
		return nil, errors.New("toy: variable references an unknown index")
	}
	return &VariableObject{ref: ref, isSet: true}, nil
}
