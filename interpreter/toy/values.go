// Package toy is a minimal interpreter front-end exercising the full
// peer engine end to end: a handful of value object types plus a mutable
// variable cell and list, enough to script multi-object transactions
// without pulling in a real language toolchain.
//
// Grounded on original_source/toy_lang/local_object_impl.cc (the
// NoneObject/BoolObject/IntObject/StringObject value-object family and
// their method dispatch) and original_source/toy_lang/zoo/variable_object.cc
// and list_object.cc (the two mutable, reference-holding object kinds).
// The original's per-type ObjectProto protobuf messages are replaced here
// with a tagged-byte encoding built on internal/wire's varint, the same
// choice internal/proto makes for the wire protocol.
package toy

import (
	"errors"
	"fmt"

	"floatingtemple/internal/codec"
	"floatingtemple/internal/wire"

	"floatingtemple/interpreter"
)

// kind tags which concrete toy object a serialized payload holds.
type kind byte

const (
	kindNone kind = iota + 1
	kindBool
	kindInt
	kindString
	kindVariable
	kindList
)

var errUnsupportedMethod = errors.New("toy: unsupported method")

func wrongArity(method string, got, want int) error {
	return fmt.Errorf("toy: method %q takes %d parameter(s), got %d", method, want, got)
}

// NoneObject is the toy language's singleton absent value.
type NoneObject struct{}

func (NoneObject) Clone() interpreter.LocalObject { return NoneObject{} }

func (NoneObject) Serialize(ctx *codec.SerializationContext) ([]byte, error) {
	return []byte{byte(kindNone)}, nil
}

func (NoneObject) InvokeMethod(method string, params []interpreter.Value) (interpreter.Value, error) {
	return interpreter.Value{}, errUnsupportedMethod
}

func (NoneObject) Dump() string { return "None" }

// Versioned reports that none-objects are immutable values shared by
// every reference to them and don't need the store's per-transaction
// working-copy machinery.
func (NoneObject) Versioned() bool { return false }

// BoolObject is an immutable boolean value object.
type BoolObject struct{ Value bool }

func (o BoolObject) Clone() interpreter.LocalObject { return o }

func (o BoolObject) Serialize(ctx *codec.SerializationContext) ([]byte, error) {
	b := byte(0)
	if o.Value {
		b = 1
	}
	return []byte{byte(kindBool), b}, nil
}

func (o BoolObject) InvokeMethod(method string, params []interpreter.Value) (interpreter.Value, error) {
	switch method {
	case "get":
		return interpreter.Bool(o.Value, 0), nil
	case "not":
		return interpreter.Bool(!o.Value, 0), nil
	default:
		return interpreter.Value{}, errUnsupportedMethod
	}
}

func (o BoolObject) Dump() string {
	if o.Value {
		return "true"
	}
	return "false"
}

func (BoolObject) Versioned() bool { return false }

// IntObject is an immutable signed 64-bit integer value object,
// grounded on local_object_impl.cc's IntObject arithmetic methods.
type IntObject struct{ Value int64 }

func (o IntObject) Clone() interpreter.LocalObject { return o }

func (o IntObject) Serialize(ctx *codec.SerializationContext) ([]byte, error) {
	buf := []byte{byte(kindInt)}
	buf = wire.EncodeVarint(zigzag(o.Value), buf)
	return buf, nil
}

func (o IntObject) InvokeMethod(method string, params []interpreter.Value) (interpreter.Value, error) {
	if method == "get" {
		if len(params) != 0 {
			return interpreter.Value{}, wrongArity(method, len(params), 0)
		}
		return interpreter.Int64(o.Value, 0), nil
	}

	if len(params) != 1 {
		return interpreter.Value{}, wrongArity(method, len(params), 1)
	}
	other := params[0].Int64Value

	switch method {
	case "add":
		return interpreter.Int64(o.Value+other, 0), nil
	case "subtract":
		return interpreter.Int64(o.Value-other, 0), nil
	case "multiply":
		return interpreter.Int64(o.Value*other, 0), nil
	case "divide":
		if other == 0 {
			return interpreter.Value{}, errors.New("toy: division by zero")
		}
		return interpreter.Int64(o.Value/other, 0), nil
	case "equals":
		return interpreter.Bool(o.Value == other, 0), nil
	case "less_than":
		return interpreter.Bool(o.Value < other, 0), nil
	default:
		return interpreter.Value{}, errUnsupportedMethod
	}
}

func (o IntObject) Dump() string { return fmt.Sprintf("%d", o.Value) }

func (IntObject) Versioned() bool { return false }

// StringObject is an immutable string value object.
type StringObject struct{ Value string }

func (o StringObject) Clone() interpreter.LocalObject { return o }

func (o StringObject) Serialize(ctx *codec.SerializationContext) ([]byte, error) {
	raw := []byte(o.Value)
	buf := []byte{byte(kindString)}
	buf = wire.EncodeVarint(uint64(len(raw)), buf)
	buf = append(buf, raw...)
	return buf, nil
}

func (o StringObject) InvokeMethod(method string, params []interpreter.Value) (interpreter.Value, error) {
	switch method {
	case "get":
		return interpreter.String(o.Value, 0), nil
	case "length":
		return interpreter.Int64(int64(len(o.Value)), 0), nil
	case "concat":
		if len(params) != 1 {
			return interpreter.Value{}, wrongArity(method, len(params), 1)
		}
		return interpreter.String(o.Value+params[0].StringValue, 0), nil
	default:
		return interpreter.Value{}, errUnsupportedMethod
	}
}

func (o StringObject) Dump() string { return o.Value }

func (StringObject) Versioned() bool { return false }

func zigzag(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func unzigzag(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}
