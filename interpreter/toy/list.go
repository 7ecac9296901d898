package toy

import (
	"errors"
	"strings"

	"floatingtemple/internal/codec"
	"floatingtemple/internal/wire"

	"floatingtemple/interpreter"
)

// ListObject is a mutable, growable list of object references, grounded
// on zoo/list_object.cc: length, get_at (with Python-style negative
// indexing via TrueMod) and append. There is no get_string method; Dump
// renders the list for debugging.
type ListObject struct {
	items []interpreter.Ref
}

// NewList creates an empty list.
func NewList() *ListObject {
	return &ListObject{}
}

// Len reports the list's current length, for callers with direct access
// to a *ListObject (the engine's own tests, mainly) that would rather
// not round-trip through InvokeMethod("length", nil).
func (o *ListObject) Len() int {
	return len(o.items)
}

func (o *ListObject) Clone() interpreter.LocalObject {
	items := make([]interpreter.Ref, len(o.items))
	copy(items, o.items)
	return &ListObject{items: items}
}

func (o *ListObject) Serialize(ctx *codec.SerializationContext) ([]byte, error) {
	buf := []byte{byte(kindList)}
	buf = wire.EncodeVarint(uint64(len(o.items)), buf)
	for _, ref := range o.items {
		buf = wire.EncodeVarint(uint64(ctx.Index(ref)), buf)
	}
	return buf, nil
}

func trueMod(a, n int64) int64 {
	return (a%n + n) % n
}

func (o *ListObject) InvokeMethod(method string, params []interpreter.Value) (interpreter.Value, error) {
	switch method {
	case "length":
		return interpreter.Int64(int64(len(o.items)), 0), nil
	case "get_at":
		if len(params) != 1 {
			return interpreter.Value{}, wrongArity(method, len(params), 1)
		}
		if len(o.items) == 0 {
			return interpreter.Value{}, errors.New("toy: get_at on an empty list")
		}
		idx := trueMod(params[0].Int64Value, int64(len(o.items)))
		return interpreter.ObjectRef(o.items[idx], 0), nil
	case "append":
		if len(params) != 1 {
			return interpreter.Value{}, wrongArity(method, len(params), 1)
		}
		o.items = append(o.items, params[0].RefValue)
		return interpreter.Empty, nil
	default:
		return interpreter.Value{}, errUnsupportedMethod
	}
}

func (o *ListObject) Dump() string {
	var b strings.Builder
	b.WriteByte('[')
	for i := range o.items {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("ref")
	}
	b.WriteByte(']')
	return b.String()
}

// deserializeList rebuilds a ListObject from the index table Serialize
// encoded it against.
func deserializeList(buf []byte, ctx *codec.DeserializationContext) (*ListObject, error) {
	count, n, ok := wire.DecodeVarint(buf)
	if !ok {
		return nil, errors.New("toy: truncated list length")
	}
	buf = buf[n:]

	items := make([]interpreter.Ref, 0, count)
	for i := uint64(0); i < count; i++ {
		idx, n, ok := wire.DecodeVarint(buf)
		if !ok {
			return nil, errors.New("toy: truncated list element")
		}
		buf = buf[n:]
		ref, ok := ctx.Ref(int(idx))
		if !ok {
			return nil, errors.New("toy: list references an unknown index")
		}
		items = append(items, ref)
	}
	return &ListObject{items: items}, nil
}
