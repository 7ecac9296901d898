// Package bridge presents the stable contract the embedded interpreter is
// built against: Thread, LocalObject, Interpreter, Value (spec §4.8).
package bridge

// Ref is a process-local opaque handle identifying a shared object. All
// interpreter-visible uses of a shared object go through a Ref; the core
// owns the underlying state (spec §3 "Object reference").
type Ref uint64

// Kind tags which variant of Value is populated.
type Kind int

const (
	KindEmpty Kind = iota
	KindInt64
	KindUint64
	KindDouble
	KindFloat
	KindBool
	KindString
	KindBytes
	KindObjectReference
)

// Value is the tagged union the interpreter and the core exchange as
// method parameters and return values (spec §3 "Value").
//
// LocalType is an opaque hint forwarded unmodified to the interpreter;
// the core never interprets it — it exists purely so an interpreter that
// distinguishes, say, "int" from "enum backed by int" can round-trip that
// distinction through the core without the core knowing it exists.
type Value struct {
	Kind      Kind
	LocalType int64

	Int64Value  int64
	Uint64Value uint64
	DoubleValue float64
	FloatValue  float32
	BoolValue   bool
	StringValue string
	BytesValue  []byte
	RefValue    Ref
}

// Empty is the zero value, used as a method's return value when the
// interpreter has nothing to return.
var Empty = Value{Kind: KindEmpty}

func Int64(v int64, localType int64) Value {
	return Value{Kind: KindInt64, Int64Value: v, LocalType: localType}
}

func Uint64(v uint64, localType int64) Value {
	return Value{Kind: KindUint64, Uint64Value: v, LocalType: localType}
}

func Double(v float64, localType int64) Value {
	return Value{Kind: KindDouble, DoubleValue: v, LocalType: localType}
}

func Float(v float32, localType int64) Value {
	return Value{Kind: KindFloat, FloatValue: v, LocalType: localType}
}

func Bool(v bool, localType int64) Value {
	return Value{Kind: KindBool, BoolValue: v, LocalType: localType}
}

func String(v string, localType int64) Value {
	return Value{Kind: KindString, StringValue: v, LocalType: localType}
}

func Bytes(v []byte, localType int64) Value {
	return Value{Kind: KindBytes, BytesValue: v, LocalType: localType}
}

func ObjectReference(ref Ref, localType int64) Value {
	return Value{Kind: KindObjectReference, RefValue: ref, LocalType: localType}
}
