package toy

import (
	"testing"

	"floatingtemple/internal/codec"
	"floatingtemple/interpreter"
)

func TestIntObjectRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 42, -42, 1 << 40, -(1 << 40)} {
		o := IntObject{Value: v}
		ctx := codec.NewSerializationContext()
		data, err := o.Serialize(ctx)
		if err != nil {
			t.Fatalf("Serialize(%d) failed: %v", v, err)
		}
		got, err := New().DeserializeObject(data, codec.NewDeserializationContext(nil))
		if err != nil {
			t.Fatalf("DeserializeObject(%d) failed: %v", v, err)
		}
		if got.(IntObject).Value != v {
			t.Errorf("round trip of %d got %d", v, got.(IntObject).Value)
		}
	}
}

func TestIntObjectArithmetic(t *testing.T) {
	o := IntObject{Value: 10}
	sum, err := o.InvokeMethod("add", []interpreter.Value{interpreter.Int64(5, 0)})
	if err != nil || sum.Int64Value != 15 {
		t.Fatalf("add: got %+v, err %v", sum, err)
	}
	if _, err := o.InvokeMethod("divide", []interpreter.Value{interpreter.Int64(0, 0)}); err == nil {
		t.Errorf("divide by zero should error")
	}
}

func TestStringObjectRoundTrip(t *testing.T) {
	o := StringObject{Value: "hello, floating temple"}
	ctx := codec.NewSerializationContext()
	data, err := o.Serialize(ctx)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	got, err := New().DeserializeObject(data, codec.NewDeserializationContext(nil))
	if err != nil {
		t.Fatalf("DeserializeObject failed: %v", err)
	}
	if got.(StringObject).Value != o.Value {
		t.Errorf("got %q, want %q", got.(StringObject).Value, o.Value)
	}
}

func TestVariableGetOnUnsetFails(t *testing.T) {
	v := NewVariable()
	if _, err := v.InvokeMethod("get", nil); err == nil {
		t.Errorf("get on an unset variable should fail")
	}
}

func TestVariableSetThenGet(t *testing.T) {
	v := NewVariable()
	target := interpreter.Ref(7)
	if _, err := v.InvokeMethod("set", []interpreter.Value{interpreter.ObjectRef(target, 0)}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	result, err := v.InvokeMethod("get", nil)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if result.RefValue != target {
		t.Errorf("got ref %d, want %d", result.RefValue, target)
	}
}

func TestVariableSerializeRoundTrip(t *testing.T) {
	v := NewVariable()
	target := interpreter.Ref(3)
	if _, err := v.InvokeMethod("set", []interpreter.Value{interpreter.ObjectRef(target, 0)}); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	ctx := codec.NewSerializationContext()
	data, err := v.Serialize(ctx)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	dctx := codec.NewDeserializationContext(ctx.Refs())
	got, err := New().DeserializeObject(data, dctx)
	if err != nil {
		t.Fatalf("DeserializeObject failed: %v", err)
	}
	result, err := got.(*VariableObject).InvokeMethod("get", nil)
	if err != nil {
		t.Fatalf("get after round trip failed: %v", err)
	}
	if result.RefValue != target {
		t.Errorf("got ref %d, want %d", result.RefValue, target)
	}
}

func TestListAppendAndGetAt(t *testing.T) {
	l := NewList()
	a, b := interpreter.Ref(1), interpreter.Ref(2)
	if _, err := l.InvokeMethod("append", []interpreter.Value{interpreter.ObjectRef(a, 0)}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if _, err := l.InvokeMethod("append", []interpreter.Value{interpreter.ObjectRef(b, 0)}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	length, err := l.InvokeMethod("length", nil)
	if err != nil || length.Int64Value != 2 {
		t.Fatalf("length: got %+v, err %v", length, err)
	}

	// Negative indexing wraps, grounded on list_object.cc's TrueMod.
	last, err := l.InvokeMethod("get_at", []interpreter.Value{interpreter.Int64(-1, 0)})
	if err != nil || last.RefValue != b {
		t.Fatalf("get_at(-1): got %+v, err %v", last, err)
	}
}

func TestListSerializeRoundTrip(t *testing.T) {
	l := NewList()
	a, b := interpreter.Ref(5), interpreter.Ref(9)
	l.InvokeMethod("append", []interpreter.Value{interpreter.ObjectRef(a, 0)})
	l.InvokeMethod("append", []interpreter.Value{interpreter.ObjectRef(b, 0)})

	ctx := codec.NewSerializationContext()
	data, err := l.Serialize(ctx)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	dctx := codec.NewDeserializationContext(ctx.Refs())
	got, err := New().DeserializeObject(data, dctx)
	if err != nil {
		t.Fatalf("DeserializeObject failed: %v", err)
	}
	restored := got.(*ListObject)
	first, err := restored.InvokeMethod("get_at", []interpreter.Value{interpreter.Int64(0, 0)})
	if err != nil || first.RefValue != a {
		t.Fatalf("get_at(0) after round trip: got %+v, err %v", first, err)
	}
}

func TestNoneAndBoolAreUnversioned(t *testing.T) {
	if interpreter.IsVersioned(NoneObject{}) {
		t.Errorf("NoneObject should be unversioned")
	}
	if interpreter.IsVersioned(BoolObject{}) {
		t.Errorf("BoolObject should be unversioned")
	}
	if !interpreter.IsVersioned(NewVariable()) {
		t.Errorf("VariableObject should default to versioned")
	}
}
