package bridge

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// Go has no built-in thread-local storage; goroutines aren't even
// threads. goroutineID recovers the runtime-assigned goroutine id from
// the first line of a stack trace, the same trick several
// goroutine-local-storage shims in the wider Go ecosystem use in place of
// true TLS. It is only ever used as a map key here, never relied on for
// anything but identifying "this goroutine" for the lifetime of one
// InvokeMethod call.
func goroutineID() int64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	if idx := bytes.IndexByte(buf, ' '); idx >= 0 {
		buf = buf[:idx]
	}
	id, _ := strconv.ParseInt(string(buf), 10, 64)
	return id
}

var currentInterpreters sync.Map // goroutineID -> Interpreter

// BindInterpreter records interp as "the current interpreter" for the
// calling goroutine and returns a release function that must run before
// the goroutine returns — typically via defer, immediately after
// binding. This is design note §9's scoped acquisition of the thread-
// local binding: nested calls from interpreter code back into the engine
// can recover the right interpreter via CurrentInterpreter without
// threading it through every signature, and the binding cannot leak past
// the call that installed it.
func BindInterpreter(interp Interpreter) (release func()) {
	id := goroutineID()
	currentInterpreters.Store(id, interp)
	return func() {
		currentInterpreters.Delete(id)
	}
}

// CurrentInterpreter returns the interpreter bound for the calling
// goroutine by the nearest enclosing BindInterpreter, or nil if none is
// bound.
func CurrentInterpreter() Interpreter {
	id := goroutineID()
	v, ok := currentInterpreters.Load(id)
	if !ok {
		return nil
	}
	return v.(Interpreter)
}
