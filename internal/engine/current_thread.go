package engine

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// goroutineID recovers the runtime-assigned goroutine id the same way
// internal/bridge does for CurrentInterpreter — Go has no built-in
// thread-local storage, so both packages use this as a map key to
// approximate one.
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

var currentThreads sync.Map // goroutineID -> *Thread

// BindThread records t as "the current thread" for the calling
// goroutine, mirroring bridge.BindInterpreter, so that an interpreter's
// own code — invoked from deep inside InvokeMethod, with no Thread
// parameter threaded through — can recover its Thread via
// CurrentThread to make nested calls (spec §4.8 "thread-local pointer").
func BindThread(t *Thread) (release func()) {
	id := goroutineID()
	currentThreads.Store(id, t)
	return func() {
		currentThreads.Delete(id)
	}
}

// CurrentThread returns the Thread bound for the calling goroutine, or
// nil if none is bound.
func CurrentThread() *Thread {
	id := goroutineID()
	v, ok := currentThreads.Load(id)
	if !ok {
		return nil
	}
	return v.(*Thread)
}
