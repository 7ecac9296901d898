package bridge

import (
	"fmt"
	"sync"
)

// callbackState is the five-state cyclic machine spec §4.8 specifies for
// marshaling a callback across the engine/interpreter boundary when the
// interpreter is single-threaded and can only be driven from its own
// event loop via PollForCallback.
//
// Grounded on original_source/c_harness/proxy_interpreter.cc and
// original_source/c_harness/proxy_interpreter_internal_interface.h, which
// implement exactly this hand-off for the C interpreter harness.
type callbackState int

const (
	stateStart callbackState = iota
	stateSettingParameters
	stateParametersSet
	stateCallbackExecuting
	stateCallbackReturned
)

// Callback describes one pending cross-thread invocation: the core wants
// the interpreter to clone, serialize, deserialize, invoke, or free an
// object, but the interpreter can only be called from its own thread.
type Callback struct {
	Run    func() (interface{}, error)
	result interface{}
	err    error
}

// CallbackStation is the single condition-variable-guarded state machine
// a peer's interpreter polls to receive work from the engine. One station
// exists per interpreter thread.
//
// State transitions are legal only along the declared cycle
// Start -> SettingParameters -> ParametersSet -> CallbackExecuting ->
// CallbackReturned -> Start; any other transition is a programmer error
// and panics rather than corrupting the hand-off silently.
type CallbackStation struct {
	mu      sync.Mutex
	cond    *sync.Cond
	state   callbackState
	pending *Callback
	closed  bool
}

// NewCallbackStation creates a station ready to accept work.
func NewCallbackStation() *CallbackStation {
	s := &CallbackStation{state: stateStart}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *CallbackStation) transition(from, to callbackState) {
	if s.state != from {
		panic(fmt.Sprintf("bridge: illegal callback transition %d -> %d from state %d", from, to, s.state))
	}
	s.state = to
	s.cond.Broadcast()
}

// Invoke is called from an engine-side thread. It parks cb, wakes any
// interpreter thread blocked in PollForCallback, and blocks until that
// thread has executed the callback and reported its result.
//
// Multiple goroutines may call Invoke concurrently against the same
// station — there is only one callback slot, so each waits its turn for
// the station to be in stateStart before claiming it. cond.Wait releases
// the mutex while parked, so the mutex alone cannot serialize callers;
// the wait loop is what does.
func (s *CallbackStation) Invoke(cb *Callback) (interface{}, error) {
	s.mu.Lock()
	for s.state != stateStart {
		s.cond.Wait()
	}
	s.transition(stateStart, stateSettingParameters)
	s.pending = cb
	s.transition(stateSettingParameters, stateParametersSet)
	for s.state != stateCallbackReturned {
		s.cond.Wait()
	}
	result, err := s.pending.result, s.pending.err
	s.pending = nil
	s.transition(stateCallbackReturned, stateStart)
	s.mu.Unlock()
	return result, err
}

// PollForCallback is the interpreter's own event-loop entry point. It
// blocks until the engine has parked a callback, executes it on the
// calling (interpreter) goroutine, and reports the result back to the
// waiting engine thread. It returns false if station was closed instead
// of receiving work (used during shutdown to unblock a polling
// interpreter loop).
func (s *CallbackStation) PollForCallback() bool {
	s.mu.Lock()
	for s.state != stateParametersSet {
		if s.state == stateStart && s.pending == nil && s.closed {
			s.mu.Unlock()
			return false
		}
		s.cond.Wait()
	}
	cb := s.pending
	s.transition(stateParametersSet, stateCallbackExecuting)
	s.mu.Unlock()

	result, err := cb.Run()

	s.mu.Lock()
	cb.result, cb.err = result, err
	s.transition(stateCallbackExecuting, stateCallbackReturned)
	s.mu.Unlock()
	return true
}

// Close marks the station as shut down, unblocking any goroutine parked
// in PollForCallback so the interpreter's event loop can exit cleanly.
func (s *CallbackStation) Close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
}
