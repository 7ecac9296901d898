// Package interpreter re-exports the stable contract internal/bridge
// presents to an embedded language runtime (spec §4.8), so an
// interpreter implementation can depend on a single top-level import
// instead of reaching into internal/.
package interpreter

import "floatingtemple/internal/bridge"

type (
	Ref         = bridge.Ref
	Value       = bridge.Value
	Kind        = bridge.Kind
	LocalObject = bridge.LocalObject
	Interpreter = bridge.Interpreter
	Thread      = bridge.Thread
	Versioned   = bridge.Versioned
)

var (
	Empty         = bridge.Empty
	Int64         = bridge.Int64
	Uint64        = bridge.Uint64
	Double        = bridge.Double
	Float         = bridge.Float
	Bool          = bridge.Bool
	String        = bridge.String
	Bytes         = bridge.Bytes
	ObjectRef     = bridge.ObjectReference
	IsVersioned   = bridge.IsVersioned
	BindInterp    = bridge.BindInterpreter
	CurrentInterp = bridge.CurrentInterpreter
)
