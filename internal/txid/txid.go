// Package txid implements the totally-ordered transaction identifier that
// acts as Floating Temple's logical clock (spec §3, §4.4).
package txid

import "fmt"

// ID is a 192-bit tuple (A, B, C), ordered lexicographically. A is the
// "epoch" component, which moves when a peer's Clock leaps onto a remote
// id it has seen (spec §4.7's id-assignment rule); B is normally the
// minting peer's identity component; C is the peer's own monotonic
// low-order counter. Only the total order over the triple matters — the
// split is an implementation convenience, not semantics the interpreter
// sees.
type ID struct {
	A, B, C uint64
}

// Min and Max are the reserved sentinels used as ordering bookends.
var (
	Min = ID{0, 0, 0}
	Max = ID{^uint64(0), ^uint64(0), ^uint64(0)}
)

// Valid reports whether id could be a legitimately committed transaction
// id: strictly between Min and Max.
func (id ID) Valid() bool {
	return Min.Less(id) && id.Less(Max)
}

// Less implements the lexicographic total order over (A, B, C).
func (id ID) Less(other ID) bool {
	if id.A != other.A {
		return id.A < other.A
	}
	if id.B != other.B {
		return id.B < other.B
	}
	return id.C < other.C
}

// Equal reports whether id and other name the same transaction.
func (id ID) Equal(other ID) bool {
	return id == other
}

// Compare returns -1, 0, or 1 as id is less than, equal to, or greater
// than other.
func (id ID) Compare(other ID) int {
	switch {
	case id.Equal(other):
		return 0
	case id.Less(other):
		return -1
	default:
		return 1
	}
}

// Increment returns the next id after id: ordinary base-2^64 increment
// across C -> B -> A. Overflowing A is a programming error — it means
// more than 2^64 epochs have been assigned on this peer, which cannot
// happen in a real session — so Increment panics rather than wrapping
// silently.
func (id ID) Increment() ID {
	if id.C != ^uint64(0) {
		id.C++
		return id
	}
	id.C = 0
	if id.B != ^uint64(0) {
		id.B++
		return id
	}
	id.B = 0
	if id.A == ^uint64(0) {
		panic(fmt.Sprintf("txid: increment overflow on %+v", id))
	}
	id.A++
	return id
}

// String renders id as "A.B.C" for logging.
func (id ID) String() string {
	return fmt.Sprintf("%d.%d.%d", id.A, id.B, id.C)
}
