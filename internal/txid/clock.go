package txid

import "sync"

// Clock is a peer-local transaction id generator. It plays the role of
// the teacher's LogicalClock (Tick/Tock/Leap in pkg/mcast/core/peer.go),
// generalized from a single uint64 counter to the 192-bit ID of spec §4.4.
//
// B is normally fixed to this peer's identity component (so two peers
// minting ids concurrently from the same C never collide); C is the
// monotonically increasing counter. A starts at 1 (A == 0 is reserved as
// part of the Min sentinel) and only moves when Leap pushes the clock
// into a new epoch. Leap may also adopt the received id's B, trading the
// peer-identity reading of B for the guarantee that every later Tick
// strictly exceeds whatever was leapt past.
type Clock struct {
	mu      sync.Mutex
	current ID
}

// NewClock creates a clock seeded with the given peer-identity component
// (typically derived from the peer id) in B, starting at the smallest
// valid id for that peer.
func NewClock(peerComponent uint64) *Clock {
	return &Clock{current: ID{A: 1, B: peerComponent, C: 0}}
}

// Tick returns the next id after the clock's current position, advancing
// the clock to that id.
func (c *Clock) Tick() ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Increment()
	return c.current
}

// Tock returns the clock's current position without advancing it.
func (c *Clock) Tock() ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Leap advances the clock so that its next Tick is guaranteed to exceed
// received, if it doesn't already. This is the "bump the counter above a
// received id" rule of spec §4.4/§4.7: when ordering a transaction after
// one observed from a remote peer, the clock is landed exactly on
// received so the next Increment (which only ever advances C, B, then A
// in that order) is strictly greater regardless of how received.B
// compares to this peer's own B — landing on received.A alone with the
// local B left in place can still sort below received when the local B
// is smaller.
func (c *Clock) Leap(received ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current.Less(received) {
		return
	}
	c.current = received
}
