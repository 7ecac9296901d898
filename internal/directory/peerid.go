// Package directory tracks process-unique peer identifiers and the map
// from peer id to live connection (spec §3, §4.3).
package directory

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// PeerID is a 128-bit identifier produced once at peer startup.
type PeerID [16]byte

// Min and Max are the reserved ordering bookends (spec §3 "Peer id").
var (
	Min = PeerID{}
	Max = func() PeerID {
		var id PeerID
		for i := range id {
			id[i] = 0xff
		}
		return id
	}()
)

// NewPeerID generates a fresh random peer id.
func NewPeerID() PeerID {
	return PeerID(uuid.New())
}

// String renders the peer id as a UUID string for logging.
func (id PeerID) String() string {
	return uuid.UUID(id).String()
}

// Less implements the total order the Min/Max sentinels bound. Peers
// racing to dial one another are not resolved with it: Directory.Register
// keeps whichever connection registered first.
func (id PeerID) Less(other PeerID) bool {
	for i := range id {
		if id[i] != other[i] {
			return id[i] < other[i]
		}
	}
	return false
}

// Uint64Halves splits the id into its two big-endian 64-bit words, the
// wire representation spec §6 mandates for every 128-bit id.
func (id PeerID) Uint64Halves() (hi, lo uint64) {
	return binary.BigEndian.Uint64(id[:8]), binary.BigEndian.Uint64(id[8:])
}

// PeerIDFromHalves reconstructs a PeerID from its two big-endian 64-bit
// words, the inverse of Uint64Halves.
func PeerIDFromHalves(hi, lo uint64) PeerID {
	var id PeerID
	binary.BigEndian.PutUint64(id[:8], hi)
	binary.BigEndian.PutUint64(id[8:], lo)
	return id
}

// ParsePeerIDString is the inverse of String, used when a peer id has
// been stored as a map key string (e.g. store.Store's known-peers set)
// and needs to be recovered as a PeerID to address a directory lookup.
func ParsePeerIDString(s string) (PeerID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return PeerID{}, err
	}
	return PeerID(u), nil
}
