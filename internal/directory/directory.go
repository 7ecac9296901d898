package directory

import (
	"sync"

	"floatingtemple/internal/logging"
)

// Connection is the narrow slice of internal/netio.Connection the
// directory depends on. Declaring it here (rather than importing netio)
// keeps the dependency edge pointing the natural direction: netio's
// handlers know about peer ids, not the other way around.
type Connection interface {
	Send(payload []byte) error
	Close() error
}

// Directory maps known peer ids to their live connection, guarded by a
// single RWMutex — read-mostly traffic (routing an outgoing message) vs.
// occasional writes (a peer connecting or disconnecting).
type Directory struct {
	mu    sync.RWMutex
	peers map[PeerID]Connection
	log   logging.Logger
}

// New creates an empty directory.
func New(log logging.Logger) *Directory {
	return &Directory{peers: make(map[PeerID]Connection), log: log}
}

// Register associates id with conn. If id is already registered — the
// dial/accept race of spec §4.3 — the existing connection wins and the
// caller's connection should be closed as the duplicate.
func (d *Directory) Register(id PeerID, conn Connection) (accepted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.peers[id]; exists {
		return false
	}
	d.peers[id] = conn
	d.log.Debugf("directory: registered peer %s", id)
	return true
}

// Lookup returns the live connection for id, if any.
func (d *Directory) Lookup(id PeerID) (Connection, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	conn, ok := d.peers[id]
	return conn, ok
}

// Remove drops id from the directory, e.g. after a disconnect.
func (d *Directory) Remove(id PeerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.peers, id)
	d.log.Debugf("directory: removed peer %s", id)
}

// Peers returns a snapshot of every currently-known peer id, used when
// broadcasting a committed transaction to every peer that might hold a
// copy of an affected object (spec §4.7).
func (d *Directory) Peers() []PeerID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]PeerID, 0, len(d.peers))
	for id := range d.peers {
		ids = append(ids, id)
	}
	return ids
}
