package orchestrator

import (
	"floatingtemple/internal/directory"
	"floatingtemple/internal/netio"
	"floatingtemple/internal/proto"
	"floatingtemple/internal/store"
)

// connHandler wires one peer connection into the engine: inbound
// TransactionRecords are applied, Hello registers the remote peer's
// identity in the directory, and ObjectRequest/ObjectResponse implement
// the on-demand fetch path for an object this peer has never seen
// (spec §6 "ObjectRequest"/"ObjectResponse").
//
// Grounded on the teacher's core/peer.go Peer.process dispatch switch,
// generalized from one RPC command type to the five message kinds
// proto.Kind declares.
type connHandler struct {
	peer *Peer
	conn *netio.Connection

	remoteID    directory.PeerID
	remoteKnown bool
}

func newConnHandler(p *Peer) *connHandler {
	return &connHandler{peer: p}
}

// NextOutbound is never polled for fresh work here — every message this
// handler sends goes straight through conn.Send from HandleInbound or
// from Peer's own outbound sink, rather than being queued for the Loop
// to pull lazily.
func (h *connHandler) NextOutbound() ([]byte, bool) { return nil, false }

func (h *connHandler) HandleInbound(msg []byte) {
	env, err := proto.DecodeEnvelope(msg)
	if err != nil {
		h.peer.log.Errorf("orchestrator: malformed envelope from %s: %v", h.remoteAddr(), err)
		return
	}

	switch env.Kind {
	case proto.KindHello:
		hello, err := proto.DecodeHello(env.Body)
		if err != nil {
			h.peer.log.Errorf("orchestrator: malformed Hello: %v", err)
			return
		}
		h.remoteID = hello.PeerID
		h.remoteKnown = true
		if !h.peer.dir.Register(hello.PeerID, h.conn) {
			h.peer.log.Debugf("orchestrator: duplicate connection to %s, keeping the existing one", hello.PeerID)
			h.conn.Close()
			return
		}
		h.peer.engine.RetryOutbox(hello.PeerID)

	case proto.KindTransactionRecord:
		rec, err := proto.DecodeTransactionRecord(env.Body)
		if err != nil {
			h.peer.log.Errorf("orchestrator: malformed TransactionRecord: %v", err)
			return
		}
		h.peer.engine.ApplyRemote(&rec)

	case proto.KindObjectRequest:
		req, err := proto.DecodeObjectRequest(env.Body)
		if err != nil {
			h.peer.log.Errorf("orchestrator: malformed ObjectRequest: %v", err)
			return
		}
		h.respondToObjectRequest(req)

	case proto.KindObjectResponse:
		resp, err := proto.DecodeObjectResponse(env.Body)
		if err != nil {
			h.peer.log.Errorf("orchestrator: malformed ObjectResponse: %v", err)
			return
		}
		h.deliverObjectResponse(resp)

	case proto.KindBye:
		h.conn.Close()

	default:
		h.peer.log.Errorf("orchestrator: unknown message kind %d from %s", env.Kind, h.remoteAddr())
	}
}

func (h *connHandler) Closed(err error) {
	if h.remoteKnown {
		h.peer.dir.Remove(h.remoteID)
		h.peer.log.Infof("orchestrator: peer %s disconnected: %v", h.remoteID, err)
	}
}

func (h *connHandler) remoteAddr() string {
	if h.remoteKnown {
		return h.remoteID.String()
	}
	return "unidentified peer"
}

// respondToObjectRequest answers with the current head if this peer
// knows the object, or Found: false otherwise (spec §6).
func (h *connHandler) respondToObjectRequest(req proto.ObjectRequest) {
	resp := h.peer.engine.FetchLocalObject(store.ObjectID(req.ObjectID))
	env := proto.Envelope{Kind: proto.KindObjectResponse, Body: resp.Encode()}
	if err := h.conn.Send(env.Encode()); err != nil {
		h.peer.log.Warnf("orchestrator: failed to answer ObjectRequest: %v", err)
	}
}

// deliverObjectResponse adopts a fetched baseline version the engine
// didn't otherwise have, then wakes any in-flight RequestObject waiter.
func (h *connHandler) deliverObjectResponse(resp proto.ObjectResponse) {
	if resp.Found {
		h.peer.engine.AdoptFetchedVersion(resp.Version)
	}

	h.peer.fetchMu.Lock()
	ch, ok := h.peer.pendingFetch[store.ObjectID(resp.Version.ObjectID)]
	delete(h.peer.pendingFetch, store.ObjectID(resp.Version.ObjectID))
	h.peer.fetchMu.Unlock()
	if ok {
		ch <- resp
	}
}
