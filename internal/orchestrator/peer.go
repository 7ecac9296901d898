// Package orchestrator composes C1-C8 into a running peer (spec §4.9):
// the object store, directory, transaction engine, and (for network
// peers) the listen socket and outbound dial set, exposing the small
// public surface cmd/peer drives.
//
// Grounded on the teacher's test/testing.go NewTestingUnity (the
// composition-root shape: build every collaborator, wire them together,
// return one handle) and pkg/mcast/protocol.go's Unity/Shutdown lifecycle
// (the poweroff channel guarded by a mutex and a blocking Future,
// generalized here to a context.CancelFunc plus an errgroup.Group).
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"floatingtemple/internal/bridge"
	"floatingtemple/internal/config"
	"floatingtemple/internal/directory"
	"floatingtemple/internal/engine"
	"floatingtemple/internal/logging"
	"floatingtemple/internal/netio"
	"floatingtemple/internal/proto"
	"floatingtemple/internal/store"
)

// dialBackoffInitial and dialBackoffMax bound the retry schedule for
// reaching a known peer at startup (spec §7 "retries indefinitely with
// backoff").
const (
	dialBackoffInitial = 100 * time.Millisecond
	dialBackoffMax     = 5 * time.Second
)

// Peer is one running floating-temple peer: always an object store,
// directory and transaction engine; a listen socket and worker pool as
// well if it was created as a network peer.
type Peer struct {
	log    logging.Logger
	store  *store.Store
	dir    *directory.Directory
	engine *engine.Engine
	interp bridge.Interpreter
	selfID directory.PeerID

	listenAddr string

	loop     *netio.Loop
	listener *netio.Listener
	cancel   context.CancelFunc
	group    *errgroup.Group

	fetchMu      sync.Mutex
	pendingFetch map[store.ObjectID]chan proto.ObjectResponse

	stopOnce sync.Once
	stopErr  error
}

// CreateStandalonePeer builds a peer with no network component at all —
// purely in-process, for embedding or for tests (spec §4.9
// "CreateStandalonePeer()").
func CreateStandalonePeer(interp bridge.Interpreter) *Peer {
	log := logging.New()
	st := store.New(log)
	dir := directory.New(log)
	selfID := directory.NewPeerID()
	eng := engine.New(log, st, dir, selfID, nil)
	eng.SetInterpreter(interp)

	return &Peer{
		log:          log,
		store:        st,
		dir:          dir,
		engine:       eng,
		interp:       interp,
		selfID:       selfID,
		pendingFetch: make(map[store.ObjectID]chan proto.ObjectResponse),
	}
}

// CreateNetworkPeer builds a peer that listens on cfg.Port, dials every
// address in cfg.KnownPeers, and runs cfg.Workers send/receive workers
// over the connection engine (spec §4.9 "CreateNetworkPeer").
func CreateNetworkPeer(cfg config.PeerConfig, interp bridge.Interpreter) (*Peer, error) {
	log := logging.New()
	st := store.New(log)
	dir := directory.New(log)
	selfID := directory.NewPeerID()

	loop, err := netio.NewLoop(log)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: failed to create connection loop: %w", err)
	}

	eng := engine.New(log, st, dir, selfID, &directorySink{dir: dir})
	eng.SetInterpreter(interp)

	addr := fmt.Sprintf(":%d", cfg.Port)
	listener, err := netio.NewListener(addr, log)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: failed to listen on %s: %w", addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	p := &Peer{
		log:          log,
		store:        st,
		dir:          dir,
		engine:       eng,
		interp:       interp,
		selfID:       selfID,
		listenAddr:   listener.Addr().String(),
		loop:         loop,
		listener:     listener,
		cancel:       cancel,
		group:        group,
		pendingFetch: make(map[store.ObjectID]chan proto.ObjectResponse),
	}

	group.Go(func() error { return loop.Run(gctx, cfg.Workers) })
	group.Go(func() error { return listener.Accept(gctx, loop, p.newHandler) })
	for _, addr := range cfg.KnownPeers {
		addr := addr
		group.Go(func() error { return p.dialWithRetry(gctx, addr) })
	}

	log.Infof("orchestrator: peer %s listening on %s", selfID, p.listenAddr)
	return p, nil
}

// newHandler builds the connhandler for a freshly accepted or dialed
// connection and sends the mandatory first Hello (spec §6 "first message
// on a new connection").
func (p *Peer) newHandler(conn *netio.Connection) netio.Handler {
	h := newConnHandler(p)
	h.conn = conn

	hello := proto.Hello{PeerID: p.selfID, Address: p.listenAddr}
	env := proto.Envelope{Kind: proto.KindHello, Body: hello.Encode()}
	if err := conn.Send(env.Encode()); err != nil {
		p.log.Warnf("orchestrator: failed to send Hello: %v", err)
	}
	return h
}

// dialWithRetry keeps trying to reach addr with exponential backoff
// until it succeeds or ctx is cancelled (spec §7 "a peer that cannot
// reach a known peer retries indefinitely").
func (p *Peer) dialWithRetry(ctx context.Context, addr string) error {
	backoff := dialBackoffInitial
	for {
		_, err := netio.Dial(ctx, p.loop, addr, p.newHandler)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		p.log.Warnf("orchestrator: failed to dial %s, retrying in %s: %v", addr, backoff, err)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil
		}
		backoff *= 2
		if backoff > dialBackoffMax {
			backoff = dialBackoffMax
		}
	}
}

// RunProgram creates obj as a fresh anonymous object and drives one
// top-level method call against it through the transaction engine,
// retrying on conflict (spec §4.9 "RunProgram"). linger is consulted by
// the caller (cmd/peer), not here: a standalone in-process call to
// RunProgram has no network component to keep alive regardless.
func (p *Peer) RunProgram(obj bridge.LocalObject, method string, linger bool) (bridge.Value, error) {
	th := p.engine.NewThread()
	ref := th.CreateObject(obj, "", true)

	result := p.engine.RunTransaction(func(th *engine.Thread) (bridge.Value, bool) {
		return th.CallMethod(ref, method, nil)
	})
	return result, nil
}

// Stop performs the orderly shutdown spec §4.9 describes: stop
// accepting, notify connected peers, cancel the worker pool, and join
// every background goroutine, bounded by ctx's deadline.
func (p *Peer) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() {
		if p.cancel == nil {
			return // standalone peer: nothing to join
		}

		bye := proto.Envelope{Kind: proto.KindBye, Body: proto.Bye{PeerID: p.selfID}.Encode()}
		for _, id := range p.dir.Peers() {
			if conn, ok := p.dir.Lookup(id); ok {
				conn.Send(bye.Encode())
			}
		}

		p.listener.Close()
		p.cancel()

		done := make(chan error, 1)
		go func() { done <- p.group.Wait() }()

		select {
		case err := <-done:
			p.stopErr = err
		case <-ctx.Done():
			p.stopErr = ctx.Err()
		}
	})
	return p.stopErr
}

// RequestObject asks every currently-known peer for id and returns once
// a peer answers with the object or ctx is done — the synchronous fetch
// path backing an interpreter that references an object it has never
// locally seen (spec §6 "ObjectRequest"/"ObjectResponse"). A Found: false
// answer carries no object id, so it does not end the wait. Returns false
// if no peer supplies the object before ctx is done.
func (p *Peer) RequestObject(ctx context.Context, id store.ObjectID) (bridge.LocalObject, bool) {
	peers := p.dir.Peers()
	if len(peers) == 0 {
		return nil, false
	}

	ch := make(chan proto.ObjectResponse, len(peers))
	p.fetchMu.Lock()
	p.pendingFetch[id] = ch
	p.fetchMu.Unlock()
	defer func() {
		p.fetchMu.Lock()
		delete(p.pendingFetch, id)
		p.fetchMu.Unlock()
	}()

	req := proto.Envelope{Kind: proto.KindObjectRequest, Body: proto.ObjectRequest{ObjectID: [16]byte(id)}.Encode()}
	for _, peerID := range peers {
		if conn, ok := p.dir.Lookup(peerID); ok {
			conn.Send(req.Encode())
		}
	}

	select {
	case resp := <-ch:
		if !resp.Found {
			return nil, false
		}
		ref, ok := p.store.RefForObjectID(id)
		if !ok {
			return nil, false
		}
		state, _, err := p.store.GetVersion(ref, p.engine.Snapshot())
		if err != nil {
			return nil, false
		}
		return state, true
	case <-ctx.Done():
		return nil, false
	}
}
