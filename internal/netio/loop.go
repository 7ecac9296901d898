package netio

import (
	"context"
	"errors"
	"net"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"floatingtemple/internal/logging"
)

var errNotSyscallConn = errors.New("netio: connection does not expose a raw file descriptor")

// Loop is the readiness-based connection scheduler (spec §4.2): it
// multiplexes an arbitrary number of Connections over a fixed-size
// worker pool, instead of the teacher's one-goroutine-per-peer model in
// pkg/mcast/core/peer.go. Connections sit in one of two sets — blocked
// (nothing to do) or ready (the poller says otherwise) — and workers
// pull from the ready queue, perform one recv+send attempt, and
// requeue.
type Loop struct {
	log logging.Logger

	poller poller

	mu    sync.Mutex
	conns map[int]*Connection

	readyMu sync.Mutex
	ready   []int

	workCh chan struct{}
}

// NewLoop creates a Loop. The worker pool size is given later to Run,
// which bounds the errgroup worker pool (golang.org/x/sync/errgroup),
// matching the "bounded group of
// send/receive workers, joined on shutdown" idiom this package borrows
// from the wider pack's connection engines.
func NewLoop(log logging.Logger) (*Loop, error) {
	p, err := newPoller()
	if err != nil {
		return nil, err
	}
	return &Loop{
		log:    log,
		poller: p,
		conns:  make(map[int]*Connection),
		workCh: make(chan struct{}, 1),
	}, nil
}

// Add registers conn with the Loop under the given application handler
// and returns the managed Connection.
func (l *Loop) Add(conn net.Conn, handler Handler) (*Connection, error) {
	fd, err := rawFD(conn)
	if err != nil {
		return nil, err
	}
	c := newConnection(conn, handler, fd)
	if err := l.track(c); err != nil {
		return nil, err
	}
	return c, nil
}

// track registers an already-constructed Connection with the poller.
// Used directly by Listener.Accept, which must build the application
// handler (which may itself need a reference to the Connection) before
// the connection starts receiving readiness events.
func (l *Loop) track(c *Connection) error {
	l.mu.Lock()
	l.conns[c.fd] = c
	l.mu.Unlock()

	if err := l.poller.add(c.fd); err != nil {
		l.mu.Lock()
		delete(l.conns, c.fd)
		l.mu.Unlock()
		return err
	}
	l.poller.wake()
	return nil
}

// Remove unregisters a connection from the Loop. It does not close the
// connection; call Connection.Close separately.
func (l *Loop) Remove(c *Connection) {
	l.mu.Lock()
	delete(l.conns, c.fd)
	l.mu.Unlock()
	l.poller.remove(c.fd)
}

// Run drives the blocked-set/ready-queue scheduler until ctx is
// cancelled: one goroutine repeatedly waits on the readiness primitive
// and feeds fds into the ready queue, while a bounded errgroup pool of
// workers drains that queue.
func (l *Loop) Run(ctx context.Context, workers int) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return l.pollLoop(gctx)
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return l.worker(gctx)
		})
	}

	<-gctx.Done()
	l.poller.wake()
	err := g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

func (l *Loop) pollLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fds, err := l.poller.wait(make([]int, 0, 64))
		if err != nil {
			l.log.Errorf("netio: poller wait failed: %v", err)
			return err
		}
		if len(fds) == 0 {
			continue
		}
		l.readyMu.Lock()
		l.ready = append(l.ready, fds...)
		l.readyMu.Unlock()

		select {
		case l.workCh <- struct{}{}:
		default:
		}
	}
}

func (l *Loop) worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.workCh:
		}

		for {
			fd, ok := l.popReady()
			if !ok {
				break
			}
			l.service(fd)
		}
	}
}

func (l *Loop) popReady() (int, bool) {
	l.readyMu.Lock()
	defer l.readyMu.Unlock()
	if len(l.ready) == 0 {
		return 0, false
	}
	fd := l.ready[0]
	l.ready = l.ready[1:]
	return fd, true
}

func (l *Loop) service(fd int) {
	l.mu.Lock()
	c := l.conns[fd]
	l.mu.Unlock()
	if c == nil {
		return
	}

	if err := c.recvOnce(); err != nil && !isTemporary(err) {
		l.closeConn(c, err)
		return
	}
	if err := c.sendOnce(); err != nil && !isTemporary(err) {
		l.closeConn(c, err)
		return
	}
}

func (l *Loop) closeConn(c *Connection, err error) {
	l.Remove(c)
	c.Close()
	c.handler.Closed(err)
}

// isTemporary reports whether err reflects a transient condition (e.g. a
// short read on a non-blocking socket) rather than connection loss.
func isTemporary(err error) bool {
	if e, ok := err.(interface{ Timeout() bool }); ok && e.Timeout() {
		return true
	}
	if e, ok := err.(interface{ Temporary() bool }); ok {
		return e.Temporary()
	}
	return false
}

func rawFD(conn net.Conn) (int, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return 0, errNotSyscallConn
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd int
	err = raw.Control(func(descriptor uintptr) {
		fd = int(descriptor)
	})
	if err != nil {
		return 0, err
	}
	return fd, nil
}
