package netio

import (
	"context"
	"net"

	"floatingtemple/internal/logging"
)

// Listener accepts inbound TCP connections and hands each to a Loop
// under a handler the caller supplies per accepted connection (spec
// §4.2 "Listener").
type Listener struct {
	ln  net.Listener
	log logging.Logger
}

// NewListener starts listening on addr.
func NewListener(addr string, log logging.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, log: log}, nil
}

// Addr returns the bound local address, useful when addr was ":0".
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Accept blocks until ctx is cancelled, calling newHandler for each
// inbound connection and registering the result with loop.
func (l *Listener) Accept(ctx context.Context, loop *Loop, newHandler func(conn *Connection) Handler) error {
	go func() {
		<-ctx.Done()
		l.ln.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			l.log.Errorf("netio: accept failed: %v", err)
			return err
		}

		fd, err := rawFD(conn)
		if err != nil {
			l.log.Warnf("netio: inbound connection from %s has no raw fd: %v", conn.RemoteAddr(), err)
			conn.Close()
			continue
		}
		managed := newConnection(conn, nil, fd)
		managed.handler = newHandler(managed)
		if err := loop.track(managed); err != nil {
			l.log.Warnf("netio: failed to register inbound connection from %s: %v", conn.RemoteAddr(), err)
			conn.Close()
			continue
		}
	}
}
