package netio

import (
	"bytes"
	"net"
	"sync"
	"time"

	"floatingtemple/internal/wire"
)

type connState int

const (
	stateReadable connState = iota
	stateWritable
	stateClosed
)

// Connection owns one peer's TCP socket plus its inbound staging buffer
// and outbound write queue (spec §4.2 "per-connection state"). It never
// blocks the caller for long: recvOnce/sendOnce perform exactly one
// read or write attempt each, bounded by a short I/O deadline, driven by
// the Loop's workers when the readiness primitive reports the
// underlying fd ready.
type Connection struct {
	conn    net.Conn
	handler Handler

	mu      sync.Mutex
	state   connState
	inbound wire.FrameReader
	out     bytes.Buffer

	fd int // raw descriptor, registered with the Loop's poller
}

func newConnection(conn net.Conn, handler Handler, fd int) *Connection {
	return &Connection{conn: conn, handler: handler, fd: fd, state: stateReadable}
}

// RawFD returns the descriptor registered with the poller.
func (c *Connection) RawFD() int { return c.fd }

// Send queues payload for delivery, framing it first. It never blocks;
// actual socket writes happen from the Loop's worker pool when the
// connection becomes writable.
func (c *Connection) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateClosed {
		return net.ErrClosed
	}
	c.out.Write(wire.EncodeFrame(payload))
	return nil
}

// Close marks the connection closed and releases the underlying socket.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = stateClosed
	c.mu.Unlock()
	return c.conn.Close()
}

// recvOnce performs one read syscall's worth of inbound bytes and
// dispatches every complete frame it produces to the handler. Called by
// a Loop worker only after the readiness primitive reports this
// connection's fd readable.
func (c *Connection) recvOnce() error {
	buf := make([]byte, 64*1024)
	c.conn.SetReadDeadline(time.Now().Add(time.Millisecond))
	n, err := c.conn.Read(buf)
	if n > 0 {
		c.mu.Lock()
		c.inbound.Feed(buf[:n])
		c.mu.Unlock()
		for {
			c.mu.Lock()
			msg, ok := c.inbound.Next()
			c.mu.Unlock()
			if !ok {
				break
			}
			c.handler.HandleInbound(msg)
		}
	}
	return err
}

// sendOnce drains as much of the outbound queue as one write syscall
// will take, pulling fresh outbound messages from the handler when the
// queue runs dry.
func (c *Connection) sendOnce() error {
	c.mu.Lock()
	for {
		if msg, ok := c.handler.NextOutbound(); ok {
			c.out.Write(wire.EncodeFrame(msg))
			continue
		}
		break
	}
	if c.out.Len() == 0 {
		c.mu.Unlock()
		return nil
	}
	pending := append([]byte(nil), c.out.Bytes()...)
	c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(time.Millisecond))
	n, err := c.conn.Write(pending)
	c.mu.Lock()
	c.out.Next(n)
	c.mu.Unlock()
	return err
}
