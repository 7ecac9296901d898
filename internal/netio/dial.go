package netio

import (
	"context"
	"net"
)

// Dial opens an outbound TCP connection to addr and registers it with
// loop under handler, mirroring Listener.Accept's inbound registration
// path for the dialing side of a peer-to-peer handshake (spec §4.3).
func Dial(ctx context.Context, loop *Loop, addr string, newHandler func(conn *Connection) Handler) (*Connection, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	fd, err := rawFD(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	managed := newConnection(conn, nil, fd)
	managed.handler = newHandler(managed)
	if err := loop.track(managed); err != nil {
		conn.Close()
		return nil, err
	}
	return managed, nil
}
