// Package netio implements the non-blocking connection engine: a
// readiness-driven scheduler multiplexing many peer connections over a
// bounded worker pool, instead of one goroutine per connection (spec
// §4.2).
//
// Grounded on the teacher's channel/goroutine idiom
// (pkg/mcast/core/peer.go poll/process, pkg/mcast/core/transport.go
// poll/consume) generalized from "one goroutine per logical peer" to an
// explicit blocked-set/ready-queue scheduler, backed by
// golang.org/x/sys/unix epoll on Linux with a portable fallback
// elsewhere, and an errgroup-managed worker pool
// (golang.org/x/sync/errgroup).
package netio

// Handler is the application-level consumer a Connection hands readiness
// events to. It never blocks: NextOutbound is polled whenever the
// connection is writable, HandleInbound is called once per fully framed
// message received, and Closed reports terminal connection loss.
type Handler interface {
	// NextOutbound returns the next queued outbound message, if any. A
	// false ok means nothing is pending right now.
	NextOutbound() ([]byte, bool)

	// HandleInbound is called once per complete frame received.
	HandleInbound(msg []byte)

	// Closed is called exactly once when the connection is no longer
	// usable; err is io.EOF on a clean peer-initiated close.
	Closed(err error)
}
