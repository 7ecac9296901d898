package netio

// poller is the OS readiness primitive behind Loop: it reports which
// registered descriptors are ready to read or write, and exposes an
// explicit wake call so the Loop can interrupt a blocked wait to pick up
// newly-added connections or to shut down (spec §4.2 "internal wakeup
// descriptor"). Exactly one implementation is compiled in per
// GOOS — epoll on Linux, a portable fallback everywhere else.
type poller interface {
	add(fd int) error
	remove(fd int) error
	// wait blocks until at least one registered fd is ready, the wake
	// call fires, or an error occurs, and appends ready fds to dst.
	wait(dst []int) ([]int, error)
	wake()
	close() error
}
