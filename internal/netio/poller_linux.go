//go:build linux

package netio

import "golang.org/x/sys/unix"

// epollPoller backs poller on Linux with a real readiness primitive
// (spec §4.2), grounded on the epoll usage in
// other_examples/31c3f1e2_ehrlich-b-go-ublk__internal-queue-runner.go and
// other_examples/e54360d7_momentics-hioload-ws__internal-transport-transport_linux_uring.go.
// A self-pipe-style wake fd (here, an eventfd) lets the Loop interrupt
// EpollWait from another goroutine without a signal.
type epollPoller struct {
	epfd   int
	wakeFD int
}

func newPoller() (poller, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	wakeFD, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}
	p := &epollPoller{epfd: epfd, wakeFD: wakeFD}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFD, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakeFD)}); err != nil {
		unix.Close(epfd)
		unix.Close(wakeFD)
		return nil, err
	}
	return p, nil
}

func (p *epollPoller) add(fd int) error {
	ev := &unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLOUT, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev)
}

func (p *epollPoller) remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) wait(dst []int) ([]int, error) {
	events := make([]unix.EpollEvent, 128)
	n, err := unix.EpollWait(p.epfd, events, -1)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, err
	}
	for i := 0; i < n; i++ {
		fd := int(events[i].Fd)
		if fd == p.wakeFD {
			drainEventfd(p.wakeFD)
			continue
		}
		dst = append(dst, fd)
	}
	return dst, nil
}

func (p *epollPoller) wake() {
	one := []byte{1, 0, 0, 0, 0, 0, 0, 0}
	unix.Write(p.wakeFD, one)
}

func (p *epollPoller) close() error {
	unix.Close(p.wakeFD)
	return unix.Close(p.epfd)
}

func drainEventfd(fd int) {
	buf := make([]byte, 8)
	unix.Read(fd, buf)
}
