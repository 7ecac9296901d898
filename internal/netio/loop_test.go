package netio

import (
	"context"
	"sync"
	"testing"
	"time"

	"floatingtemple/internal/testutil"
)

// captureHandler records every inbound message and echoes nothing back;
// the same type also drives outbound sends from its outbox.
type captureHandler struct {
	mu       sync.Mutex
	received [][]byte
	outbox   [][]byte
	closed   chan struct{}
}

func newCaptureHandler() *captureHandler {
	return &captureHandler{closed: make(chan struct{})}
}

func (h *captureHandler) NextOutbound() ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.outbox) == 0 {
		return nil, false
	}
	msg := h.outbox[0]
	h.outbox = h.outbox[1:]
	return msg, true
}

func (h *captureHandler) queue(msg []byte) {
	h.mu.Lock()
	h.outbox = append(h.outbox, msg)
	h.mu.Unlock()
}

func (h *captureHandler) HandleInbound(msg []byte) {
	h.mu.Lock()
	h.received = append(h.received, msg)
	h.mu.Unlock()
}

func (h *captureHandler) Closed(err error) {
	close(h.closed)
}

func (h *captureHandler) receivedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

func TestLoopDeliversFramedMessageAcrossTCPLoopback(t *testing.T) {
	log := testutil.NoopLogger{}

	serverLoop, err := NewLoop(log)
	if err != nil {
		t.Fatalf("NewLoop failed: %v", err)
	}
	clientLoop, err := NewLoop(log)
	if err != nil {
		t.Fatalf("NewLoop failed: %v", err)
	}

	ln, err := NewListener("127.0.0.1:0", log)
	if err != nil {
		t.Fatalf("NewListener failed: %v", err)
	}
	defer ln.Close()

	serverHandler := newCaptureHandler()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go ln.Accept(ctx, serverLoop, func(conn *Connection) Handler { return serverHandler })

	go serverLoop.Run(ctx, 2)
	go clientLoop.Run(ctx, 2)

	clientHandler := newCaptureHandler()
	_, err = Dial(ctx, clientLoop, ln.Addr().String(), func(conn *Connection) Handler { return clientHandler })
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	clientHandler.queue([]byte("hello floating temple"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if serverHandler.receivedCount() == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("server never received the framed message within the deadline")
}
