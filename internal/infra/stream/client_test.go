package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.frames:
		return 1, f, nil
	case <-c.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// fakeDialer hands out fresh fakeConns and records every dial.
type fakeDialer struct {
	mu       sync.Mutex
	conns    []*fakeConn
	failNext int
}

func (d *fakeDialer) dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failNext != 0 {
		if d.failNext > 0 {
			d.failNext--
		}
		return nil, errors.New("dial refused")
	}
	conn := newFakeConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) latest() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func fastOptions(dial DialFunc, maxAttempts int) Options {
	return Options{
		MaxReconnectAttempts: maxAttempts,
		BackoffBase:          time.Millisecond,
		BackoffMax:           4 * time.Millisecond,
		Dial:                 dial,
	}
}

func TestClientConnectDispatchesFrames(t *testing.T) {
	dialer := &fakeDialer{}
	var mu sync.Mutex
	var got []string
	c := NewClient("test", "ws://example", func(ctx context.Context, frame []byte) {
		mu.Lock()
		got = append(got, string(frame))
		mu.Unlock()
	}, nil, fastOptions(dialer.dial, 3))
	defer c.Disconnect()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if c.State() != StateConnected {
		t.Fatalf("expected connected, got %v", c.State())
	}

	dialer.latest().frames <- []byte("one")
	dialer.latest().frames <- []byte("two")

	waitFor(t, "frames dispatched", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	})
}

func TestClientReconnectsAfterAbnormalClose(t *testing.T) {
	dialer := &fakeDialer{}
	c := NewClient("test", "ws://example", func(ctx context.Context, frame []byte) {}, nil,
		fastOptions(dialer.dial, 5))
	defer c.Disconnect()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	dialer.latest().Close()

	waitFor(t, "reconnect", func() bool {
		return dialer.dials() == 2 && c.State() == StateConnected
	})
	if c.Attempts() != 0 {
		t.Fatalf("expected attempt counter reset on success, got %d", c.Attempts())
	}
}

func TestClientGivesUpAfterMaxAttempts(t *testing.T) {
	dialer := &fakeDialer{failNext: -1}
	c := NewClient("test", "ws://example", func(ctx context.Context, frame []byte) {}, nil,
		fastOptions(dialer.dial, 3))
	defer c.Disconnect()

	if err := c.Connect(context.Background()); err == nil {
		t.Fatalf("expected dial error")
	}

	waitFor(t, "attempts exhausted", func() bool {
		return c.Attempts() == 3
	})
	// Give any stray timer a chance to fire, then confirm it stays down.
	time.Sleep(20 * time.Millisecond)
	if c.State() != StateDisconnected {
		t.Fatalf("expected permanent disconnect, got %v", c.State())
	}
	if c.Attempts() != 3 {
		t.Fatalf("expected attempts capped at 3, got %d", c.Attempts())
	}
}

func TestClientRecoversWhenDialSucceedsLater(t *testing.T) {
	dialer := &fakeDialer{failNext: 2}
	c := NewClient("test", "ws://example", func(ctx context.Context, frame []byte) {}, nil,
		fastOptions(dialer.dial, 5))
	defer c.Disconnect()

	if err := c.Connect(context.Background()); err == nil {
		t.Fatalf("expected first dial to fail")
	}

	waitFor(t, "eventual connect", func() bool {
		return c.State() == StateConnected
	})
	if c.Attempts() != 0 {
		t.Fatalf("expected attempt counter reset, got %d", c.Attempts())
	}
}

func TestDisconnectCancelsPendingReconnect(t *testing.T) {
	dialer := &fakeDialer{failNext: -1}
	c := NewClient("test", "ws://example", func(ctx context.Context, frame []byte) {}, nil,
		Options{
			MaxReconnectAttempts: 5,
			BackoffBase:          time.Hour,
			BackoffMax:           time.Hour,
			Dial:                 dialer.dial,
		})

	c.Connect(context.Background())
	if c.Attempts() != 1 {
		t.Fatalf("expected one scheduled attempt, got %d", c.Attempts())
	}

	c.Disconnect()

	if c.State() != StateDisconnected {
		t.Fatalf("expected disconnected, got %v", c.State())
	}
}

func TestDispatchSurvivesHandlerPanic(t *testing.T) {
	dialer := &fakeDialer{}
	var mu sync.Mutex
	var got []string
	c := NewClient("test", "ws://example", func(ctx context.Context, frame []byte) {
		if string(frame) == "bad" {
			panic("bad frame")
		}
		mu.Lock()
		got = append(got, string(frame))
		mu.Unlock()
	}, nil, fastOptions(dialer.dial, 3))
	defer c.Disconnect()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	dialer.latest().frames <- []byte("bad")
	dialer.latest().frames <- []byte("good")

	waitFor(t, "frame after panic", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == "good"
	})
}

func TestOnConnectRunsEveryConnect(t *testing.T) {
	dialer := &fakeDialer{}
	var mu sync.Mutex
	connects := 0
	c := NewClient("test", "ws://example", func(ctx context.Context, frame []byte) {}, func() {
		mu.Lock()
		connects++
		mu.Unlock()
	}, fastOptions(dialer.dial, 5))
	defer c.Disconnect()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	dialer.latest().Close()

	waitFor(t, "second connect", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return connects == 2
	})
}
