package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// Conn is the subset of a websocket connection the consumer needs.
type Conn interface {
	ReadMessage() (int, []byte, error)
	Close() error
}

type DialFunc func(ctx context.Context, url string) (Conn, error)

func dialWebsocket(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	return conn, err
}

const (
	defaultMaxAttempts = 10
	defaultBackoffBase = time.Second
	defaultBackoffMax  = 30 * time.Second
)

// Options tune the reconnect behaviour. Zero values take defaults.
type Options struct {
	MaxReconnectAttempts int
	BackoffBase          time.Duration
	BackoffMax           time.Duration
	Dial                 DialFunc
}

// Client is a long-lived websocket consumer with an explicit reconnect
// state machine: disconnected, connecting, connected, an attempt
// counter reset on success, and a cancellable pending timer so a
// scheduled reconnect can never fire after Disconnect.
type Client struct {
	name      string
	url       string
	handle    func(ctx context.Context, frame []byte)
	onConnect func()

	dial        DialFunc
	maxAttempts int
	backoffBase time.Duration
	backoffMax  time.Duration

	mu        sync.Mutex
	state     State
	attempt   int
	reconnect bool
	timer     *time.Timer
	conn      Conn
}

func NewClient(name, url string, handle func(ctx context.Context, frame []byte), onConnect func(), opts Options) *Client {
	c := &Client{
		name:        name,
		url:         url,
		handle:      handle,
		onConnect:   onConnect,
		dial:        opts.Dial,
		maxAttempts: opts.MaxReconnectAttempts,
		backoffBase: opts.BackoffBase,
		backoffMax:  opts.BackoffMax,
	}
	if c.dial == nil {
		c.dial = dialWebsocket
	}
	if c.maxAttempts == 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.backoffBase == 0 {
		c.backoffBase = defaultBackoffBase
	}
	if c.backoffMax == 0 {
		c.backoffMax = defaultBackoffMax
	}
	return c
}

// Connect dials and starts the read loop. A failed dial schedules a
// reconnect like an abnormal close would, in addition to returning the
// error to the initial caller.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.reconnect = true
	c.state = StateConnecting
	c.mu.Unlock()

	conn, err := c.dial(ctx, c.url)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		if c.reconnect {
			c.scheduleReconnect(ctx)
		}
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	if !c.reconnect {
		// Disconnect raced the dial.
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.state = StateConnected
	c.attempt = 0
	c.mu.Unlock()

	slog.Info("stream connected",
		slog.String("url", c.url),
		slog.String("module", c.name),
	)

	if c.onConnect != nil {
		c.onConnect()
	}

	go c.readLoop(ctx, conn)
	return nil
}

func (c *Client) readLoop(ctx context.Context, conn Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			break
		}
		c.dispatch(ctx, frame)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
	c.state = StateDisconnected
	slog.Info("stream disconnected", slog.String("module", c.name))
	if c.reconnect {
		c.scheduleReconnect(ctx)
	}
}

// dispatch isolates the handler so one bad frame cannot stop the
// stream.
func (c *Client) dispatch(ctx context.Context, frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic handling stream frame",
				slog.Any("panic", r),
				slog.String("module", c.name),
			)
		}
	}()
	c.handle(ctx, frame)
}

// scheduleReconnect must be called with the lock held.
func (c *Client) scheduleReconnect(ctx context.Context) {
	if c.attempt >= c.maxAttempts {
		slog.Error("giving up reconnecting",
			slog.Int("attempts", c.maxAttempts),
			slog.String("module", c.name),
		)
		return
	}

	c.attempt++
	delay := c.backoffBase << (c.attempt - 1)
	if delay > c.backoffMax {
		delay = c.backoffMax
	}

	slog.Info("scheduling reconnect",
		slog.Int("attempt", c.attempt),
		slog.Int("max", c.maxAttempts),
		slog.Duration("delay", delay),
		slog.String("module", c.name),
	)

	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if !c.reconnect {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		c.mu.Unlock()
		c.Connect(ctx)
	})
}

// Disconnect stops the consumer for good: no reconnect flag, pending
// timer cancelled, socket closed.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnect = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.state = StateDisconnected
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}
