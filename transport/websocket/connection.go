package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/wricardo/mcp-training/arenaclient/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1 << 20
)

var (
	ErrTransportNotReady = errors.New("transport not ready")
	ErrClosed            = errors.New("connection closed")
)

// Handler receives every decoded inbound message, one at a time, on the
// read goroutine.
type Handler func(protocol.Message)

// Connection is a client side WebSocket link to the arena server.
type Connection struct {
	url     string
	header  http.Header
	dialer  *websocket.Dialer
	handler Handler
	logger  zerolog.Logger

	pingPeriod time.Duration

	started atomic.Bool
	ready   chan struct{}
	failed  chan struct{}
	done    chan struct{}
	dialErr error

	// mu serializes writers and guards the fields below.
	mu        sync.Mutex
	conn      *websocket.Conn
	nextIndex uint64
	closed    bool
}

// Option configures a Connection.
type Option func(*Connection)

// WithLogger sets the logger used for transport diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Connection) { c.logger = logger }
}

// WithDialer replaces websocket.DefaultDialer.
func WithDialer(dialer *websocket.Dialer) Option {
	return func(c *Connection) { c.dialer = dialer }
}

// WithHeader sets extra handshake headers.
func WithHeader(header http.Header) Option {
	return func(c *Connection) { c.header = header }
}

// WithPingPeriod overrides the keepalive interval.
func WithPingPeriod(d time.Duration) Option {
	return func(c *Connection) { c.pingPeriod = d }
}

// NewConnection creates an unstarted connection to url.
func NewConnection(url string, handler Handler, opts ...Option) *Connection {
	if handler == nil {
		handler = func(protocol.Message) {}
	}

	c := &Connection{
		url:        url,
		dialer:     websocket.DefaultDialer,
		handler:    handler,
		logger:     zerolog.Nop(),
		pingPeriod: pingPeriod,
		ready:      make(chan struct{}),
		failed:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pingPeriod <= 0 {
		c.pingPeriod = pingPeriod
	}
	return c
}

// Start dials the server in the background. Calls after the first are no-ops.
func (c *Connection) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go c.dial(ctx)
}

// WaitUntilReady blocks until the handshake has completed, the dial has
// failed, or ctx is done.
func (c *Connection) WaitUntilReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-c.failed:
		return c.dialErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready reports whether the handshake has completed.
func (c *Connection) Ready() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

// Done is closed once the connection has stopped reading.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Send stamps msg with the next correlation index and writes it as one frame.
func (c *Connection) Send(msg protocol.Message) (uint64, error) {
	return c.SendWith(msg, nil)
}

// SendWith is Send with a hook that runs after the index is chosen and
// before the frame is written. A hook error aborts the send without
// consuming the index.
func (c *Connection) SendWith(msg protocol.Message, beforeWrite func(index uint64) error) (uint64, error) {
	if !c.Ready() {
		return 0, ErrTransportNotReady
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClosed
	}

	index := c.nextIndex
	msg.Index = index

	frame, err := protocol.Encode(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s: %w", msg.Type, err)
	}

	if beforeWrite != nil {
		if err := beforeWrite(index); err != nil {
			return 0, err
		}
	}

	// Once a write is attempted the index is spent, even if it fails.
	c.nextIndex++

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return index, fmt.Errorf("failed to write frame %d: %w", index, err)
	}

	c.logger.Debug().Uint64("index", index).Stringer("type", msg.Type).Msg("sent message")
	return index, nil
}

// Close sends a close frame and releases the socket.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	// Never dialed: nothing will close the lifecycle channels for us.
	if c.started.CompareAndSwap(false, true) {
		c.dialErr = ErrClosed
		close(c.failed)
		close(c.done)
		return nil
	}

	if c.conn == nil {
		return nil
	}

	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return c.conn.Close()
}

func (c *Connection) dial(ctx context.Context) {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		if resp != nil {
			c.logger.Warn().Str("status", resp.Status).Msg("handshake rejected")
		}
		c.fail(fmt.Errorf("failed to dial %s: %w", c.url, err))
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		c.fail(ErrClosed)
		return
	}
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info().Str("url", c.url).Msg("connected")
	close(c.ready)

	go c.pingLoop()
	c.readLoop()
}

func (c *Connection) fail(err error) {
	c.logger.Error().Err(err).Msg("connection failed")
	c.dialErr = err
	close(c.failed)
	close(c.done)
}

// readLoop pumps frames from the socket to the handler.
func (c *Connection) readLoop() {
	defer close(c.done)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("connection lost")
			} else {
				c.logger.Info().Msg("connection closed")
			}
			return
		}

		msg, err := protocol.Decode(frame)
		if err != nil {
			c.logger.Warn().Err(err).Bytes("frame", frame).Msg("dropping undecodable frame")
			continue
		}

		c.logger.Debug().Uint64("index", msg.Index).Stringer("type", msg.Type).Msg("received message")
		c.handler(msg)
	}
}

func (c *Connection) pingLoop() {
	ticker := time.NewTicker(c.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug().Err(err).Msg("ping failed")
				return
			}
		case <-c.done:
			return
		}
	}
}
