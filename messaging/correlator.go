package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wricardo/mcp-training/arenaclient/protocol"
)

var (
	ErrDuplicateIndex = errors.New("duplicate message index")
	ErrTimeout        = errors.New("timed out waiting for response")
)

// Dispatcher receives messages that are not replies to a pending request.
type Dispatcher interface {
	Dispatch(protocol.Message)
}

// Correlator pairs replies with the requests that caused them.
type Correlator struct {
	events Dispatcher
	logger zerolog.Logger

	mu      sync.Mutex
	pending map[uint64]*Pending
}

// Pending is a one-shot completion for a single outstanding request.
type Pending struct {
	index    uint64
	deadline time.Time
	reply    chan protocol.Message
	owner    *Correlator
}

// NewCorrelator creates a Correlator forwarding unmatched traffic to events.
func NewCorrelator(events Dispatcher, logger zerolog.Logger) *Correlator {
	return &Correlator{
		events:  events,
		logger:  logger,
		pending: make(map[uint64]*Pending),
	}
}

// Register creates the pending entry for index. The entry lives until a
// reply resolves it or the waiter gives up.
func (c *Correlator) Register(index uint64) (*Pending, error) {
	return c.register(index, time.Time{})
}

// RegisterWithDeadline is Register with the wait bounded by timeout.
func (c *Correlator) RegisterWithDeadline(index uint64, timeout time.Duration) (*Pending, error) {
	return c.register(index, time.Now().Add(timeout))
}

func (c *Correlator) register(index uint64, deadline time.Time) (*Pending, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.pending[index]; exists {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateIndex, index)
	}

	p := &Pending{
		index:    index,
		deadline: deadline,
		reply:    make(chan protocol.Message, 1),
		owner:    c,
	}
	c.pending[index] = p
	return p, nil
}

// Cancel drops the entry for index, if any.
func (c *Correlator) Cancel(index uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, index)
}

// Len reports the number of outstanding requests.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Handle routes one inbound message. It is meant to be the Connection's
// handler and is therefore called from a single goroutine.
func (c *Correlator) Handle(msg protocol.Message) {
	if msg.Type == protocol.ServerArenaEventType {
		c.events.Dispatch(msg)
		return
	}

	c.mu.Lock()
	p, exists := c.pending[msg.Index]
	if exists {
		delete(c.pending, msg.Index)
		// Buffered, and only reachable once since the entry is gone.
		p.reply <- msg
	}
	c.mu.Unlock()

	if !exists {
		c.logger.Debug().Uint64("index", msg.Index).Stringer("type", msg.Type).Msg("no pending request, treating as event")
		c.events.Dispatch(msg)
	}
}

// Index returns the correlation index this entry waits on.
func (p *Pending) Index() uint64 {
	return p.index
}

// Wait blocks until the reply arrives, the deadline passes or ctx is done.
// On deadline or cancellation the entry is removed so a late reply is
// dispatched as an event instead.
func (p *Pending) Wait(ctx context.Context) (protocol.Message, error) {
	if !p.deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, p.deadline)
		defer cancel()
	}

	select {
	case msg := <-p.reply:
		return msg, nil
	case <-ctx.Done():
	}

	p.owner.mu.Lock()
	if p.owner.pending[p.index] == p {
		delete(p.owner.pending, p.index)
	}
	p.owner.mu.Unlock()

	// Resolution happens under the lock, so a reply that beat us is buffered by now.
	select {
	case msg := <-p.reply:
		return msg, nil
	default:
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return protocol.Message{}, fmt.Errorf("%w: request %d", ErrTimeout, p.index)
	}
	return protocol.Message{}, ctx.Err()
}
