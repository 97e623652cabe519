package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/wricardo/mcp-training/arenaclient/protocol"
)

// recorder collects dispatched events.
type recorder struct {
	events []protocol.Message
}

func (r *recorder) Dispatch(msg protocol.Message) {
	r.events = append(r.events, msg)
}

func reply(index uint64, data protocol.Payload) protocol.Message {
	msg := protocol.NewMessage(data)
	msg.Index = index
	return msg
}

func waitFor(t *testing.T, p *Pending) protocol.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := p.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	return msg
}

func TestCorrelator_Register(t *testing.T) {
	c := NewCorrelator(&recorder{}, zerolog.Nop())

	p, err := c.Register(3)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if p.Index() != 3 {
		t.Errorf("Expected index 3, got %d", p.Index())
	}

	t.Run("duplicate index", func(t *testing.T) {
		_, err := c.Register(3)
		if !errors.Is(err, ErrDuplicateIndex) {
			t.Errorf("Expected ErrDuplicateIndex, got %v", err)
		}
		if c.Len() != 1 {
			t.Errorf("Expected 1 pending entry, got %d", c.Len())
		}
	})

	t.Run("cancel frees the index", func(t *testing.T) {
		c.Cancel(3)
		if c.Len() != 0 {
			t.Errorf("Expected 0 pending entries, got %d", c.Len())
		}
		if _, err := c.Register(3); err != nil {
			t.Errorf("Expected re-register to succeed, got %v", err)
		}
	})
}

func TestCorrelator_ResolvesOnlyMatchingEntry(t *testing.T) {
	events := &recorder{}
	c := NewCorrelator(events, zerolog.Nop())

	p0, _ := c.Register(0)
	p1, _ := c.Register(1)

	c.Handle(reply(1, protocol.GenericResponse{Success: true}))

	msg := waitFor(t, p1)
	if msg.Index != 1 {
		t.Errorf("Expected reply #1, got #%d", msg.Index)
	}
	if c.Len() != 1 {
		t.Errorf("Expected entry 0 to remain pending, got %d entries", c.Len())
	}
	if len(events.events) != 0 {
		t.Errorf("A reply must not be dispatched as an event, got %d", len(events.events))
	}

	select {
	case <-p0.reply:
		t.Error("Entry 0 must not be resolved by a reply to 1")
	default:
	}
}

func TestCorrelator_OutOfOrderReplies(t *testing.T) {
	c := NewCorrelator(&recorder{}, zerolog.Nop())

	pending := make([]*Pending, 3)
	for i := range pending {
		pending[i], _ = c.Register(uint64(i))
	}

	for _, i := range []uint64{2, 0, 1} {
		c.Handle(reply(i, protocol.ListArenasResponse{Success: true, ArenaList: []string{string(rune('a' + i))}}))
	}

	for i, p := range pending {
		msg := waitFor(t, p)
		data := msg.Data.(protocol.ListArenasResponse)
		if data.ArenaList[0] != string(rune('a'+i)) {
			t.Errorf("Entry %d resolved with %v", i, data.ArenaList)
		}
	}
}

func TestCorrelator_ArenaEventNeverCorrelated(t *testing.T) {
	events := &recorder{}
	c := NewCorrelator(events, zerolog.Nop())

	p, _ := c.Register(0)

	push := protocol.NewMessage(protocol.ServerArenaEvent{
		ArenaMessage: protocol.NewArenaMessage(protocol.GameStartedEvent{}),
	})
	c.Handle(push) // index 0 matches numerically

	if len(events.events) != 1 {
		t.Fatalf("Expected push to be dispatched, got %d events", len(events.events))
	}
	if c.Len() != 1 {
		t.Errorf("Expected registration to remain, got %d", c.Len())
	}
	select {
	case <-p.reply:
		t.Error("Push must not resolve a registration")
	default:
	}
}

func TestCorrelator_UnmatchedIsEvent(t *testing.T) {
	events := &recorder{}
	c := NewCorrelator(events, zerolog.Nop())

	c.Register(1)
	c.Handle(reply(9, protocol.GenericResponse{Success: true}))

	if len(events.events) != 1 || events.events[0].Index != 9 {
		t.Errorf("Expected unmatched reply to be dispatched, got %+v", events.events)
	}
	if c.Len() != 1 {
		t.Errorf("Expected registrations untouched, got %d", c.Len())
	}
}

func TestCorrelator_ResolvesAtMostOnce(t *testing.T) {
	events := &recorder{}
	c := NewCorrelator(events, zerolog.Nop())

	p, _ := c.Register(4)
	c.Handle(reply(4, protocol.GenericResponse{Success: true}))
	c.Handle(reply(4, protocol.GenericResponse{Success: false}))

	msg := waitFor(t, p)
	if !msg.Data.(protocol.GenericResponse).Success {
		t.Error("Expected the first reply to win")
	}
	if len(events.events) != 1 {
		t.Errorf("Expected the duplicate reply to become an event, got %d", len(events.events))
	}
}

func TestPending_Deadline(t *testing.T) {
	events := &recorder{}
	c := NewCorrelator(events, zerolog.Nop())

	p, err := c.RegisterWithDeadline(0, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("RegisterWithDeadline failed: %v", err)
	}

	_, err = p.Wait(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Expected entry removed after timeout, got %d", c.Len())
	}

	c.Handle(reply(0, protocol.GenericResponse{Success: true}))
	if len(events.events) != 1 {
		t.Errorf("Expected late reply to be dispatched as event, got %d", len(events.events))
	}
}

func TestPending_ContextCancelled(t *testing.T) {
	c := NewCorrelator(&recorder{}, zerolog.Nop())
	p, _ := c.Register(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("Cancellation must not be reported as a timeout")
	}
	if c.Len() != 0 {
		t.Errorf("Expected entry removed after cancel, got %d", c.Len())
	}
}

func TestPending_ReplyBeforeWait(t *testing.T) {
	c := NewCorrelator(&recorder{}, zerolog.Nop())
	p, _ := c.RegisterWithDeadline(0, time.Second)

	c.Handle(reply(0, protocol.GenericResponse{Success: true}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Already resolved: even a dead context yields the reply.
	msg, err := p.Wait(ctx)
	if err != nil {
		t.Fatalf("Expected buffered reply, got %v", err)
	}
	if msg.Type != protocol.GenericResponseType {
		t.Errorf("Expected GenericResponse, got %s", msg.Type)
	}
}
