package messaging

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/wricardo/mcp-training/arenaclient/protocol"
)

// ListenerKind selects which stream a listener is attached to.
type ListenerKind uint8

const (
	ServerMessageListener ListenerKind = iota
	ArenaMessageListener
)

func (k ListenerKind) String() string {
	switch k {
	case ServerMessageListener:
		return "server"
	case ArenaMessageListener:
		return "arena"
	default:
		return "unknown"
	}
}

// ServerListener observes every unsolicited server message.
type ServerListener func(protocol.Message) error

// ArenaListener observes the arena message inside each ServerArenaEvent.
type ArenaListener func(protocol.ArenaMessage) error

// ListenerID identifies a registration for Unregister.
type ListenerID uint64

type serverEntry struct {
	id ListenerID
	fn ServerListener
}

type arenaEntry struct {
	id ListenerID
	fn ArenaListener
}

// EventHandler is a publish/subscribe fan-out for server events.
type EventHandler struct {
	logger zerolog.Logger

	mu     sync.RWMutex
	nextID ListenerID
	server []serverEntry
	arena  []arenaEntry
}

// NewEventHandler creates an EventHandler with no listeners.
func NewEventHandler(logger zerolog.Logger) *EventHandler {
	return &EventHandler{logger: logger}
}

// OnServerMessage registers fn for every dispatched message.
func (h *EventHandler) OnServerMessage(fn ServerListener) ListenerID {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	h.server = append(h.server, serverEntry{id: h.nextID, fn: fn})
	return h.nextID
}

// OnArenaMessage registers fn for unwrapped arena messages.
func (h *EventHandler) OnArenaMessage(fn ArenaListener) ListenerID {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	h.arena = append(h.arena, arenaEntry{id: h.nextID, fn: fn})
	return h.nextID
}

// Unregister removes a listener. Unknown or already removed IDs are ignored.
func (h *EventHandler) Unregister(id ListenerID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Full slice expressions force a copy so snapshots taken by Dispatch stay intact.
	for i, entry := range h.server {
		if entry.id == id {
			h.server = append(h.server[:i:i], h.server[i+1:]...)
			return
		}
	}
	for i, entry := range h.arena {
		if entry.id == id {
			h.arena = append(h.arena[:i:i], h.arena[i+1:]...)
			return
		}
	}
}

// Len reports how many listeners of kind are registered.
func (h *EventHandler) Len(kind ListenerKind) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if kind == ArenaMessageListener {
		return len(h.arena)
	}
	return len(h.server)
}

// Dispatch runs every server listener in registration order, then, for a
// ServerArenaEvent, every arena listener with the unwrapped arena message.
// Listeners run synchronously on the caller's goroutine.
func (h *EventHandler) Dispatch(msg protocol.Message) {
	h.mu.RLock()
	server := h.server
	arena := h.arena
	h.mu.RUnlock()

	h.logger.Debug().Stringer("type", msg.Type).Uint64("index", msg.Index).Msg("dispatching event")

	for _, entry := range server {
		h.invoke(ServerMessageListener, entry.id, func() error { return entry.fn(msg) })
	}

	event, ok := msg.Data.(protocol.ServerArenaEvent)
	if !ok {
		return
	}
	for _, entry := range arena {
		h.invoke(ArenaMessageListener, entry.id, func() error { return entry.fn(event.ArenaMessage) })
	}
}

// invoke isolates one listener call.
func (h *EventHandler) invoke(kind ListenerKind, id ListenerID, call func() error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().
				Stringer("kind", kind).
				Uint64("listener", uint64(id)).
				Err(fmt.Errorf("panic: %v", r)).
				Msg("listener panicked")
		}
	}()

	if err := call(); err != nil {
		h.logger.Warn().
			Stringer("kind", kind).
			Uint64("listener", uint64(id)).
			Err(err).
			Msg("listener failed")
	}
}
