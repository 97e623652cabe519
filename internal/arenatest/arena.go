package arenatest

import (
	"sync"

	"github.com/google/uuid"
	"github.com/wricardo/mcp-training/arenaclient/protocol"
)

// Arena is a small stateful Responder that behaves like the real lobby for a
// single client: it accepts one login, lets the client create, list and join
// arenas, and answers arena actions.
type Arena struct {
	// Created is reported verbatim in ArenaInfoResponse.
	Created string
	// Rejected usernames fail the initial message.
	Rejected map[string]string

	mu       sync.Mutex
	username string
	joined   string
	rooms    map[string]*room
}

type room struct {
	name    string
	agents  []string
	started bool
}

// NewArena returns an arena preloaded with the given room names.
func NewArena(rooms ...string) *Arena {
	a := &Arena{
		Created:  "2024-01-01",
		Rejected: map[string]string{},
		rooms:    map[string]*room{},
	}
	for _, name := range rooms {
		a.rooms[name] = &room{name: name}
	}
	return a
}

// Respond implements Responder.
func (a *Arena) Respond(req protocol.Message) []protocol.Message {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch data := req.Data.(type) {
	case protocol.InitialMessageAction:
		if reason, ok := a.Rejected[data.Name]; ok {
			return a.fail(req, reason)
		}
		a.username = data.Name
		return a.ok(req)

	case protocol.ListArenasAction:
		names := make([]string, 0, len(a.rooms))
		for name := range a.rooms {
			names = append(names, name)
		}
		return []protocol.Message{Reply(req, protocol.ListArenasResponse{Success: true, ArenaList: names})}

	case protocol.CreateArenaAction:
		if _, exists := a.rooms[data.ArenaName]; exists {
			return a.fail(req, "arena already exists")
		}
		a.rooms[data.ArenaName] = &room{name: data.ArenaName}
		return a.ok(req)

	case protocol.JoinArenaAction:
		r, exists := a.rooms[data.ArenaName]
		if !exists {
			return a.fail(req, "arena not found")
		}
		r.agents = append(r.agents, a.username)
		a.joined = r.name
		return []protocol.Message{
			Reply(req, protocol.GenericResponse{Success: true}),
			a.event(protocol.PlayerJoinedEvent{Name: a.username, ID: uuid.New()}),
		}

	case protocol.ArenaInfoAction:
		r, exists := a.rooms[a.joined]
		if !exists {
			return []protocol.Message{Reply(req, protocol.ArenaInfoResponse{Success: false})}
		}
		agents := make([]protocol.AgentInfo, 0, len(r.agents))
		for _, name := range r.agents {
			agents = append(agents, protocol.AgentInfo{Name: name})
		}
		return []protocol.Message{Reply(req, protocol.ArenaInfoResponse{
			Success:     true,
			Name:        r.name,
			Agents:      agents,
			GameStarted: r.started,
			DateCreated: a.Created,
		})}

	case protocol.ServerArenaAction:
		return a.respondArena(req, data.ArenaMessage)

	default:
		return a.fail(req, "unsupported action")
	}
}

func (a *Arena) respondArena(req protocol.Message, msg protocol.ArenaMessage) []protocol.Message {
	r, exists := a.rooms[a.joined]
	if !exists {
		return a.fail(req, "not in an arena")
	}

	switch msg.Data.(type) {
	case protocol.StartGameAction:
		if r.started {
			return a.fail(req, "game already started")
		}
		r.started = true
		return []protocol.Message{a.event(protocol.GameStartedEvent{}), Reply(req, protocol.GenericResponse{Success: true})}

	case protocol.PlayerQuitAction:
		for i, name := range r.agents {
			if name == a.username {
				r.agents = append(r.agents[:i], r.agents[i+1:]...)
				break
			}
		}
		a.joined = ""
		return []protocol.Message{Reply(req, protocol.GenericResponse{Success: true}), a.event(protocol.PlayerQuitEvent{Name: a.username})}

	case protocol.PlayerAction:
		if !r.started {
			return a.fail(req, "game not started")
		}
		return a.ok(req)

	default:
		return a.fail(req, "unsupported arena action")
	}
}

func (a *Arena) ok(req protocol.Message) []protocol.Message {
	return []protocol.Message{Reply(req, protocol.GenericResponse{Success: true})}
}

func (a *Arena) fail(req protocol.Message, reason string) []protocol.Message {
	return []protocol.Message{Reply(req, protocol.GenericResponse{Success: false, FailReason: reason})}
}

// event wraps an arena payload in a server push. Its index is
// zero, which may collide with a pending request.
func (a *Arena) event(data protocol.ArenaPayload) protocol.Message {
	return protocol.NewMessage(protocol.ServerArenaEvent{ArenaMessage: protocol.NewArenaMessage(data)})
}
