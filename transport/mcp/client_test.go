package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/wricardo/mcp-training/arenaclient/app"
	"github.com/wricardo/mcp-training/arenaclient/internal/arenatest"
	"github.com/wricardo/mcp-training/arenaclient/messaging"
	"github.com/wricardo/mcp-training/arenaclient/protocol"
)

func newTestClient(t *testing.T, rooms ...string) (*Client, *app.Application) {
	t.Helper()
	arena := arenatest.NewArena(rooms...)
	srv := arenatest.NewServer(arena.Respond)
	t.Cleanup(srv.Close)

	session := app.New(srv.URL(), app.WithLogger(zerolog.Nop()), app.WithRequestTimeout(2*time.Second))
	t.Cleanup(func() { session.Close() })

	return NewClient(session, zerolog.Nop()), session
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (string, bool) {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := handler(ctx, request)
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if len(result.Content) == 0 {
		t.Fatal("Expected result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected TextContent, got %T", result.Content[0])
	}
	return text.Text, result.IsError
}

func TestNewClient(t *testing.T) {
	client, _ := newTestClient(t)

	if client.GetMCPServer() == nil {
		t.Fatal("Expected MCP server to be initialized")
	}
}

func TestClient_SessionFlow(t *testing.T) {
	client, session := newTestClient(t, "beta")

	text, isErr := callTool(t, client.handleConnect, map[string]interface{}{"username": "alice"})
	if isErr {
		t.Fatalf("connect failed: %s", text)
	}
	if !strings.Contains(text, "alice") {
		t.Errorf("Expected username in result, got %q", text)
	}

	text, isErr = callTool(t, client.handleCreateRoom, map[string]interface{}{"name": "alpha"})
	if isErr {
		t.Fatalf("create_room failed: %s", text)
	}

	text, _ = callTool(t, client.handleListRooms, map[string]interface{}{})
	if !strings.Contains(text, "Arenas (2)") || strings.Index(text, "alpha") > strings.Index(text, "beta") {
		t.Errorf("Expected sorted arena list, got %q", text)
	}

	text, isErr = callTool(t, client.handleJoinRoom, map[string]interface{}{"name": "beta"})
	if isErr {
		t.Fatalf("join_room failed: %s", text)
	}
	if session.StateName() != app.StateJoinedRoom {
		t.Errorf("Expected state %s, got %s", app.StateJoinedRoom, session.StateName())
	}

	text, _ = callTool(t, client.handleArenaInfo, map[string]interface{}{})
	for _, want := range []string{"Arena: beta", "Created: 2024-01-01", "- alice"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in arena info, got %q", want, text)
		}
	}

	if text, isErr = callTool(t, client.handleStartGame, map[string]interface{}{}); isErr {
		t.Fatalf("start_game failed: %s", text)
	}

	if text, isErr = callTool(t, client.handleSubmitMove, map[string]interface{}{"move": `{"discard":3}`}); isErr {
		t.Fatalf("submit_move failed: %s", text)
	}

	if text, isErr = callTool(t, client.handleQuitRoom, map[string]interface{}{}); isErr {
		t.Fatalf("quit_room failed: %s", text)
	}
	if session.StateName() != app.StateConnected {
		t.Errorf("Expected state %s, got %s", app.StateConnected, session.StateName())
	}
}

func TestClient_IllegalTool(t *testing.T) {
	client, _ := newTestClient(t)

	text, isErr := callTool(t, client.handleListRooms, map[string]interface{}{})
	if !isErr {
		t.Fatalf("Expected error result, got %q", text)
	}
	if !strings.Contains(text, "list_rooms is not allowed in state login") {
		t.Errorf("Unexpected error text: %q", text)
	}
}

func TestClient_MissingArguments(t *testing.T) {
	client, _ := newTestClient(t)

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]interface{}
	}{
		{"create_room without name", client.handleCreateRoom, map[string]interface{}{}},
		{"join_room without name", client.handleJoinRoom, map[string]interface{}{}},
		{"submit_move without move", client.handleSubmitMove, map[string]interface{}{}},
		{"submit_move with invalid json", client.handleSubmitMove, map[string]interface{}{"move": "{nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, isErr := callTool(t, tt.handler, tt.args); !isErr {
				t.Error("Expected error result")
			}
		})
	}
}

func TestClient_SessionState(t *testing.T) {
	client, _ := newTestClient(t)

	text, _ := callTool(t, client.handleSessionState, map[string]interface{}{})
	if !strings.Contains(text, "State: login") {
		t.Errorf("Expected login state, got %q", text)
	}
}

func TestClient_RecentEvents(t *testing.T) {
	client, _ := newTestClient(t, "duel")

	text, _ := callTool(t, client.handleRecentEvents, map[string]interface{}{})
	if text != "No events\n" {
		t.Errorf("Expected no events, got %q", text)
	}

	callTool(t, client.handleConnect, map[string]interface{}{"username": "alice"})
	callTool(t, client.handleJoinRoom, map[string]interface{}{"name": "duel"})
	callTool(t, client.handleStartGame, map[string]interface{}{})
	callTool(t, client.handleQuitRoom, map[string]interface{}{})

	// The quit event is pushed after the reply.
	deadline := time.Now().Add(2 * time.Second)
	for {
		text, _ = callTool(t, client.handleRecentEvents, map[string]interface{}{})
		if strings.Contains(text, "alice left") || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	for _, want := range []string{"alice joined", "game started", "alice left"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in events, got %q", want, text)
		}
	}

	text, _ = callTool(t, client.handleRecentEvents, map[string]interface{}{"limit": float64(1)})
	if strings.Count(text, "\n") != 1 || !strings.Contains(text, "alice left") {
		t.Errorf("Expected only the latest event, got %q", text)
	}
}

func TestClient_RecordCapsLog(t *testing.T) {
	client, _ := newTestClient(t)

	for i := 0; i < maxEvents+10; i++ {
		client.record(arenaEventForTest())
	}
	if len(client.events) != maxEvents {
		t.Errorf("Expected %d events, got %d", maxEvents, len(client.events))
	}
}

func arenaEventForTest() protocol.Message {
	return protocol.NewMessage(protocol.ServerArenaEvent{
		ArenaMessage: protocol.NewArenaMessage(protocol.GameStartedEvent{}),
	})
}

// overlapSession records how many actions run at once.
type overlapSession struct {
	mu      sync.Mutex
	active  int
	maxSeen int
}

func (s *overlapSession) enter() {
	s.mu.Lock()
	s.active++
	if s.active > s.maxSeen {
		s.maxSeen = s.active
	}
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	s.mu.Lock()
	s.active--
	s.mu.Unlock()
}

func (s *overlapSession) StateName() string { return app.StateConnected }
func (s *overlapSession) Username() string  { return "alice" }

func (s *overlapSession) Connect(context.Context, string) error     { s.enter(); return nil }
func (s *overlapSession) ConnectRoom(context.Context, string) error { s.enter(); return nil }
func (s *overlapSession) CreateRoom(context.Context, string) error  { s.enter(); return nil }
func (s *overlapSession) StartGame(context.Context) error           { s.enter(); return nil }
func (s *overlapSession) QuitRoom(context.Context) error            { s.enter(); return nil }

func (s *overlapSession) ListRooms(context.Context) ([]string, error) {
	s.enter()
	return nil, nil
}

func (s *overlapSession) GetArenaInfo(context.Context) (*protocol.ArenaInfoResponse, error) {
	s.enter()
	return &protocol.ArenaInfoResponse{Success: true}, nil
}

func (s *overlapSession) SubmitMove(context.Context, json.RawMessage) error {
	s.enter()
	return nil
}

func (s *overlapSession) OnServerMessage(messaging.ServerListener) messaging.ListenerID { return 0 }

func TestClient_ActionsAreSerialized(t *testing.T) {
	session := &overlapSession{}
	client := NewClient(session, zerolog.Nop())

	calls := []struct {
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]interface{}
	}{
		{client.handleConnect, map[string]interface{}{"username": "alice"}},
		{client.handleListRooms, map[string]interface{}{}},
		{client.handleCreateRoom, map[string]interface{}{"name": "a"}},
		{client.handleJoinRoom, map[string]interface{}{"name": "a"}},
		{client.handleArenaInfo, map[string]interface{}{}},
		{client.handleStartGame, map[string]interface{}{}},
		{client.handleSubmitMove, map[string]interface{}{"move": `{}`}},
		{client.handleQuitRoom, map[string]interface{}{}},
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		for _, call := range calls {
			wg.Add(1)
			go func() {
				defer wg.Done()
				request := mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: call.args}}
				if _, err := call.handler(context.Background(), request); err != nil {
					t.Errorf("Handler returned error: %v", err)
				}
			}()
		}
	}
	wg.Wait()

	if session.maxSeen != 1 {
		t.Errorf("Expected actions to run one at a time, saw %d at once", session.maxSeen)
	}
}
