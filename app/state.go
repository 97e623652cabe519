package app

import (
	"context"
	"encoding/json"

	"github.com/wricardo/mcp-training/arenaclient/protocol"
)

// State names.
const (
	StateLogin      = "login"
	StateConnected  = "connected"
	StateJoinedRoom = "joined_room"
	// StateInGame is reserved for the game phase; no state implements it yet
	// and start_game does not transition into it.
	StateInGame = "in_game"
)

// Action names, as reported in errors.
const (
	ActionConnect      = "connect"
	ActionConnectRoom  = "connect_room"
	ActionCreateRoom   = "create_room"
	ActionListRooms    = "list_rooms"
	ActionStartGame    = "start_game"
	ActionGetArenaInfo = "get_arena_info"
	ActionSubmitMove   = "submit_move"
	ActionQuitRoom     = "quit_room"
)

// State is one phase of the session. Every implementation answers every
// action, failing with illegal for the ones its phase does not allow.
type State interface {
	Name() string

	Connect(ctx context.Context, username string) error
	ConnectRoom(ctx context.Context, name string) error
	CreateRoom(ctx context.Context, name string) error
	ListRooms(ctx context.Context) ([]string, error)
	StartGame(ctx context.Context) error
	GetArenaInfo(ctx context.Context) (*protocol.ArenaInfoResponse, error)
	SubmitMove(ctx context.Context, move json.RawMessage) error
	QuitRoom(ctx context.Context) error
}

func illegal(s State, action string) error {
	return &IllegalStateTransitionError{State: s.Name(), Action: action}
}
