package app

import (
	"context"
	"encoding/json"

	"github.com/wricardo/mcp-training/arenaclient/protocol"
)

// joinedRoomState is the session inside one arena.
type joinedRoomState struct {
	app   *Application
	arena string
}

func newJoinedRoomState(app *Application, arena string) *joinedRoomState {
	return &joinedRoomState{app: app, arena: arena}
}

func (s *joinedRoomState) Name() string { return StateJoinedRoom }

// Arena returns the name of the joined arena.
func (s *joinedRoomState) Arena() string { return s.arena }

func (s *joinedRoomState) Connect(context.Context, string) error {
	return illegal(s, ActionConnect)
}

func (s *joinedRoomState) ConnectRoom(context.Context, string) error {
	return illegal(s, ActionConnectRoom)
}

func (s *joinedRoomState) CreateRoom(context.Context, string) error {
	return illegal(s, ActionCreateRoom)
}

func (s *joinedRoomState) ListRooms(context.Context) ([]string, error) {
	return nil, illegal(s, ActionListRooms)
}

// StartGame asks the arena to start. The session stays in JoinedRoom; the
// game phase is not modelled yet.
func (s *joinedRoomState) StartGame(ctx context.Context) error {
	reply, err := s.app.request(ctx, ActionStartGame, arenaAction(protocol.StartGameAction{}))
	if err != nil {
		return err
	}
	return expectSuccess(ActionStartGame, reply)
}

func (s *joinedRoomState) GetArenaInfo(ctx context.Context) (*protocol.ArenaInfoResponse, error) {
	reply, err := s.app.request(ctx, ActionGetArenaInfo, protocol.ArenaInfoAction{})
	if err != nil {
		return nil, err
	}

	data, err := expect[protocol.ArenaInfoResponse](ActionGetArenaInfo, reply)
	if err != nil {
		return nil, err
	}
	if !data.Success {
		return nil, &OperationRejectedError{Action: ActionGetArenaInfo, Reason: "arena info unavailable"}
	}
	return &data, nil
}

// SubmitMove forwards an opaque game move. No transition follows.
func (s *joinedRoomState) SubmitMove(ctx context.Context, move json.RawMessage) error {
	reply, err := s.app.request(ctx, ActionSubmitMove, arenaAction(protocol.PlayerAction{Move: move}))
	if err != nil {
		return err
	}
	return expectSuccess(ActionSubmitMove, reply)
}

// QuitRoom leaves the arena and returns to the lobby.
func (s *joinedRoomState) QuitRoom(ctx context.Context) error {
	reply, err := s.app.request(ctx, ActionQuitRoom, arenaAction(protocol.PlayerQuitAction{}))
	if err != nil {
		return err
	}
	if err := expectSuccess(ActionQuitRoom, reply); err != nil {
		return err
	}

	s.app.transition(newConnectedState(s.app))
	s.app.navigate(RouteConnected)
	return nil
}

func arenaAction(data protocol.ArenaPayload) protocol.ServerArenaAction {
	return protocol.ServerArenaAction{ArenaMessage: protocol.NewArenaMessage(data)}
}
