package app

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/wricardo/mcp-training/arenaclient/protocol"
)

// connectedState is the lobby: the player is known to the server but not in
// an arena.
type connectedState struct {
	app *Application
}

func newConnectedState(app *Application) *connectedState {
	return &connectedState{app: app}
}

func (s *connectedState) Name() string { return StateConnected }

func (s *connectedState) Connect(context.Context, string) error {
	return illegal(s, ActionConnect)
}

func (s *connectedState) ConnectRoom(ctx context.Context, name string) error {
	reply, err := s.app.request(ctx, ActionConnectRoom, protocol.JoinArenaAction{ArenaName: name})
	if err != nil {
		return err
	}
	if err := expectSuccess(ActionConnectRoom, reply); err != nil {
		return err
	}

	s.app.transition(newJoinedRoomState(s.app, name))
	s.app.navigate(RouteArena)
	return nil
}

// CreateRoom creates an arena. Whether the session then joins it is decided
// by the Application's CreateRoomPolicy.
func (s *connectedState) CreateRoom(ctx context.Context, name string) error {
	reply, err := s.app.request(ctx, ActionCreateRoom, protocol.CreateArenaAction{ArenaName: name})
	if err != nil {
		return err
	}
	if err := expectSuccess(ActionCreateRoom, reply); err != nil {
		return err
	}

	if s.app.createPolicy == CreateRoomAutoJoin {
		return s.ConnectRoom(ctx, name)
	}
	return nil
}

func (s *connectedState) ListRooms(ctx context.Context) ([]string, error) {
	reply, err := s.app.request(ctx, ActionListRooms, protocol.ListArenasAction{})
	if err != nil {
		return nil, err
	}

	data, err := expect[protocol.ListArenasResponse](ActionListRooms, reply)
	if err != nil {
		return nil, err
	}
	if !data.Success {
		return nil, &OperationRejectedError{Action: ActionListRooms, Reason: "failed to list rooms"}
	}

	rooms := slices.Clone(data.ArenaList)
	slices.Sort(rooms)
	return rooms, nil
}

func (s *connectedState) StartGame(context.Context) error {
	return illegal(s, ActionStartGame)
}

func (s *connectedState) GetArenaInfo(context.Context) (*protocol.ArenaInfoResponse, error) {
	return nil, illegal(s, ActionGetArenaInfo)
}

func (s *connectedState) SubmitMove(context.Context, json.RawMessage) error {
	return illegal(s, ActionSubmitMove)
}

func (s *connectedState) QuitRoom(context.Context) error {
	return illegal(s, ActionQuitRoom)
}
