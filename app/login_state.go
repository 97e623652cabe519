package app

import (
	"context"
	"encoding/json"

	"github.com/wricardo/mcp-training/arenaclient/protocol"
)

// loginState is the initial state: only connect is legal.
type loginState struct {
	app *Application
}

func newLoginState(app *Application) *loginState {
	return &loginState{app: app}
}

func (s *loginState) Name() string { return StateLogin }

// Connect dials the server if needed and introduces the player. A rejected
// name leaves the connection open so another name can be tried.
func (s *loginState) Connect(ctx context.Context, username string) error {
	if username == "" {
		username = s.app.Username()
	}
	if username == "" {
		return ErrUsernameRequired
	}
	s.app.SetUsername(username)

	if err := s.app.dial(ctx); err != nil {
		return err
	}

	reply, err := s.app.request(ctx, ActionConnect, protocol.InitialMessageAction{Name: username})
	if err != nil {
		return err
	}
	if err := expectSuccess(ActionConnect, reply); err != nil {
		return err
	}

	s.app.transition(newConnectedState(s.app))
	s.app.navigate(RouteConnected)
	return nil
}

func (s *loginState) ConnectRoom(context.Context, string) error {
	return illegal(s, ActionConnectRoom)
}

func (s *loginState) CreateRoom(context.Context, string) error {
	return illegal(s, ActionCreateRoom)
}

func (s *loginState) ListRooms(context.Context) ([]string, error) {
	return nil, illegal(s, ActionListRooms)
}

func (s *loginState) StartGame(context.Context) error {
	return illegal(s, ActionStartGame)
}

func (s *loginState) GetArenaInfo(context.Context) (*protocol.ArenaInfoResponse, error) {
	return nil, illegal(s, ActionGetArenaInfo)
}

func (s *loginState) SubmitMove(context.Context, json.RawMessage) error {
	return illegal(s, ActionSubmitMove)
}

func (s *loginState) QuitRoom(context.Context) error {
	return illegal(s, ActionQuitRoom)
}
