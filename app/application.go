package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wricardo/mcp-training/arenaclient/messaging"
	"github.com/wricardo/mcp-training/arenaclient/protocol"
	"github.com/wricardo/mcp-training/arenaclient/transport/websocket"
)

// Routes passed to the Navigator after a successful transition.
const (
	RouteConnected = "connected_page"
	RouteArena     = "arena_page"
)

// Navigator is told which view to show after connect and join.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// CreateRoomPolicy decides what a successful create_room does next.
type CreateRoomPolicy uint8

const (
	// CreateRoomStay leaves the session in Connected.
	CreateRoomStay CreateRoomPolicy = iota
	// CreateRoomAutoJoin joins the new room right away.
	CreateRoomAutoJoin
)

// Application is one session against one arena server.
type Application struct {
	url            string
	connOpts       []websocket.Option
	logger         zerolog.Logger
	navigator      Navigator
	requestTimeout time.Duration
	createPolicy   CreateRoomPolicy

	events     *messaging.EventHandler
	correlator *messaging.Correlator

	mu       sync.RWMutex
	state    State
	conn     *websocket.Connection
	username string
}

// Option configures an Application.
type Option func(*Application)

// WithLogger sets the logger shared by the session's components.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Application) { a.logger = logger }
}

// WithNavigator sets the view navigator.
func WithNavigator(navigator Navigator) Option {
	return func(a *Application) { a.navigator = navigator }
}

// WithUsername presets the name used by Connect.
func WithUsername(username string) Option {
	return func(a *Application) { a.username = username }
}

// WithRequestTimeout bounds every round trip. Zero waits indefinitely.
func WithRequestTimeout(d time.Duration) Option {
	return func(a *Application) { a.requestTimeout = d }
}

// WithCreateRoomPolicy selects what happens after a successful create_room.
func WithCreateRoomPolicy(policy CreateRoomPolicy) Option {
	return func(a *Application) { a.createPolicy = policy }
}

// WithConnectionOptions passes options through to the websocket Connection.
func WithConnectionOptions(opts ...websocket.Option) Option {
	return func(a *Application) { a.connOpts = append(a.connOpts, opts...) }
}

// New creates an Application in the Login state. Nothing is dialed until
// Connect.
func New(url string, opts ...Option) *Application {
	a := &Application{
		url:       url,
		logger:    zerolog.Nop(),
		navigator: NavigatorFunc(func(string) {}),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.events = messaging.NewEventHandler(a.logger.With().Str("component", "events").Logger())
	a.correlator = messaging.NewCorrelator(a.events, a.logger.With().Str("component", "correlator").Logger())
	a.state = newLoginState(a)
	return a
}

// State returns the current state.
func (a *Application) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// StateName returns the name of the current state.
func (a *Application) StateName() string {
	return a.State().Name()
}

// SetUsername sets the name used by Connect when none is given.
func (a *Application) SetUsername(username string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.username = username
}

// Username returns the current username.
func (a *Application) Username() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.username
}

// Pending reports how many requests are waiting for a reply.
func (a *Application) Pending() int {
	return a.correlator.Len()
}

// OnServerMessage registers a listener for every server event.
func (a *Application) OnServerMessage(fn messaging.ServerListener) messaging.ListenerID {
	return a.events.OnServerMessage(fn)
}

// OnArenaMessage registers a listener for arena events.
func (a *Application) OnArenaMessage(fn messaging.ArenaListener) messaging.ListenerID {
	return a.events.OnArenaMessage(fn)
}

// Unregister removes an event listener.
func (a *Application) Unregister(id messaging.ListenerID) {
	a.events.Unregister(id)
}

// Connect logs in as username, or the preset username when empty.
func (a *Application) Connect(ctx context.Context, username string) error {
	return a.State().Connect(ctx, username)
}

// ConnectRoom joins the named arena.
func (a *Application) ConnectRoom(ctx context.Context, name string) error {
	return a.State().ConnectRoom(ctx, name)
}

// CreateRoom creates the named arena.
func (a *Application) CreateRoom(ctx context.Context, name string) error {
	return a.State().CreateRoom(ctx, name)
}

// ListRooms returns the arena names sorted ascending.
func (a *Application) ListRooms(ctx context.Context) ([]string, error) {
	return a.State().ListRooms(ctx)
}

// StartGame asks the joined arena to start its game.
func (a *Application) StartGame(ctx context.Context) error {
	return a.State().StartGame(ctx)
}

// GetArenaInfo describes the joined arena.
func (a *Application) GetArenaInfo(ctx context.Context) (*protocol.ArenaInfoResponse, error) {
	return a.State().GetArenaInfo(ctx)
}

// SubmitMove sends a game move to the joined arena.
func (a *Application) SubmitMove(ctx context.Context, move json.RawMessage) error {
	return a.State().SubmitMove(ctx, move)
}

// QuitRoom leaves the joined arena.
func (a *Application) QuitRoom(ctx context.Context) error {
	return a.State().QuitRoom(ctx)
}

// Close tears down the connection. Outstanding requests are not resolved.
func (a *Application) Close() error {
	a.mu.Lock()
	conn := a.conn
	a.conn = nil
	a.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// transition replaces the current state. Only states call it, and only
// after a successful round trip.
func (a *Application) transition(next State) {
	a.mu.Lock()
	prev := a.state
	a.state = next
	a.mu.Unlock()

	a.logger.Info().Str("from", prev.Name()).Str("to", next.Name()).Msg("state transition")
}

func (a *Application) navigate(route string) {
	a.logger.Debug().Str("route", route).Msg("navigating")
	a.navigator.Navigate(route)
}

// dial returns the live connection, opening one if needed.
func (a *Application) dial(ctx context.Context) error {
	a.mu.Lock()
	conn := a.conn
	if conn != nil {
		select {
		case <-conn.Done():
			conn = nil
		default:
		}
	}
	if conn == nil {
		conn = websocket.NewConnection(a.url, a.correlator.Handle,
			append([]websocket.Option{websocket.WithLogger(a.logger.With().Str("component", "connection").Logger())}, a.connOpts...)...)
		a.conn = conn
		conn.Start(context.WithoutCancel(ctx))
	}
	a.mu.Unlock()

	if err := conn.WaitUntilReady(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", a.url, err)
	}
	return nil
}

func (a *Application) connection() *websocket.Connection {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.conn
}

// request performs one round trip for action.
func (a *Application) request(ctx context.Context, action string, data protocol.Payload) (protocol.Message, error) {
	conn := a.connection()
	if conn == nil {
		return protocol.Message{}, fmt.Errorf("%s: %w", action, ErrTransportNotReady)
	}

	var pending *messaging.Pending
	index, err := conn.SendWith(protocol.NewMessage(data), func(index uint64) error {
		var err error
		if a.requestTimeout > 0 {
			pending, err = a.correlator.RegisterWithDeadline(index, a.requestTimeout)
		} else {
			pending, err = a.correlator.Register(index)
		}
		return err
	})
	if err != nil {
		if pending != nil {
			a.correlator.Cancel(index)
		}
		return protocol.Message{}, fmt.Errorf("%s: %w", action, err)
	}

	reply, err := pending.Wait(ctx)
	if err != nil {
		return protocol.Message{}, fmt.Errorf("%s: %w", action, err)
	}

	a.logger.Debug().Str("action", action).Uint64("index", index).Stringer("reply", reply.Type).Msg("round trip complete")
	return reply, nil
}

// expect checks the reply type of a round trip.
func expect[T protocol.Payload](action string, reply protocol.Message) (T, error) {
	data, ok := reply.Data.(T)
	if !ok {
		var zero T
		return zero, &ProtocolMismatchError{Action: action, Expected: zero.MessageType(), Got: reply.Type}
	}
	return data, nil
}

// expectSuccess checks for a successful GenericResponse.
func expectSuccess(action string, reply protocol.Message) error {
	data, err := expect[protocol.GenericResponse](action, reply)
	if err != nil {
		return err
	}
	if !data.Success {
		return &OperationRejectedError{Action: action, Reason: data.FailReason}
	}
	return nil
}
