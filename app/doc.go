// Package app drives an arena session through its lifecycle.
//
// The app package implements:
//   - Application: the session object owning the connection, correlator and
//     event handler for one server
//   - The session state machine: Login, Connected and JoinedRoom
//   - The error taxonomy returned by actions
//
// State Machine:
//
// Application always holds exactly one current State. Every action is
// delegated to it, and a state answers only the actions legal in its phase;
// the rest fail with an *IllegalStateTransitionError naming the state and the
// action. A successful round trip is the only thing that moves the session
// to another state:
//
//	Login --connect--> Connected --connect_room--> JoinedRoom
//	                   Connected <--quit_room----- JoinedRoom
//
// A failed action never changes the state.
//
// Round Trips:
//
// An action builds a message, sends it and registers its index with the
// correlator before the frame leaves, then waits for the reply. The reply is
// checked in two steps:
//   - A reply of the wrong type is an *ProtocolMismatchError
//   - A reply with success false is an *OperationRejectedError
//
// Callers can always tell a protocol mismatch from a rejection with
// errors.Is(err, ErrProtocolMismatch) and errors.Is(err, ErrOperationRejected).
//
// Concurrency:
//
// Actions are expected to be called one at a time by the owner of the
// Application. Replies and events are handled on the connection's read
// goroutine; event listeners run there too.
//
// Usage:
//
//	application := app.New("ws://localhost:3000/game",
//		app.WithLogger(logger),
//		app.WithNavigator(app.NavigatorFunc(func(route string) { ... })),
//	)
//	defer application.Close()
//
//	if err := application.Connect(ctx, "alice"); err != nil {
//		return err
//	}
//	rooms, err := application.ListRooms(ctx)
package app
