// Package websocket provides the WebSocket transport for the arena client.
//
// The websocket package implements:
//   - Dialing the arena server in the background
//   - A readiness signal that any number of goroutines can wait on
//   - Correlation index assignment for every outbound frame
//   - Decoding inbound frames and handing them to a single handler
//   - Keepalive pings and read deadlines
//
// Architecture:
//
// A Connection owns one *websocket.Conn. Start dials it; once the handshake
// completes the ready channel is closed and a read goroutine starts
// forwarding decoded frames to the Handler given at construction. The
// Connection performs no interpretation of the frames it forwards.
//
// Correlation Indices:
//
// Each send stamps the message with the next value of a counter starting at
// 0. An index is spent once the write is attempted. SendWith runs a hook with
// that index before the frame is written, so a caller can register for the
// reply before the server could possibly answer.
//
// The counter belongs to one Connection. Indices from different Connections
// may collide, so replies must be correlated per Connection.
//
// Usage:
//
//	conn := websocket.NewConnection("ws://localhost:3000/game", correlator.Handle,
//		websocket.WithLogger(logger))
//	conn.Start(ctx)
//	if err := conn.WaitUntilReady(ctx); err != nil {
//		return err
//	}
//	index, err := conn.Send(protocol.NewMessage(protocol.ListArenasAction{}))
//
// Limitations:
//
// Transport closure is not recovered from. When the read loop exits, Done is
// closed and later sends fail, but there is no reconnection and requests
// already waiting for a reply are not cancelled by the Connection.
package websocket
