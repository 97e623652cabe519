// Package arenatest runs an in-process arena server for tests.
//
// Server accepts WebSocket connections, records every decoded frame it
// receives and answers through a Responder. Tests can also push frames at
// any time, which is how out of order replies and server events are staged.
package arenatest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/mcp-training/arenaclient/protocol"
)

// Responder returns the frames to send back for one request. Returning nil
// leaves the request unanswered.
type Responder func(req protocol.Message) []protocol.Message

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server is a scripted arena server.
type Server struct {
	httpServer *httptest.Server
	responder  Responder

	mu       sync.Mutex
	conns    []*websocket.Conn
	received []protocol.Message
	notify   chan struct{}
}

// NewServer starts a server answering with responder. A nil responder
// answers nothing.
func NewServer(responder Responder) *Server {
	if responder == nil {
		responder = func(protocol.Message) []protocol.Message { return nil }
	}

	s := &Server{
		responder: responder,
		notify:    make(chan struct{}, 1),
	}
	s.httpServer = httptest.NewServer(http.HandlerFunc(s.serveWS))
	return s
}

// URL returns the ws:// address of the server.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.httpServer.URL, "http")
}

// Close drops every connection and stops the server.
func (s *Server) Close() {
	s.mu.Lock()
	for _, conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	s.httpServer.Close()
}

// Received returns a copy of every request decoded so far.
func (s *Server) Received() []protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Message(nil), s.received...)
}

// WaitReceived blocks until at least n requests arrived or timeout elapses.
func (s *Server) WaitReceived(n int, timeout time.Duration) []protocol.Message {
	deadline := time.After(timeout)
	for {
		if got := s.Received(); len(got) >= n {
			return got
		}
		select {
		case <-s.notify:
		case <-deadline:
			return s.Received()
		}
	}
}

// Connections reports how many clients are connected.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Push sends msg to every connected client, keeping its Index as is.
func (s *Server) Push(msg protocol.Message) error {
	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return s.PushRaw(frame)
}

// PushRaw sends an arbitrary text frame to every connected client.
func (s *Server) PushRaw(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, conn := range s.conns {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	go s.readPump(conn)
}

func (s *Server) readPump(conn *websocket.Conn) {
	defer func() {
		s.removeConn(conn)
		conn.Close()
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return
		}

		req, err := protocol.Decode(frame)
		if err != nil {
			continue
		}

		s.mu.Lock()
		s.received = append(s.received, req)
		s.mu.Unlock()

		select {
		case s.notify <- struct{}{}:
		default:
		}

		for _, reply := range s.responder(req) {
			frame, err := protocol.Encode(reply)
			if err != nil {
				continue
			}
			s.mu.Lock()
			err = conn.WriteMessage(websocket.TextMessage, frame)
			s.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *Server) removeConn(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.conns {
		if c == conn {
			s.conns = append(s.conns[:i], s.conns[i+1:]...)
			return
		}
	}
}

// Reply builds a response to req carrying req's index.
func Reply(req protocol.Message, data protocol.Payload) protocol.Message {
	msg := protocol.NewMessage(data)
	msg.Index = req.Index
	return msg
}
