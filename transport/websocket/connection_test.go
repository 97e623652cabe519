package websocket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/arenaclient/internal/arenatest"
	"github.com/wricardo/mcp-training/arenaclient/protocol"
)

func startConnection(t *testing.T, url string, handler Handler) *Connection {
	t.Helper()

	conn := NewConnection(url, handler)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn.Start(context.Background())
	if err := conn.WaitUntilReady(ctx); err != nil {
		t.Fatalf("Connection never became ready: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestNewConnection(t *testing.T) {
	conn := NewConnection("ws://localhost:1/ws", nil)

	if conn == nil {
		t.Fatal("NewConnection() returned nil")
	}
	if conn.handler == nil {
		t.Error("Expected a no-op handler when nil is given")
	}
	if conn.pingPeriod != pingPeriod {
		t.Errorf("Expected default ping period %v, got %v", pingPeriod, conn.pingPeriod)
	}
	if conn.Ready() {
		t.Error("Unstarted connection should not be ready")
	}
}

func TestSend_BeforeReady(t *testing.T) {
	server := arenatest.NewServer(nil)
	defer server.Close()

	conn := NewConnection(server.URL(), nil)
	defer conn.Close()

	_, err := conn.Send(protocol.NewMessage(protocol.ListArenasAction{}))
	if !errors.Is(err, ErrTransportNotReady) {
		t.Fatalf("Expected ErrTransportNotReady, got %v", err)
	}

	if got := server.WaitReceived(1, 50*time.Millisecond); len(got) != 0 {
		t.Errorf("Expected no frame to be transmitted, got %d", len(got))
	}
}

func TestSend_IndicesIncrease(t *testing.T) {
	server := arenatest.NewServer(nil)
	defer server.Close()

	conn := startConnection(t, server.URL(), nil)

	const n = 5
	for i := 0; i < n; i++ {
		index, err := conn.Send(protocol.NewMessage(protocol.ListArenasAction{}))
		if err != nil {
			t.Fatalf("Send %d failed: %v", i, err)
		}
		if index != uint64(i) {
			t.Errorf("Expected index %d, got %d", i, index)
		}
	}

	received := server.WaitReceived(n, time.Second)
	if len(received) != n {
		t.Fatalf("Expected %d frames, got %d", n, len(received))
	}
	for i, msg := range received {
		if msg.Index != uint64(i) {
			t.Errorf("Frame %d carried index %d", i, msg.Index)
		}
	}
}

func TestSendWith_HookFailureConsumesNothing(t *testing.T) {
	server := arenatest.NewServer(nil)
	defer server.Close()

	conn := startConnection(t, server.URL(), nil)

	hookErr := errors.New("refused")
	_, err := conn.SendWith(protocol.NewMessage(protocol.ArenaInfoAction{}), func(uint64) error {
		return hookErr
	})
	if !errors.Is(err, hookErr) {
		t.Fatalf("Expected hook error, got %v", err)
	}

	var hooked uint64 = 99
	index, err := conn.SendWith(protocol.NewMessage(protocol.ArenaInfoAction{}), func(i uint64) error {
		hooked = i
		return nil
	})
	if err != nil {
		t.Fatalf("SendWith failed: %v", err)
	}
	if index != 0 || hooked != 0 {
		t.Errorf("Expected index 0 after a refused send, got index=%d hooked=%d", index, hooked)
	}

	if got := server.WaitReceived(1, time.Second); len(got) != 1 {
		t.Errorf("Expected exactly one frame, got %d", len(got))
	}
}

func TestSend_InvalidMessage(t *testing.T) {
	server := arenatest.NewServer(nil)
	defer server.Close()

	conn := startConnection(t, server.URL(), nil)

	_, err := conn.Send(protocol.Message{Type: protocol.ListArenasActionType})
	if !errors.Is(err, protocol.ErrNoPayload) {
		t.Errorf("Expected ErrNoPayload, got %v", err)
	}

	index, err := conn.Send(protocol.NewMessage(protocol.ListArenasAction{}))
	if err != nil || index != 0 {
		t.Errorf("Expected index 0 after an encode failure, got %d (%v)", index, err)
	}
}

func TestWaitUntilReady_ConcurrentWaiters(t *testing.T) {
	server := arenatest.NewServer(nil)
	defer server.Close()

	conn := NewConnection(server.URL(), nil)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- conn.WaitUntilReady(ctx)
		}()
	}

	conn.Start(ctx)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Waiter failed: %v", err)
		}
	}
	if !conn.Ready() {
		t.Error("Expected connection to be ready")
	}
}

func TestWaitUntilReady_DialFailure(t *testing.T) {
	server := arenatest.NewServer(nil)
	url := server.URL()
	server.Close()

	conn := NewConnection(url, nil)
	conn.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := conn.WaitUntilReady(ctx); err == nil {
		t.Fatal("Expected dial error")
	}

	select {
	case <-conn.Done():
	case <-time.After(time.Second):
		t.Error("Done should be closed after a failed dial")
	}
}

func TestWaitUntilReady_ContextCancelled(t *testing.T) {
	conn := NewConnection("ws://localhost:1/ws", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := conn.WaitUntilReady(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestInbound_ForwardedToHandler(t *testing.T) {
	server := arenatest.NewServer(nil)
	defer server.Close()

	received := make(chan protocol.Message, 4)
	startConnection(t, server.URL(), func(msg protocol.Message) {
		received <- msg
	})

	deadline := time.Now().Add(time.Second)
	for server.Connections() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := server.PushRaw([]byte(`{"message_type":42}`)); err != nil {
		t.Fatalf("PushRaw failed: %v", err)
	}

	push := protocol.NewMessage(protocol.GenericResponse{Success: true})
	push.Index = 12
	if err := server.Push(push); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Type != protocol.GenericResponseType || msg.Index != 12 {
			t.Errorf("Expected GenericResponse #12, got %s #%d", msg.Type, msg.Index)
		}
	case <-time.After(time.Second):
		t.Fatal("No message forwarded to handler")
	}

	select {
	case msg := <-received:
		t.Errorf("Undecodable frame should have been dropped, got %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClose(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		conn := NewConnection("ws://localhost:1/ws", nil)
		if err := conn.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
		select {
		case <-conn.Done():
		default:
			t.Error("Done should be closed")
		}
		if err := conn.WaitUntilReady(context.Background()); !errors.Is(err, ErrClosed) {
			t.Errorf("Expected ErrClosed, got %v", err)
		}
	})

	t.Run("after ready", func(t *testing.T) {
		server := arenatest.NewServer(nil)
		defer server.Close()

		conn := startConnection(t, server.URL(), nil)
		if err := conn.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}

		select {
		case <-conn.Done():
		case <-time.After(time.Second):
			t.Error("Done should be closed after Close")
		}

		if _, err := conn.Send(protocol.NewMessage(protocol.ListArenasAction{})); !errors.Is(err, ErrClosed) {
			t.Errorf("Expected ErrClosed, got %v", err)
		}
	})
}
