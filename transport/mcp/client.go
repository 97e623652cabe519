package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/wricardo/mcp-training/arenaclient/messaging"
	"github.com/wricardo/mcp-training/arenaclient/protocol"
)

// maxEvents bounds the event log kept for the recent_events tool.
const maxEvents = 100

// Session is the part of app.Application the tools drive.
type Session interface {
	StateName() string
	Username() string
	Connect(ctx context.Context, username string) error
	ConnectRoom(ctx context.Context, name string) error
	CreateRoom(ctx context.Context, name string) error
	ListRooms(ctx context.Context) ([]string, error)
	StartGame(ctx context.Context) error
	GetArenaInfo(ctx context.Context) (*protocol.ArenaInfoResponse, error)
	SubmitMove(ctx context.Context, move json.RawMessage) error
	QuitRoom(ctx context.Context) error
	OnServerMessage(fn messaging.ServerListener) messaging.ListenerID
}

// Client exposes one arena session as MCP tools
type Client struct {
	session   Session
	logger    zerolog.Logger
	mcpServer *server.MCPServer

	// actionMu runs one session action at a time.
	actionMu sync.Mutex

	mu     sync.Mutex
	events []protocol.Message
}

// NewClient creates an MCP server driving session
func NewClient(session Session, logger zerolog.Logger) *Client {
	c := &Client{
		session: session,
		logger:  logger,
	}

	session.OnServerMessage(c.record)
	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Arena Client",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Arena Client - MCP Interface

Drives a single player session against an arena server over WebSocket.

SESSION FLOW:
login -> connect -> connected -> join_room -> joined_room -> quit_room -> connected

AVAILABLE TOOLS:
- session_state: Current state and username
- connect: Log in with a username
- list_rooms: List arena names
- create_room: Create an arena
- join_room: Join an arena
- arena_info: Describe the joined arena
- start_game: Start the game in the joined arena
- submit_move: Send a game move (JSON object)
- quit_room: Leave the joined arena
- recent_events: Events pushed by the server

Tools that are not legal in the current state fail without contacting the server.`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.NewTool("session_state",
		mcp.WithDescription("Get the current session state and username"),
	), c.handleSessionState)

	c.mcpServer.AddTool(mcp.NewTool("connect",
		mcp.WithDescription("Log in to the arena server"),
		mcp.WithString("username", mcp.Description("Player name; falls back to the configured username")),
	), c.handleConnect)

	c.mcpServer.AddTool(mcp.NewTool("list_rooms",
		mcp.WithDescription("List the arenas on the server, sorted by name"),
	), c.handleListRooms)

	c.mcpServer.AddTool(mcp.NewTool("create_room",
		mcp.WithDescription("Create a new arena"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Arena name")),
	), c.handleCreateRoom)

	c.mcpServer.AddTool(mcp.NewTool("join_room",
		mcp.WithDescription("Join an existing arena"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Arena name")),
	), c.handleJoinRoom)

	c.mcpServer.AddTool(mcp.NewTool("arena_info",
		mcp.WithDescription("Describe the joined arena"),
	), c.handleArenaInfo)

	c.mcpServer.AddTool(mcp.NewTool("start_game",
		mcp.WithDescription("Start the game in the joined arena"),
	), c.handleStartGame)

	c.mcpServer.AddTool(mcp.NewTool("submit_move",
		mcp.WithDescription("Send a game move to the joined arena"),
		mcp.WithString("move", mcp.Required(), mcp.Description("Move as a JSON object, forwarded unchanged")),
	), c.handleSubmitMove)

	c.mcpServer.AddTool(mcp.NewTool("quit_room",
		mcp.WithDescription("Leave the joined arena"),
	), c.handleQuitRoom)

	c.mcpServer.AddTool(mcp.NewTool("recent_events",
		mcp.WithDescription("List events pushed by the server, oldest first"),
		mcp.WithNumber("limit", mcp.Description("Maximum number of events (default 20)")),
	), c.handleRecentEvents)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// record keeps server events for recent_events.
func (c *Client) record(msg protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, msg)
	if len(c.events) > maxEvents {
		c.events = c.events[len(c.events)-maxEvents:]
	}
	return nil
}

// Tool handlers

func (c *Client) handleSessionState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := fmt.Sprintf("State: %s\n", c.session.StateName())
	if name := c.session.Username(); name != "" {
		result += fmt.Sprintf("Username: %s\n", name)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	username := request.GetString("username", "")

	if err := c.session.Connect(ctx, username); err != nil {
		return c.toolError("connect", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Connected as %s\n", c.session.Username())), nil
}

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	rooms, err := c.session.ListRooms(ctx)
	if err != nil {
		return c.toolError("list_rooms", err), nil
	}
	return mcp.NewToolResultText(formatRooms(rooms)), nil
}

func (c *Client) handleCreateRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := c.session.CreateRoom(ctx, name); err != nil {
		return c.toolError("create_room", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created arena %s\nState: %s\n", name, c.session.StateName())), nil
}

func (c *Client) handleJoinRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := c.session.ConnectRoom(ctx, name); err != nil {
		return c.toolError("join_room", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Joined arena %s\n", name)), nil
}

func (c *Client) handleArenaInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	info, err := c.session.GetArenaInfo(ctx)
	if err != nil {
		return c.toolError("arena_info", err), nil
	}
	return mcp.NewToolResultText(formatArenaInfo(info)), nil
}

func (c *Client) handleStartGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	if err := c.session.StartGame(ctx); err != nil {
		return c.toolError("start_game", err), nil
	}
	return mcp.NewToolResultText("Game started\n"), nil
}

func (c *Client) handleSubmitMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	move, err := request.RequireString("move")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !json.Valid([]byte(move)) {
		return mcp.NewToolResultError("move must be valid JSON"), nil
	}

	if err := c.session.SubmitMove(ctx, json.RawMessage(move)); err != nil {
		return c.toolError("submit_move", err), nil
	}
	return mcp.NewToolResultText("Move accepted\n"), nil
}

func (c *Client) handleQuitRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	if err := c.session.QuitRoom(ctx); err != nil {
		return c.toolError("quit_room", err), nil
	}
	return mcp.NewToolResultText("Left arena\n"), nil
}

func (c *Client) handleRecentEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}

	c.mu.Lock()
	events := c.events
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	events = append([]protocol.Message(nil), events...)
	c.mu.Unlock()

	return mcp.NewToolResultText(formatEvents(events)), nil
}

func (c *Client) toolError(tool string, err error) *mcp.CallToolResult {
	c.logger.Warn().Err(err).Str("tool", tool).Msg("tool failed")
	return mcp.NewToolResultError(err.Error())
}

func formatRooms(rooms []string) string {
	if len(rooms) == 0 {
		return "No arenas\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Arenas (%d):\n", len(rooms))
	for _, room := range rooms {
		fmt.Fprintf(&b, "  - %s\n", room)
	}
	return b.String()
}

func formatArenaInfo(info *protocol.ArenaInfoResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Arena: %s\n", info.Name)
	fmt.Fprintf(&b, "Created: %s\n", info.DateCreated)
	fmt.Fprintf(&b, "Game started: %t\n", info.GameStarted)
	fmt.Fprintf(&b, "Players (%d):\n", len(info.Agents))
	for _, agent := range info.Agents {
		fmt.Fprintf(&b, "  - %s\n", agent.Name)
	}
	return b.String()
}

func formatEvents(events []protocol.Message) string {
	if len(events) == 0 {
		return "No events\n"
	}

	var b strings.Builder
	for _, msg := range events {
		b.WriteString(formatEvent(msg))
		b.WriteByte('\n')
	}
	return b.String()
}

func formatEvent(msg protocol.Message) string {
	event, ok := msg.Data.(protocol.ServerArenaEvent)
	if !ok {
		return msg.Type.String()
	}

	switch data := event.ArenaMessage.Data.(type) {
	case protocol.PlayerJoinedEvent:
		return fmt.Sprintf("%s joined (%s)", data.Name, data.ID)
	case protocol.PlayerQuitEvent:
		return fmt.Sprintf("%s left", data.Name)
	case protocol.GameStartedEvent:
		return "game started"
	case protocol.ArenaBoardEvent:
		return fmt.Sprintf("board %s", data.Board)
	default:
		return event.ArenaMessage.Type.String()
	}
}
