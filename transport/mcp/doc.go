// Package mcp exposes an arena client session as a Model Context Protocol
// server.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Tool definitions for every session action
//   - A bounded log of server events
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - session_state: Current state and username
//   - connect: Log in with a username
//   - list_rooms: List arenas sorted by name
//   - create_room: Create an arena
//   - join_room: Join an arena
//   - arena_info: Describe the joined arena
//   - start_game: Start the game in the joined arena
//   - submit_move: Send an opaque JSON move
//   - quit_room: Leave the joined arena
//   - recent_events: Server events, oldest first
//
// Tool failures, including actions that are not legal in the current state,
// are returned as error results rather than protocol errors so the agent can
// read the reason.
//
// Usage:
//
//	session := app.New(profile.ServerURL, profile.AppOptions()...)
//	client := mcp.NewClient(session, logger)
//	server.ServeStdio(client.GetMCPServer())
package mcp
