// Package config manages connection profiles for the arena client.
//
// A profile names the server to dial and how a session behaves once
// connected. Profiles are stored as JSON files in a profiles directory, one
// file per profile:
//
//	{
//	  "name": "local",
//	  "description": "Arena server on this machine",
//	  "server_url": "ws://localhost:3000/game",
//	  "origin": "http://localhost",
//	  "username": "alice",
//	  "request_timeout": "10s",
//	  "auto_join_on_create": true
//	}
//
// request_timeout accepts a Go duration string or a number of seconds, either
// as a JSON number or as a string without a unit ("10" is ten seconds). Zero
// or an absent value waits for replies indefinitely. The arena server only
// accepts upgrades whose Origin header starts with http://localhost, so
// origin defaults to that value.
//
// Usage:
//
//	manager, err := config.NewManager("profiles")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load a specific profile
//	profile, err := manager.LoadProfile("local")
//
//	// Get the default profile
//	profile = manager.GetDefault()
//
//	// Build a session from it
//	session := app.New(profile.ServerURL, profile.AppOptions()...)
//
// When no profile file exists the manager falls back to a built-in profile
// pointing at ws://localhost:3000/game.
//
// Validation:
//
// Every profile loaded or saved is checked for:
//   - A ws or wss server URL with a host
//   - A non-negative request timeout
package config
