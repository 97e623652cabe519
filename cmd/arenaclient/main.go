// Command arenaclient is a terminal client for the arena game server.
//
// It logs in, lists and creates arenas, inspects an arena, follows the
// events of an arena, and can expose the whole session as an MCP stdio
// server for AI agents. Connection settings come from JSON profiles in the
// profiles directory; flags and ARENACLIENT_* environment variables override
// them. A .env file in the working directory is loaded first.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/arenaclient/app"
	"github.com/wricardo/mcp-training/arenaclient/config"
	"github.com/wricardo/mcp-training/arenaclient/protocol"
	"github.com/wricardo/mcp-training/arenaclient/transport/mcp"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "arenaclient"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand(os.Stdout, os.Stderr).Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runner carries what every subcommand needs.
type runner struct {
	out    io.Writer
	logger zerolog.Logger
}

func newCommand(out, logOut io.Writer) *cli.Command {
	r := &runner{out: out, logger: zerolog.Nop()}

	return &cli.Command{
		Name:    AppName,
		Usage:   "Play on an arena game server",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "WebSocket URL of the arena server",
				Sources: cli.EnvVars("ARENACLIENT_SERVER"),
			},
			&cli.StringFlag{
				Name:    "username",
				Aliases: []string{"u"},
				Usage:   "Player name",
				Sources: cli.EnvVars("ARENACLIENT_USERNAME"),
			},
			&cli.StringFlag{
				Name:    "profile",
				Aliases: []string{"p"},
				Usage:   "Profile to load instead of the default",
				Sources: cli.EnvVars("ARENACLIENT_PROFILE"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Usage:   "Directory containing connection profiles",
				Value:   "profiles",
				Sources: cli.EnvVars("ARENACLIENT_CONFIG_DIR"),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Time to wait for each server reply (0 waits forever)",
			},
			&cli.BoolFlag{
				Name:  "auto-join",
				Usage: "Join an arena right after creating it",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("ARENACLIENT_DEBUG"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level := zerolog.InfoLevel
			if cmd.Bool("debug") {
				level = zerolog.DebugLevel
			}
			r.logger = zerolog.New(zerolog.ConsoleWriter{Out: logOut, TimeFormat: time.Kitchen}).
				Level(level).With().Timestamp().Logger()
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:   "rooms",
				Usage:  "List the arenas on the server",
				Action: r.rooms,
			},
			{
				Name:      "create",
				Usage:     "Create an arena",
				ArgsUsage: "NAME",
				Action:    r.create,
			},
			{
				Name:      "info",
				Usage:     "Join an arena, describe it and leave",
				ArgsUsage: "NAME",
				Action:    r.info,
			},
			{
				Name:      "watch",
				Usage:     "Join an arena and print its events until interrupted",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "start", Usage: "Start the game after joining"},
				},
				Action: r.watch,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the session as MCP tools over stdio",
				Action: r.serveMCP,
			},
			{
				Name:  "profiles",
				Usage: "Manage connection profiles",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List stored profiles",
						Action: r.listProfiles,
					},
					{
						Name:      "save",
						Usage:     "Save the effective settings as a profile",
						ArgsUsage: "NAME",
						Action:    r.saveProfile,
					},
				},
				Action: r.listProfiles,
			},
		},
	}
}

// resolveProfile loads the selected profile and applies flag overrides.
func (r *runner) resolveProfile(cmd *cli.Command) (*config.Profile, error) {
	profile := config.DefaultProfile()

	manager, err := config.NewManager(cmd.String("config-dir"))
	switch {
	case errors.Is(err, config.ErrDirNotFound):
		if name := cmd.String("profile"); name != "" {
			return nil, fmt.Errorf("profile %s: %w", name, err)
		}
		r.logger.Debug().Str("dir", cmd.String("config-dir")).Msg("no profile directory, using built-in profile")
	case err != nil:
		return nil, err
	case cmd.String("profile") != "":
		if profile, err = manager.LoadProfile(cmd.String("profile")); err != nil {
			return nil, err
		}
	default:
		profile = manager.GetDefault()
	}

	effective := *profile
	if cmd.IsSet("server") {
		effective.ServerURL = cmd.String("server")
	}
	if cmd.IsSet("username") {
		effective.Username = cmd.String("username")
	}
	if cmd.IsSet("timeout") {
		effective.RequestTimeout = cmd.Duration("timeout")
	}
	if cmd.IsSet("auto-join") {
		effective.AutoJoinOnCreate = cmd.Bool("auto-join")
	}

	if err := effective.Validate(); err != nil {
		return nil, err
	}
	return &effective, nil
}

// login opens a session and connects it.
func (r *runner) login(ctx context.Context, cmd *cli.Command) (*app.Application, error) {
	profile, err := r.resolveProfile(cmd)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().Str("server", profile.ServerURL).Str("profile", profile.Name).Msg("connecting")
	session := app.New(profile.ServerURL, append(profile.AppOptions(), app.WithLogger(r.logger))...)
	if err := session.Connect(ctx, ""); err != nil {
		session.Close()
		return nil, err
	}
	return session, nil
}

func (r *runner) rooms(ctx context.Context, cmd *cli.Command) error {
	session, err := r.login(ctx, cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	rooms, err := session.ListRooms(ctx)
	if err != nil {
		return err
	}
	for _, room := range rooms {
		fmt.Fprintln(r.out, room)
	}
	return nil
}

func (r *runner) create(ctx context.Context, cmd *cli.Command) error {
	name, err := requireName(cmd)
	if err != nil {
		return err
	}

	session, err := r.login(ctx, cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.CreateRoom(ctx, name); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Created arena %s\n", name)
	return nil
}

func (r *runner) info(ctx context.Context, cmd *cli.Command) error {
	name, err := requireName(cmd)
	if err != nil {
		return err
	}

	session, err := r.login(ctx, cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.ConnectRoom(ctx, name); err != nil {
		return err
	}
	info, err := session.GetArenaInfo(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Arena: %s\n", info.Name)
	fmt.Fprintf(r.out, "Created: %s\n", info.DateCreated)
	fmt.Fprintf(r.out, "Game started: %t\n", info.GameStarted)
	for _, agent := range info.Agents {
		fmt.Fprintf(r.out, "Player: %s\n", agent.Name)
	}

	return session.QuitRoom(ctx)
}

func (r *runner) watch(ctx context.Context, cmd *cli.Command) error {
	name, err := requireName(cmd)
	if err != nil {
		return err
	}

	session, err := r.login(ctx, cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	session.OnArenaMessage(func(msg protocol.ArenaMessage) error {
		fmt.Fprintln(r.out, describeArenaMessage(msg))
		return nil
	})

	if err := session.ConnectRoom(ctx, name); err != nil {
		return err
	}
	if cmd.Bool("start") {
		if err := session.StartGame(ctx); err != nil {
			return err
		}
	}

	r.logger.Info().Str("arena", name).Msg("watching, interrupt to leave")
	<-ctx.Done()

	// The command context is gone; give the quit its own deadline.
	quitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return session.QuitRoom(quitCtx)
}

func (r *runner) serveMCP(ctx context.Context, cmd *cli.Command) error {
	profile, err := r.resolveProfile(cmd)
	if err != nil {
		return err
	}

	session := app.New(profile.ServerURL, append(profile.AppOptions(), app.WithLogger(r.logger))...)
	defer session.Close()

	client := mcp.NewClient(session, r.logger.With().Str("component", "mcp").Logger())
	r.logger.Info().Str("server", profile.ServerURL).Msg("serving MCP over stdio")
	return server.ServeStdio(client.GetMCPServer())
}

func (r *runner) listProfiles(ctx context.Context, cmd *cli.Command) error {
	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}

	infos, err := manager.ListProfiles()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintln(r.out, "No profiles")
		return nil
	}

	def := manager.GetDefault()
	for _, info := range infos {
		marker := " "
		if def != nil && def.Name == info.Name {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %-16s %s", marker, info.ProfileID, info.ServerURL)
		if info.Description != "" {
			fmt.Fprintf(r.out, "  (%s)", info.Description)
		}
		fmt.Fprintln(r.out)
	}
	return nil
}

func (r *runner) saveProfile(ctx context.Context, cmd *cli.Command) error {
	name, err := requireName(cmd)
	if err != nil {
		return err
	}

	dir := cmd.String("config-dir")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	profile, err := r.resolveProfile(cmd)
	if err != nil {
		return err
	}
	profile.Name = name

	manager, err := config.NewManager(dir)
	if err != nil {
		return err
	}
	if err := manager.SaveProfile(name, profile); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Saved profile %s\n", name)
	return nil
}

func requireName(cmd *cli.Command) (string, error) {
	name := cmd.Args().First()
	if name == "" {
		return "", fmt.Errorf("%s requires an arena name", cmd.Name)
	}
	return name, nil
}

func describeArenaMessage(msg protocol.ArenaMessage) string {
	switch data := msg.Data.(type) {
	case protocol.PlayerJoinedEvent:
		return fmt.Sprintf("%s joined", data.Name)
	case protocol.PlayerQuitEvent:
		return fmt.Sprintf("%s left", data.Name)
	case protocol.GameStartedEvent:
		return "game started"
	case protocol.ArenaBoardEvent:
		return fmt.Sprintf("board: %s", data.Board)
	default:
		return msg.Type.String()
	}
}
