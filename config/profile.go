package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/wricardo/mcp-training/arenaclient/app"
	"github.com/wricardo/mcp-training/arenaclient/transport/websocket"
)

const (
	DefaultServerURL = "ws://localhost:3000/game"
	DefaultOrigin    = "http://localhost"
)

// Profile describes how to reach an arena server.
type Profile struct {
	Name             string        `json:"name"`
	Description      string        `json:"description,omitempty"`
	ServerURL        string        `json:"server_url"`
	Origin           string        `json:"origin,omitempty"`
	Username         string        `json:"username,omitempty"`
	RequestTimeout   time.Duration `json:"-"`
	AutoJoinOnCreate bool          `json:"auto_join_on_create,omitempty"`
}

type profileAlias Profile

type profileJSON struct {
	*profileAlias
	RequestTimeout any `json:"request_timeout,omitempty"`
}

func (p Profile) MarshalJSON() ([]byte, error) {
	wire := profileJSON{profileAlias: (*profileAlias)(&p)}
	if p.RequestTimeout > 0 {
		wire.RequestTimeout = p.RequestTimeout.String()
	}
	return json.Marshal(wire)
}

func (p *Profile) UnmarshalJSON(b []byte) error {
	wire := profileJSON{profileAlias: (*profileAlias)(p)}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}

	timeout, err := parseTimeout(wire.RequestTimeout)
	if err != nil {
		return fmt.Errorf("request_timeout: %w", err)
	}
	p.RequestTimeout = timeout
	return nil
}

// parseTimeout accepts a duration string or a number of seconds, given as a
// JSON number or as a string without a unit.
func parseTimeout(v any) (time.Duration, error) {
	switch v := v.(type) {
	case nil:
		return 0, nil
	case float64, json.Number:
		return seconds(v)
	case string:
		if _, err := cast.ToFloat64E(strings.TrimSpace(v)); err == nil {
			return seconds(strings.TrimSpace(v))
		}
		return cast.ToDurationE(v)
	default:
		return cast.ToDurationE(v)
	}
}

func seconds(v any) (time.Duration, error) {
	n, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, err
	}
	return time.Duration(n * float64(time.Second)), nil
}

// Validate checks the profile for obvious mistakes.
func (p *Profile) Validate() error {
	u, err := url.Parse(p.ServerURL)
	if err != nil {
		return fmt.Errorf("server_url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("server_url must use ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("server_url has no host")
	}
	if p.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	return nil
}

// AppOptions converts the profile into session options.
func (p *Profile) AppOptions() []app.Option {
	opts := []app.Option{
		app.WithRequestTimeout(p.RequestTimeout),
	}
	if p.Username != "" {
		opts = append(opts, app.WithUsername(p.Username))
	}
	if p.AutoJoinOnCreate {
		opts = append(opts, app.WithCreateRoomPolicy(app.CreateRoomAutoJoin))
	}

	origin := p.Origin
	if origin == "" {
		origin = DefaultOrigin
	}
	header := http.Header{}
	header.Set("Origin", origin)
	opts = append(opts, app.WithConnectionOptions(websocket.WithHeader(header)))

	return opts
}

// DefaultProfile is used when no profile file is available.
func DefaultProfile() *Profile {
	return &Profile{
		Name:           "default",
		Description:    "Local arena server",
		ServerURL:      DefaultServerURL,
		Origin:         DefaultOrigin,
		RequestTimeout: 10 * time.Second,
	}
}
