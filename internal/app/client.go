// Package app contains the top-level orchestration for the client and the
// reference host.
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/1ureka/nexremote/internal/config"
	"github.com/1ureka/nexremote/internal/control"
	"github.com/1ureka/nexremote/internal/discovery"
	"github.com/1ureka/nexremote/internal/input"
	"github.com/1ureka/nexremote/internal/session"
	"github.com/1ureka/nexremote/internal/store"
	"github.com/1ureka/nexremote/internal/stream"
	"github.com/1ureka/nexremote/internal/util"
)

// Client wires one session to the stream multiplexers, the command senders
// and the known-host store.
type Client struct {
	cfg     *config.Config
	Session *session.Session
	Store   store.Store // nil when cfg.StorePath is empty

	Screens *stream.Multiplexer
	Cameras *stream.Multiplexer
	Router  *stream.Router
	Mapper  *input.Mapper

	Keyboard  *control.Keyboard
	Gamepad   *control.Gamepad
	Media     *control.Media
	Files     *control.Files
	Tasks     *control.Tasks
	Clipboard *control.Clipboard

	host discovery.HostRecord
}

// NewClient builds a disconnected client from cfg.
func NewClient(cfg *config.Config) (*Client, error) {
	dialer, err := session.NewDialer(cfg)
	if err != nil {
		return nil, err
	}
	s := session.New(session.OptionsFromConfig(cfg, dialer))

	c := &Client{cfg: cfg, Session: s}
	if cfg.StorePath != "" {
		st, err := store.NewSQLiteStore(cfg.StorePath)
		if err != nil {
			s.Close()
			return nil, err
		}
		c.Store = st
	}

	intents := control.NewIntentTracker(control.DefaultIntentTTL, nil)
	c.Screens = stream.NewMultiplexer(stream.Screens, s, intents)
	c.Cameras = stream.NewMultiplexer(stream.Cameras, s, intents)
	c.Router = stream.NewRouter(c.Screens, c.Cameras)
	c.Mapper = input.NewMapper(s, c.Screens)

	c.Keyboard = control.NewKeyboard(s)
	c.Gamepad = control.NewGamepad(s)
	c.Media = control.NewMedia(s, intents)
	c.Files = control.NewFiles(s)
	c.Tasks = control.NewTasks(s)
	c.Clipboard = control.NewClipboard(s)
	return c, nil
}

// Discover runs one discovery pass with the configured window.
func (c *Client) Discover(ctx context.Context) ([]discovery.HostRecord, error) {
	return discovery.Discover(ctx, discovery.Options{
		Port:          c.cfg.Discovery.Port,
		Timeout:       c.cfg.Discovery.Timeout,
		BroadcastAddr: c.cfg.Discovery.BroadcastAddr,
	})
}

// Recent lists remembered hosts; it is empty without a store.
func (c *Client) Recent(ctx context.Context, limit int) ([]store.KnownHost, error) {
	if c.Store == nil {
		return nil, nil
	}
	return c.Store.Recent(ctx, limit)
}

// Connect pairs with rec and, on success, remembers it.
func (c *Client) Connect(ctx context.Context, rec discovery.HostRecord, pairingCode string) error {
	p := session.ParamsFromConfig(c.cfg, rec.Address, pairingCode)
	if rec.SecurePort > 0 {
		p.SecurePort = rec.SecurePort
	}
	if rec.InsecurePort > 0 {
		p.InsecurePort = rec.InsecurePort
	}

	if err := c.Session.Connect(ctx, p); err != nil {
		return err
	}
	c.host = rec

	if c.Store != nil && rec.ID != "" {
		if err := c.Store.Remember(ctx, rec, c.Session.Secure()); err != nil {
			util.LogWarning("failed to remember host: %v", err)
		}
	}
	return nil
}

// Run routes frames and pushes until ctx is done or the session ends. It
// returns the disconnect reason, nil when ctx ended first.
func (c *Client) Run(ctx context.Context) error {
	states, cancelStates := c.Session.SubscribeState()
	defer cancelStates()
	frames, cancelFrames := c.Session.SubscribeFrames()
	defer cancelFrames()
	controls, cancelControls := c.Session.SubscribeControl()
	defer cancelControls()

	routeCtx, stopRouting := context.WithCancel(ctx)
	defer stopRouting()
	go c.Router.Run(routeCtx, frames, controls)
	go c.Media.Watch(routeCtx)

	if c.Session.State() != session.Connected {
		c.Router.Reset()
		return session.ErrNotConnected
	}

	for {
		select {
		case ev, ok := <-states:
			if !ok {
				return session.ErrNotConnected
			}
			if ev.State == session.Disconnected {
				c.Router.Reset()
				if ev.Reason == nil {
					return session.ErrNotConnected
				}
				return ev.Reason
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// StartStreams lists the host displays and starts indices with the
// configured settings. No indices means every display.
func (c *Client) StartStreams(ctx context.Context, indices []int) ([]stream.Descriptor, error) {
	descs, err := c.Screens.RequestList(ctx)
	if err != nil {
		return nil, err
	}
	if len(descs) == 0 {
		return nil, errors.New("host reported no displays")
	}
	if len(indices) == 0 {
		for _, d := range descs {
			indices = append(indices, d.Index)
		}
	}
	err = c.Screens.Start(ctx, indices, stream.Settings{
		FPS:        c.cfg.Stream.FPS,
		Quality:    c.cfg.Stream.Quality,
		Resolution: c.cfg.Stream.Resolution,
	})
	return descs, err
}

// Latency measures one ping round trip.
func (c *Client) Latency(ctx context.Context) (time.Duration, error) {
	return c.Session.Ping(ctx)
}

// Summary is the extra stats line: peer, transport and stream rates.
func (c *Client) Summary() string {
	mode := "ws"
	if c.Session.Secure() {
		mode = "wss"
	}
	line := fmt.Sprintf("%s [%s]", c.Session.ServerName(), mode)
	if c.host.ID != "" {
		line += " #" + util.ShortID(c.host.ID)
	}
	if s := c.Router.Summary(); s != "" {
		line += " " + s
	}
	return line
}

// Close disconnects and releases the store.
func (c *Client) Close() error {
	c.Router.Reset()
	c.Session.Close()
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}

// ParseIndices turns "0,2" into [0 2].
func ParseIndices(raw []string) ([]int, error) {
	out := make([]int, 0, len(raw))
	for _, r := range raw {
		if r == "" {
			continue
		}
		n, err := strconv.Atoi(r)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid display index %q", r)
		}
		out = append(out, n)
	}
	return out, nil
}
