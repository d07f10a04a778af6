// Package session owns one client's connection to a host: the connect
// attempt with secure-to-insecure fallback, the handshake and pairing-code
// authentication, the installed cipher, and the dispatch of inbound traffic
// to typed event subscribers.
package session

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/1ureka/nexremote/internal/protocol"
	"github.com/1ureka/nexremote/internal/secure"
	"github.com/1ureka/nexremote/internal/transport"
)

// State is the session lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// StateEvent reports a state change. Reason is set when a connected session
// was lost or a connect attempt failed.
type StateEvent struct {
	State      State
	ServerName string
	Secure     bool
	Reason     error
}

// Identity is what the client presents in auth_response.
type Identity struct {
	DeviceID   string
	DeviceName string
}

// Options configures a Session. Zero timeouts take the defaults.
type Options struct {
	Dialer   transport.Dialer
	Identity Identity

	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	AuthTimeout      time.Duration

	// EventBuffer is the capacity of each subscriber channel.
	EventBuffer int
}

const (
	DefaultConnectTimeout   = 10 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultAuthTimeout      = 30 * time.Second
	defaultEventBuffer      = 64
)

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if o.AuthTimeout <= 0 {
		o.AuthTimeout = DefaultAuthTimeout
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = defaultEventBuffer
	}
	return o
}

// Params names the host to connect to.
type Params struct {
	Host         string
	SecurePort   int
	InsecurePort int
	PairingCode  string
	PreferSecure bool
}

// endpoints lists the attempts in order. With PreferSecure the secure port
// goes first and the insecure one is the fallback; otherwise only the
// insecure port is tried (or the secure one when it is the only port).
func (p Params) endpoints() []transport.Endpoint {
	var eps []transport.Endpoint
	if p.PreferSecure && p.SecurePort > 0 {
		eps = append(eps, transport.Endpoint{Host: p.Host, Port: p.SecurePort, Secure: true})
	}
	if p.InsecurePort > 0 {
		eps = append(eps, transport.Endpoint{Host: p.Host, Port: p.InsecurePort})
	}
	if len(eps) == 0 && p.SecurePort > 0 {
		eps = append(eps, transport.Endpoint{Host: p.Host, Port: p.SecurePort, Secure: true})
	}
	return eps
}

// link is everything an established connection owns. It is built whole by
// an attempt and installed in one step.
type link struct {
	tr           *transport.Transport
	codec        *secure.Codec
	endpoint     transport.Endpoint
	serverName   string
	capabilities map[string]bool
}

// Session is the client's single connection to a host. All methods are safe
// for concurrent use.
type Session struct {
	opts Options

	mu            sync.RWMutex
	state         State
	epoch         uint64
	link          *link
	cancelAttempt context.CancelFunc

	states   *hub[StateEvent]
	controls *hub[protocol.Message]
	frames   *hub[protocol.Frame]
}

// New creates a disconnected session.
func New(opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		opts:     opts,
		states:   newHub[StateEvent]("state", opts.EventBuffer, false),
		controls: newHub[protocol.Message]("control", opts.EventBuffer, false),
		frames:   newHub[protocol.Frame]("frame", opts.EventBuffer, true),
	}
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

// SubscribeState returns a channel of state changes and its cancel func.
func (s *Session) SubscribeState() (<-chan StateEvent, func()) { return s.states.subscribe() }

// SubscribeControl returns a channel of decoded inbound control messages.
func (s *Session) SubscribeControl() (<-chan protocol.Message, func()) {
	return s.controls.subscribe()
}

// SubscribeFrames returns a channel of inbound binary frames with a known tag.
func (s *Session) SubscribeFrames() (<-chan protocol.Frame, func()) { return s.frames.subscribe() }

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ServerName is the name the host sent in auth_success.
func (s *Session) ServerName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.link == nil {
		return ""
	}
	return s.link.serverName
}

// Secure reports whether the current connection uses the secure port.
func (s *Session) Secure() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.link != nil && s.link.endpoint.Secure
}

// Endpoint returns the endpoint of the current connection.
func (s *Session) Endpoint() (transport.Endpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.link == nil {
		return transport.Endpoint{}, false
	}
	return s.link.endpoint, true
}

// Capabilities returns a copy of the host's advertised capabilities.
func (s *Session) Capabilities() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.link == nil {
		return nil
	}
	return maps.Clone(s.link.capabilities)
}

func (s *Session) Identity() Identity { return s.opts.Identity }

// ---------------------------------------------------------------------------
// Teardown
// ---------------------------------------------------------------------------

// Disconnect closes the connection or aborts the connect attempt in flight.
// It emits exactly one Disconnected event; further calls are no-ops.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Disconnected {
		return
	}
	s.epoch++
	s.teardownLocked()
	s.states.publish(StateEvent{State: Disconnected})
}

// Close disconnects and closes every subscriber channel.
func (s *Session) Close() {
	s.Disconnect()
	s.states.closeAll()
	s.controls.closeAll()
	s.frames.closeAll()
}

// teardownLocked releases the attempt and the link. Caller holds mu and has
// already bumped the epoch.
func (s *Session) teardownLocked() {
	if s.cancelAttempt != nil {
		s.cancelAttempt()
		s.cancelAttempt = nil
	}
	if s.link != nil {
		s.link.tr.Close()
		s.link = nil
	}
	s.state = Disconnected
}
