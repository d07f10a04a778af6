// Package host is a reference host: it speaks the full session protocol
// (handshake, pairing, control domains, binary frame push) with synthetic
// content. It backs the package tests and cmd/nexhost.
package host

import (
	"context"
	"crypto/rand"
	"math/big"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/1ureka/nexremote/internal/protocol"
	"github.com/1ureka/nexremote/internal/secure"
	"github.com/1ureka/nexremote/internal/signaling"
	"github.com/1ureka/nexremote/internal/transport"
	"github.com/1ureka/nexremote/internal/util"
)

const (
	Version = "1.0.0"

	pairingCodeLength = 6
	reasonBadCode     = "Invalid pairing code"
)

// Options configures a Host. Zero fields take defaults.
type Options struct {
	ID          string
	Name        string
	PairingCode string
	// Cipher is announced in the handshake. Empty means Fernet, which is
	// announced by omission.
	Cipher   string
	Displays []protocol.DisplayDescriptor
	Cameras  []protocol.CameraDescriptor

	HandshakeTimeout time.Duration
	AuthTimeout      time.Duration
	MaxMessageSize   int64
	ICEServers       []string

	// FrameSize is the size of each synthetic image payload.
	FrameSize int
}

// Host serves any number of clients with shared, static content.
type Host struct {
	opts Options

	mu      sync.Mutex
	clients map[*client]struct{}

	uplink atomic.Int64
}

// New returns a host with defaults filled in; the pairing code is generated
// when not set.
func New(opts Options) *Host {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Name == "" {
		opts.Name = "NexRemote Host"
	}
	if opts.PairingCode == "" {
		opts.PairingCode = GeneratePairingCode()
	}
	if opts.Displays == nil {
		opts.Displays = []protocol.DisplayDescriptor{
			{Index: 0, Name: "Display 1", Width: 1920, Height: 1080, IsPrimary: true},
			{Index: 1, Name: "Display 2", Width: 2560, Height: 1440},
			{Index: 2, Name: "Display 3", Width: 1280, Height: 720},
		}
	}
	if opts.Cameras == nil {
		opts.Cameras = []protocol.CameraDescriptor{
			{Index: 0, Name: "Integrated Camera", Width: 1280, Height: 720, FPS: 30},
		}
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = 30 * time.Second
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = 10 << 20
	}
	if opts.FrameSize <= 0 {
		opts.FrameSize = 1024
	}
	return &Host{opts: opts, clients: make(map[*client]struct{})}
}

func (h *Host) ID() string          { return h.opts.ID }
func (h *Host) Name() string        { return h.opts.Name }
func (h *Host) PairingCode() string { return h.opts.PairingCode }

// UplinkFrames counts binary frames received from clients.
func (h *Host) UplinkFrames() int64 { return h.uplink.Load() }

// Clients returns the number of authenticated clients.
func (h *Host) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// GeneratePairingCode returns a random numeric code.
func GeneratePairingCode() string {
	digits := make([]byte, pairingCodeLength)
	for i := range digits {
		n, _ := rand.Int(rand.Reader, big.NewInt(10))
		digits[i] = byte('0') + byte(n.Int64())
	}
	return string(digits)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler serves the session WebSocket at transport.DefaultPath and WebRTC
// signaling at signaling.DefaultPath.
func (h *Host) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(transport.DefaultPath, func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.ServeConn(ctx, transport.NewWSConn(ws, h.opts.MaxMessageSize, 0))
	})

	mux.HandleFunc(signaling.DefaultPath, func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn, err := signaling.Accept(ctx, ws, h.opts.ICEServers)
		if err != nil {
			util.LogWarning("signaling with %s failed: %v", r.RemoteAddr, err)
			return
		}
		h.ServeConn(ctx, conn)
	})

	return mux
}

// ServeConn runs the protocol on conn until the client leaves, the
// handshake or authentication fails, or ctx is done. It closes conn.
func (h *Host) ServeConn(ctx context.Context, conn transport.Conn) {
	tr := transport.New(ctx, conn)
	defer tr.Close()

	c := &client{host: h, tr: tr}
	codec, err := c.bootstrap(ctx)
	if err != nil {
		util.LogWarning("client rejected: %v", err)
		return
	}
	c.codec = codec

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
	}()

	c.serve(ctx)
}

// newCodec generates this connection's key.
func (h *Host) newCodec() (protocol.Handshake, *secure.Codec, error) {
	key, err := secure.GenerateKey(h.opts.Cipher)
	if err != nil {
		return protocol.Handshake{}, nil, err
	}
	hs := protocol.Handshake{Key: key, Cipher: h.opts.Cipher, ServerVersion: Version}
	if hs.Cipher == secure.CipherFernet {
		hs.Cipher = ""
	}
	c, err := secure.NewCipher(hs)
	if err != nil {
		return protocol.Handshake{}, nil, err
	}
	return hs, secure.NewCodec(c), nil
}
