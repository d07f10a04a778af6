package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultPath       = "/ws"
	pongWait          = 10 * time.Second
	controlWriteWait  = 5 * time.Second
	defaultMaxMessage = 10 << 20
)

// WSDialer dials hosts over WebSocket, wss for secure endpoints.
type WSDialer struct {
	Path              string        // request path, DefaultPath when empty
	HandshakeTimeout  time.Duration // TCP + TLS + upgrade
	MaxMessageSize    int64         // inbound read limit
	KeepaliveInterval time.Duration // ping period, 0 disables keepalive
	TLSConfig         *tls.Config   // used for secure endpoints
}

// Dial implements Dialer.
func (d *WSDialer) Dial(ctx context.Context, ep Endpoint) (Conn, error) {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(ep.Host, strconv.Itoa(ep.Port)),
		Path:   d.Path,
	}
	if u.Path == "" {
		u.Path = DefaultPath
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	if ep.Secure {
		u.Scheme = "wss"
		dialer.TLSClientConfig = d.TLSConfig
	}

	ws, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}

	limit := d.MaxMessageSize
	if limit <= 0 {
		limit = defaultMaxMessage
	}
	return NewWSConn(ws, limit, d.KeepaliveInterval), nil
}

// WSConn adapts a gorilla WebSocket to Conn. It also serves the host side.
type WSConn struct {
	ws       *websocket.Conn
	interval time.Duration
	done     chan struct{}
	once     sync.Once
}

// NewWSConn wraps ws with a read limit and, when interval > 0, a keepalive
// loop: a ping every interval, and the link is considered dead when no
// message or pong arrives within interval+pongWait.
func NewWSConn(ws *websocket.Conn, readLimit int64, interval time.Duration) *WSConn {
	c := &WSConn{
		ws:       ws,
		interval: interval,
		done:     make(chan struct{}),
	}
	ws.SetReadLimit(readLimit)

	if interval > 0 {
		c.extendDeadline()
		ws.SetPongHandler(func(string) error {
			c.extendDeadline()
			return nil
		})
		go c.keepalive()
	}
	return c
}

func (c *WSConn) extendDeadline() {
	_ = c.ws.SetReadDeadline(time.Now().Add(c.interval + pongWait))
}

// keepalive uses WriteControl, which gorilla allows concurrently with the
// single data writer.
func (c *WSConn) keepalive() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(controlWriteWait)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *WSConn) ReadMessage() (Kind, []byte, error) {
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			return 0, nil, err
		}
		if c.interval > 0 {
			c.extendDeadline()
		}
		switch mt {
		case websocket.TextMessage:
			return KindText, data, nil
		case websocket.BinaryMessage:
			return KindBinary, data, nil
		}
	}
}

func (c *WSConn) WriteMessage(kind Kind, data []byte) error {
	mt := websocket.TextMessage
	if kind == KindBinary {
		mt = websocket.BinaryMessage
	}
	return c.ws.WriteMessage(mt, data)
}

// Close sends a normal-closure frame (best effort) and closes the socket.
func (c *WSConn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}
