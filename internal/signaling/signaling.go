// Package signaling performs the SDP/ICE exchange that sets up a WebRTC
// DataChannel to the host. The host serves the exchange on a WebSocket
// (path DefaultPath) next to its session endpoint; once the channel is open
// the WebSocket is closed and the session runs over the DataChannel.
package signaling

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/nexremote/internal/transport"
	"github.com/1ureka/nexremote/internal/util"
	rtc "github.com/1ureka/nexremote/internal/webrtc"
)

const DefaultPath = "/rtc"

// readyGrace bounds the wait for the local DataChannel after the peer has
// already closed the signaling socket.
const readyGrace = 5 * time.Second

// RTCDialer implements transport.Dialer over a WebRTC DataChannel.
type RTCDialer struct {
	Path             string
	ICEServers       []string
	HandshakeTimeout time.Duration
	TLSConfig        *tls.Config // for secure endpoints
}

// Dial connects to the host's signaling WebSocket, answers its offer and
// returns the DataChannel link once it is open.
func (d *RTCDialer) Dial(ctx context.Context, ep transport.Endpoint) (transport.Conn, error) {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(ep.Host, strconv.Itoa(ep.Port)),
		Path:   d.Path,
	}
	if u.Path == "" {
		u.Path = DefaultPath
	}
	dialer := websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}
	if ep.Secure {
		u.Scheme = "wss"
		dialer.TLSClientConfig = d.TLSConfig
	}

	ws, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to signaling server: %w", err)
	}
	util.LogDebug("signaling connected: %s", u.String())

	conn, err := rtc.NewConn(d.ICEServers)
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	if err := establish(ctx, ws, conn, false); err != nil {
		return nil, err
	}
	return conn, nil
}

// Accept runs the host side of the exchange on an upgraded WebSocket: it
// sends the offer and returns the DataChannel link once it is open. ws is
// closed on return.
func Accept(ctx context.Context, ws *websocket.Conn, iceServers []string) (*rtc.Conn, error) {
	conn, err := rtc.NewConn(iceServers)
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	if err := establish(ctx, ws, conn, true); err != nil {
		return nil, err
	}
	return conn, nil
}

// establish wires sender and receiver onto ws and blocks until the
// DataChannel opens, signaling fails, or ctx is done. ws is always closed;
// conn is closed on failure.
func establish(ctx context.Context, ws *websocket.Conn, conn *rtc.Conn, offer bool) error {
	defer ws.Close()

	s := &sender{conn: conn, ws: ws}
	r := &receiver{conn: conn, ws: ws, sender: s}

	// Trickle ICE; best effort.
	conn.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c != nil {
			data, _ := json.Marshal(c.ToJSON())
			_ = s.sendCandidate(string(data))
		}
	})

	// Exits when ws is closed (deferred above).
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.watch()
	}()

	if offer {
		if err := s.sendOffer(); err != nil {
			conn.Close()
			return fmt.Errorf("failed to send offer: %w", err)
		}
	}

	select {
	case <-conn.Ready():
		util.LogDebug("WebRTC DataChannel established, closing signaling socket")
		return nil

	case err := <-errCh:
		// The peer closes the socket as soon as its end of the channel is
		// open; ours can open a moment later.
		timer := time.NewTimer(readyGrace)
		defer timer.Stop()
		select {
		case <-conn.Ready():
			util.LogDebug("WebRTC DataChannel established after signaling closed")
			return nil
		case <-timer.C:
		case <-ctx.Done():
		}
		conn.Close()
		return fmt.Errorf("signaling failed: %w", err)

	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	}
}
