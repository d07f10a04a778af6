package signaling_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/1ureka/nexremote/internal/host"
	"github.com/1ureka/nexremote/internal/session"
	"github.com/1ureka/nexremote/internal/signaling"
	"github.com/1ureka/nexremote/internal/stream"
)

// serveHost starts the reference host over httptest and returns its
// address.
func serveHost(t *testing.T, ctx context.Context, h *host.Host) (string, int) {
	t.Helper()
	srv := httptest.NewServer(h.Handler(ctx))
	t.Cleanup(srv.Close)

	hostPart, portPart, _ := strings.Cut(strings.TrimPrefix(srv.URL, "http://"), ":")
	port, err := strconv.Atoi(portPart)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return hostPart, port
}

// TestSessionOverDataChannel runs the full bootstrap, a ping and a screen
// stream over the WebRTC path.
func TestSessionOverDataChannel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	h := host.New(host.Options{Name: "Bench", PairingCode: "314159", FrameSize: 256})
	addr, port := serveHost(t, ctx, h)

	s := session.New(session.Options{
		Dialer:         &signaling.RTCDialer{HandshakeTimeout: 5 * time.Second},
		Identity:       session.Identity{DeviceID: "dev-rtc", DeviceName: "Tablet"},
		ConnectTimeout: 20 * time.Second,
	})
	defer s.Close()

	err := s.Connect(ctx, session.Params{Host: addr, InsecurePort: port, PairingCode: "314159"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if s.State() != session.Connected || s.ServerName() != "Bench" {
		t.Fatalf("state=%v server=%q", s.State(), s.ServerName())
	}

	rtt, err := s.Ping(ctx)
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if rtt < 0 {
		t.Fatalf("rtt = %v", rtt)
	}

	screens := stream.NewMultiplexer(stream.Screens, s, nil)
	router := stream.NewRouter(screens)
	frames, cancelFrames := s.SubscribeFrames()
	defer cancelFrames()
	controls, cancelControls := s.SubscribeControl()
	defer cancelControls()
	go router.Run(ctx, frames, controls)

	if _, err := screens.RequestList(ctx); err != nil {
		t.Fatalf("RequestList: %v", err)
	}
	if err := screens.Start(ctx, []int{0}, stream.Settings{FPS: 30}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	feed, _ := screens.Feed(0)
	select {
	case f := <-feed.Frames():
		if f.Index != 0 || len(f.Payload) == 0 {
			t.Fatalf("frame = %+v", f)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no frame over the DataChannel")
	}
}

// TestWrongPairingOverDataChannel checks auth failures surface the same way
// on the WebRTC path.
func TestWrongPairingOverDataChannel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	h := host.New(host.Options{PairingCode: "111111"})
	addr, port := serveHost(t, ctx, h)

	s := session.New(session.Options{
		Dialer:         &signaling.RTCDialer{},
		Identity:       session.Identity{DeviceID: "dev-rtc", DeviceName: "Tablet"},
		ConnectTimeout: 20 * time.Second,
	})
	defer s.Close()

	err := s.Connect(ctx, session.Params{Host: addr, InsecurePort: port, PairingCode: "999999"})
	var authErr *session.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != "Invalid pairing code" {
		t.Fatalf("Connect error = %v, want *AuthError", err)
	}
	if s.State() != session.Disconnected {
		t.Fatalf("state = %v", s.State())
	}
}
