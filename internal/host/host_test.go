package host

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/1ureka/nexremote/internal/control"
	"github.com/1ureka/nexremote/internal/protocol"
	"github.com/1ureka/nexremote/internal/session"
	"github.com/1ureka/nexremote/internal/transport"
)

func connect(t *testing.T, h *Host, code string) (*session.Session, error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	dial := transport.DialerFunc(func(context.Context, transport.Endpoint) (transport.Conn, error) {
		client, server := transport.Pipe()
		go h.ServeConn(ctx, server)
		return client, nil
	})
	s := session.New(session.Options{
		Dialer:   dial,
		Identity: session.Identity{DeviceID: "dev", DeviceName: "Phone"},
	})
	t.Cleanup(s.Close)
	return s, s.Connect(ctx, session.Params{Host: "127.0.0.1", InsecurePort: 8766, PairingCode: code})
}

func TestGeneratePairingCode(t *testing.T) {
	for range 20 {
		code := GeneratePairingCode()
		if len(code) != 6 {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q has non-digit %q", code, r)
			}
		}
	}
}

func TestClampSettings(t *testing.T) {
	tests := []struct {
		in, want settings
	}{
		{settings{fps: 0, quality: 0, resolution: "8k"}, settings{fps: 1, quality: 1, resolution: "native"}},
		{settings{fps: 90, quality: 101, resolution: "480p"}, settings{fps: 60, quality: 100, resolution: "480p"}},
	}
	for _, tt := range tests {
		if got := clampSettings(tt.in); got != tt.want {
			t.Errorf("clampSettings(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestWrongPairingCode(t *testing.T) {
	h := New(Options{PairingCode: "111111"})
	_, err := connect(t, h, "222222")

	var authErr *session.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *session.AuthError", err)
	}
	if authErr.Reason != reasonBadCode {
		t.Fatalf("reason = %q", authErr.Reason)
	}
	if h.Clients() != 0 {
		t.Fatalf("clients = %d after rejected pairing", h.Clients())
	}
}

func TestControlDomains(t *testing.T) {
	h := New(Options{Name: "Study", PairingCode: "135790"})
	s, err := connect(t, h, "135790")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if s.ServerName() != "Study" {
		t.Fatalf("server name = %q", s.ServerName())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	files := control.NewFiles(s)
	listing, err := files.List(ctx, "/Documents")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listing.Files) != 2 {
		t.Fatalf("listing = %+v", listing)
	}

	opened, err := files.Open(ctx, "/Pictures")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened.Action != "folder_opened" {
		t.Fatalf("open action = %q", opened.Action)
	}

	var remote *control.RemoteError
	if _, err := files.Properties(ctx, "/nope"); !errors.As(err, &remote) {
		t.Fatalf("missing path: err = %v, want *control.RemoteError", err)
	}

	tasks := control.NewTasks(s)
	ended, err := tasks.EndProcess(ctx, 1200)
	if err != nil {
		t.Fatalf("EndProcess: %v", err)
	}
	if ended.Name != "explorer.exe" {
		t.Fatalf("ended = %+v", ended)
	}

	media := control.NewMedia(s, nil)
	if err := media.SetVolume(ctx, 70); err != nil {
		t.Fatal(err)
	}
	info, err := media.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if info.Volume != 70 {
		t.Fatalf("volume = %d, want 70", info.Volume)
	}
}

func TestPusherFollowsLatestSettings(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, client := transport.Pipe()
	tr := transport.New(ctx, server)
	defer tr.Close()

	p := &pusher{
		key:    streamKey{domain: protocol.TypeScreenShare},
		tag:    tagFor(protocol.TypeScreenShare),
		update: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		cur:    settings{fps: 1, quality: 50, resolution: "native"},
	}
	go p.run(ctx, tr, 64)
	defer p.close()

	// Two changes back to back; only the last one may stick.
	p.set(settings{fps: 2, quality: 50, resolution: "native"})
	p.set(settings{fps: 30, quality: 50, resolution: "native"})

	frames := make(chan struct{}, 16)
	go func() {
		for {
			if _, _, err := client.ReadMessage(); err != nil {
				return
			}
			frames <- struct{}{}
		}
	}()

	deadline := time.After(450 * time.Millisecond)
	for n := 0; n < 3; n++ {
		select {
		case <-frames:
		case <-deadline:
			t.Fatalf("got %d frames before the deadline; the 30 fps change was lost", n)
		}
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	h := New(Options{Name: "Den", PairingCode: "123456"})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- h.Serve(ctx, Listen{InsecureAddr: "127.0.0.1:0"}) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Serve = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServeReportsListenError(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer taken.Close()

	h := New(Options{Name: "Den", PairingCode: "123456"})
	err = h.Serve(context.Background(), Listen{InsecureAddr: taken.Addr().String()})
	if err == nil {
		t.Fatal("Serve succeeded on a port already in use")
	}
}
