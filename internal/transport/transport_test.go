package transport_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/nexremote/internal/transport"
)

func recv(t *testing.T, tr *transport.Transport) transport.Message {
	t.Helper()
	select {
	case m := <-tr.Inbound():
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound message")
		return transport.Message{}
	}
}

// TestTransportOrdering verifies that concurrent senders never interleave
// within a message and that each sender's messages arrive in order.
func TestTransportOrdering(t *testing.T) {
	a, b := transport.Pipe()
	ctx := context.Background()
	left := transport.New(ctx, a)
	right := transport.New(ctx, b)
	defer left.Close()
	defer right.Close()

	const senders, perSender = 4, 50
	var wg sync.WaitGroup
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				msg := []byte(fmt.Sprintf("%d:%d", s, i))
				if err := left.Send(ctx, transport.KindText, msg); err != nil {
					t.Errorf("Send failed: %v", err)
					return
				}
			}
		}(s)
	}

	next := make([]int, senders)
	for n := 0; n < senders*perSender; n++ {
		m := recv(t, right)
		var s, i int
		if _, err := fmt.Sscanf(string(m.Data), "%d:%d", &s, &i); err != nil {
			t.Fatalf("corrupted message %q", m.Data)
		}
		if i != next[s] {
			t.Fatalf("sender %d: got message %d, want %d", s, i, next[s])
		}
		next[s]++
	}
	wg.Wait()
}

// TestTransportKinds verifies text and binary kinds survive the link.
func TestTransportKinds(t *testing.T) {
	a, b := transport.Pipe()
	left := transport.New(context.Background(), a)
	right := transport.New(context.Background(), b)
	defer left.Close()
	defer right.Close()

	_ = left.Send(context.Background(), transport.KindText, []byte(`{"type":"ping"}`))
	_ = left.Send(context.Background(), transport.KindBinary, []byte("SCRN\x00jpeg"))

	if m := recv(t, right); m.Kind != transport.KindText {
		t.Errorf("first message kind = %s, want text", m.Kind)
	}
	if m := recv(t, right); m.Kind != transport.KindBinary || string(m.Data) != "SCRN\x00jpeg" {
		t.Errorf("second message = %s %q", m.Kind, m.Data)
	}
}

// TestTransportClose verifies Close is idempotent, unblocks Done, and
// propagates to the remote end as a link failure.
func TestTransportClose(t *testing.T) {
	a, b := transport.Pipe()
	left := transport.New(context.Background(), a)
	right := transport.New(context.Background(), b)

	left.Close()
	left.Close()

	select {
	case <-left.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after Close")
	}
	if !errors.Is(left.Err(), transport.ErrClosed) {
		t.Errorf("Err = %v, want ErrClosed", left.Err())
	}
	if err := left.Send(context.Background(), transport.KindText, []byte("x")); !errors.Is(err, transport.ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}

	select {
	case <-right.Done():
	case <-time.After(time.Second):
		t.Fatal("remote Done not closed")
	}
	if !transport.RemoteClosed(right.Err()) {
		t.Errorf("remote Err = %v, want a remote close", right.Err())
	}
}

// TestTransportParentCancel verifies the transport follows its parent ctx.
func TestTransportParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a, _ := transport.Pipe()
	tr := transport.New(ctx, a)

	cancel()
	select {
	case <-tr.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after parent cancel")
	}
	if !errors.Is(tr.Err(), context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", tr.Err())
	}
}

// TestWSDialer runs the dialer against an echo server, plain and TLS.
func TestWSDialer(t *testing.T) {
	upgrader := websocket.Upgrader{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != transport.DefaultPath {
			http.NotFound(w, r)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			mt, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if err := ws.WriteMessage(mt, data); err != nil {
				return
			}
		}
	})

	testCases := []struct {
		name   string
		server *httptest.Server
		secure bool
	}{
		{"plain", httptest.NewServer(handler), false},
		{"tls", httptest.NewTLSServer(handler), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			defer tc.server.Close()

			pin := ""
			if tc.secure {
				sum := sha256.Sum256(tc.server.Certificate().Raw)
				pin = hex.EncodeToString(sum[:])
			}
			tlsCfg, err := transport.ClientTLSConfig(false, pin)
			if err != nil {
				t.Fatalf("ClientTLSConfig failed: %v", err)
			}

			d := &transport.WSDialer{
				HandshakeTimeout:  2 * time.Second,
				KeepaliveInterval: 50 * time.Millisecond,
				TLSConfig:         tlsCfg,
			}
			conn, err := d.Dial(context.Background(), endpoint(t, tc.server, tc.secure))
			if err != nil {
				t.Fatalf("Dial failed: %v", err)
			}
			tr := transport.New(context.Background(), conn)
			defer tr.Close()

			_ = tr.Send(context.Background(), transport.KindBinary, []byte("CAMF\x01data"))
			if m := recv(t, tr); m.Kind != transport.KindBinary || string(m.Data) != "CAMF\x01data" {
				t.Errorf("echo = %s %q", m.Kind, m.Data)
			}

			// Outlive several keepalive periods; pongs must keep it alive.
			time.Sleep(200 * time.Millisecond)
			select {
			case <-tr.Done():
				t.Fatalf("transport died during keepalive: %v", tr.Err())
			default:
			}
		})
	}
}

// TestWSDialerPinMismatch verifies a wrong fingerprint aborts the dial.
func TestWSDialerPinMismatch(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()

	tlsCfg, err := transport.ClientTLSConfig(false, strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("ClientTLSConfig failed: %v", err)
	}
	d := &transport.WSDialer{HandshakeTimeout: 2 * time.Second, TLSConfig: tlsCfg}
	if _, err := d.Dial(context.Background(), endpoint(t, srv, true)); err == nil {
		t.Fatal("Dial succeeded with a mismatched pin")
	}
}

func TestClientTLSConfigRejectsBadPin(t *testing.T) {
	for _, pin := range []string{"zz", "abcd", strings.Repeat("a", 63)} {
		if _, err := transport.ClientTLSConfig(false, pin); err == nil {
			t.Errorf("ClientTLSConfig(%q) accepted an invalid pin", pin)
		}
	}
}

func endpoint(t *testing.T, srv *httptest.Server, secure bool) transport.Endpoint {
	t.Helper()
	hostPort := strings.TrimPrefix(strings.TrimPrefix(srv.URL, "https://"), "http://")
	i := strings.LastIndex(hostPort, ":")
	port, err := strconv.Atoi(hostPort[i+1:])
	if err != nil {
		t.Fatalf("bad server URL %s", srv.URL)
	}
	return transport.Endpoint{Host: hostPort[:i], Port: port, Secure: secure}
}
