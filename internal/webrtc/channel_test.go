package webrtc

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/nexremote/internal/transport"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// forward trickles candidates gathered by one side into the other once both
// descriptions are set.
func forward(cands <-chan webrtc.ICECandidateInit, to *Conn) {
	go func() {
		for c := range cands {
			_ = to.AddICECandidate(c)
		}
	}()
}

func collect(c *Conn) chan webrtc.ICECandidateInit {
	ch := make(chan webrtc.ICECandidateInit, 64)
	c.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			close(ch)
			return
		}
		select {
		case ch <- cand.ToJSON():
		default:
		}
	})
	return ch
}

// linkedConns returns two Conns connected in-process over loopback ICE.
func linkedConns(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	offerer, err := NewConn(nil)
	if err != nil {
		t.Fatalf("NewConn: %v", err)
	}
	answerer, err := NewConn(nil)
	if err != nil {
		t.Fatalf("NewConn: %v", err)
	}
	t.Cleanup(func() {
		offerer.Close()
		answerer.Close()
	})

	offerCands := collect(offerer)
	answerCands := collect(answerer)

	offer, err := offerer.CreateOffer()
	if err != nil {
		t.Fatal(err)
	}
	if err := offerer.SetLocalDescription(offer); err != nil {
		t.Fatal(err)
	}
	if err := answerer.SetRemoteDescription(offer); err != nil {
		t.Fatal(err)
	}
	answer, err := answerer.CreateAnswer()
	if err != nil {
		t.Fatal(err)
	}
	if err := answerer.SetLocalDescription(answer); err != nil {
		t.Fatal(err)
	}
	if err := offerer.SetRemoteDescription(answer); err != nil {
		t.Fatal(err)
	}

	forward(offerCands, answerer)
	forward(answerCands, offerer)

	for _, c := range []*Conn{offerer, answerer} {
		select {
		case <-c.Ready():
		case <-time.After(15 * time.Second):
			t.Fatal("DataChannel did not open")
		}
	}
	return offerer, answerer
}

func readWithin(t *testing.T, c *Conn) (transport.Kind, []byte) {
	t.Helper()
	type result struct {
		kind transport.Kind
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		k, d, err := c.ReadMessage()
		ch <- result{k, d, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			t.Fatalf("ReadMessage: %v", r.err)
		}
		return r.kind, r.data
	case <-time.After(5 * time.Second):
		t.Fatal("timed out reading")
		return 0, nil
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestConnCarriesKinds(t *testing.T) {
	a, b := linkedConns(t)

	tests := []struct {
		kind transport.Kind
		data string
	}{
		{transport.KindText, `{"type":"handshake","key":"k"}`},
		{transport.KindBinary, "SCRN\x00jpeg-bytes"},
		{transport.KindText, `{"type":"ping","timestamp":1}`},
	}
	for _, tt := range tests {
		if err := a.WriteMessage(tt.kind, []byte(tt.data)); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
	}
	for i, tt := range tests {
		kind, data := readWithin(t, b)
		if kind != tt.kind || string(data) != tt.data {
			t.Fatalf("message %d = (%v, %q), want (%v, %q)", i, kind, data, tt.kind, tt.data)
		}
	}
}

func TestConnClose(t *testing.T) {
	a, _ := linkedConns(t)

	if err := a.Close(); err != nil {
		t.Logf("close: %v", err)
	}
	// Idempotent.
	_ = a.Close()

	select {
	case <-a.Done():
	default:
		t.Fatal("Done not closed after Close")
	}
	if err := a.WriteMessage(transport.KindText, []byte("x")); !errors.Is(err, transport.ErrClosed) {
		t.Fatalf("write after close: err = %v, want ErrClosed", err)
	}
	if _, _, err := a.ReadMessage(); !errors.Is(err, io.EOF) {
		t.Fatalf("read after close: err = %v, want EOF", err)
	}
}

func TestWriteBeforeOpenFailsOnClose(t *testing.T) {
	c, err := NewConn(nil)
	if err != nil {
		t.Fatal(err)
	}
	errCh := make(chan error, 1)
	go func() { errCh <- c.WriteMessage(transport.KindText, []byte("early")) }()

	time.Sleep(20 * time.Millisecond)
	c.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, transport.ErrClosed) {
			t.Fatalf("err = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("write blocked past Close")
	}
}
