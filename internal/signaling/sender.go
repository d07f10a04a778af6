package signaling

import (
	"sync"

	"github.com/gorilla/websocket"

	rtc "github.com/1ureka/nexremote/internal/webrtc"
)

// sender serializes outgoing signaling messages to the WebSocket.
type sender struct {
	conn *rtc.Conn
	ws   *websocket.Conn
	mu   sync.Mutex
}

func (s *sender) send(msg message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws.WriteJSON(msg)
}

// sendOffer creates an SDP offer, sets it as local description, and sends it.
func (s *sender) sendOffer() error {
	offer, err := s.conn.CreateOffer()
	if err != nil {
		return err
	}
	if err := s.conn.SetLocalDescription(offer); err != nil {
		return err
	}
	return s.send(message{Type: msgTypeOffer, SDP: offer.SDP})
}

// sendAnswer creates an SDP answer, sets it as local description, and sends it.
func (s *sender) sendAnswer() error {
	answer, err := s.conn.CreateAnswer()
	if err != nil {
		return err
	}
	if err := s.conn.SetLocalDescription(answer); err != nil {
		return err
	}
	return s.send(message{Type: msgTypeAnswer, SDP: answer.SDP})
}

func (s *sender) sendCandidate(candidate string) error {
	return s.send(message{Type: msgTypeCandidate, Candidate: candidate})
}
