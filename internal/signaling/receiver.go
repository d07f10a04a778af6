package signaling

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	rtc "github.com/1ureka/nexremote/internal/webrtc"
)

// receiver applies the remote side's SDP and ICE candidates.
type receiver struct {
	conn   *rtc.Conn
	ws     *websocket.Conn
	sender *sender
}

// watch runs until the WebSocket fails or is closed after the DataChannel
// opens.
func (r *receiver) watch() error {
	for {
		var msg message
		if err := r.ws.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read signaling message: %w", err)
		}

		switch msg.Type {
		case msgTypeOffer:
			if err := r.conn.SetRemoteDescription(webrtc.SessionDescription{
				Type: webrtc.SDPTypeOffer, SDP: msg.SDP,
			}); err != nil {
				return err
			}
			if err := r.sender.sendAnswer(); err != nil {
				return err
			}

		case msgTypeAnswer:
			if err := r.conn.SetRemoteDescription(webrtc.SessionDescription{
				Type: webrtc.SDPTypeAnswer, SDP: msg.SDP,
			}); err != nil {
				return err
			}

		case msgTypeCandidate:
			var init webrtc.ICECandidateInit
			if err := json.Unmarshal([]byte(msg.Candidate), &init); err != nil {
				return fmt.Errorf("parse ICE candidate: %w", err)
			}
			if err := r.conn.AddICECandidate(init); err != nil {
				return err
			}
		}
	}
}
