package control

import (
	"context"
	"sync"

	"github.com/1ureka/nexremote/internal/protocol"
)

const (
	intentVolume  = "media/volume"
	intentPlaying = "media/playing"
)

// Media controls host playback. It keeps a local copy of the last media
// state, updated optimistically by commands and reconciled with media_info
// pushes through an IntentTracker.
type Media struct {
	c       Conn
	intents *IntentTracker

	mu   sync.Mutex
	info protocol.MediaInfo
}

func NewMedia(c Conn, intents *IntentTracker) *Media {
	if intents == nil {
		intents = NewIntentTracker(0, nil)
	}
	return &Media{c: c, intents: intents}
}

// Info returns the local media state.
func (m *Media) Info() protocol.MediaInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info
}

func (m *Media) Play(ctx context.Context) error  { return m.setPlaying(ctx, "play", true) }
func (m *Media) Pause(ctx context.Context) error { return m.setPlaying(ctx, "pause", false) }
func (m *Media) Stop(ctx context.Context) error  { return m.setPlaying(ctx, "stop", false) }

func (m *Media) setPlaying(ctx context.Context, action string, playing bool) error {
	m.mu.Lock()
	m.info.IsPlaying = playing
	m.intents.Expect(intentPlaying, playing)
	m.mu.Unlock()
	return m.c.Send(ctx, protocol.MediaControl{Action: action})
}

func (m *Media) Next(ctx context.Context) error {
	return m.c.Send(ctx, protocol.MediaControl{Action: "next"})
}

func (m *Media) Previous(ctx context.Context) error {
	return m.c.Send(ctx, protocol.MediaControl{Action: "previous"})
}

func (m *Media) MuteToggle(ctx context.Context) error {
	return m.c.Send(ctx, protocol.MediaControl{Action: "mute_toggle"})
}

// SetVolume sets the volume (0..100) optimistically.
func (m *Media) SetVolume(ctx context.Context, volume int) error {
	volume = min(max(volume, 0), 100)
	m.mu.Lock()
	m.info.Volume = volume
	m.intents.Expect(intentVolume, volume)
	m.mu.Unlock()
	return m.c.Send(ctx, protocol.MediaControl{Action: "volume", Value: volume})
}

// Seek moves playback to position seconds.
func (m *Media) Seek(ctx context.Context, position float64) error {
	return m.c.Send(ctx, protocol.MediaControl{Action: "seek", Position: position})
}

// Refresh asks for media_info and applies it.
func (m *Media) Refresh(ctx context.Context) (protocol.MediaInfo, error) {
	info, err := requestAs[protocol.MediaInfo](ctx, m.c, protocol.MediaControl{Action: "get_info"}, nil)
	if err != nil {
		return protocol.MediaInfo{}, err
	}
	m.Apply(info)
	return m.Info(), nil
}

// Apply merges a media_info push. Fields with a pending, contradicting
// local intent keep their local value.
func (m *Media) Apply(info protocol.MediaInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	volume, playing := m.info.Volume, m.info.IsPlaying
	if m.intents.Reconcile(intentVolume, info.Volume) {
		volume = info.Volume
	}
	if m.intents.Reconcile(intentPlaying, info.IsPlaying) {
		playing = info.IsPlaying
	}
	m.info = info
	m.info.Volume = volume
	m.info.IsPlaying = playing
}

// Watch applies media_info pushes until ctx is done.
func (m *Media) Watch(ctx context.Context) {
	events, cancel := m.c.SubscribeControl()
	defer cancel()
	for {
		select {
		case msg, ok := <-events:
			if !ok {
				return
			}
			if info, isInfo := msg.(protocol.MediaInfo); isInfo {
				m.Apply(info)
			}
		case <-ctx.Done():
			return
		}
	}
}
