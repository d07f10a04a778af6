package host

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/1ureka/nexremote/internal/protocol"
	"github.com/1ureka/nexremote/internal/transport"
	"github.com/1ureka/nexremote/internal/util"
)

type streamKey struct {
	domain string
	index  int
}

type settings struct {
	fps        int
	quality    int
	resolution string
}

func clampSettings(s settings) settings {
	s.fps = min(max(s.fps, 1), 60)
	s.quality = min(max(s.quality, 1), 100)
	switch s.resolution {
	case "native", "1080p", "720p", "480p":
	default:
		s.resolution = "native"
	}
	return s
}

// pusher streams synthetic frames for one index at its configured rate.
type pusher struct {
	key    streamKey
	tag    [4]byte
	update chan struct{} // wakes run; the value is always read from cur
	stop   chan struct{}
	once   sync.Once

	mu  sync.Mutex
	cur settings
}

func (p *pusher) settings() settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cur
}

func (p *pusher) set(s settings) {
	p.mu.Lock()
	p.cur = s
	p.mu.Unlock()
	select {
	case p.update <- struct{}{}:
	default:
	}
}

func (p *pusher) close() { p.once.Do(func() { close(p.stop) }) }

func (p *pusher) run(ctx context.Context, tr *transport.Transport, size int) {
	s := p.settings()
	ticker := time.NewTicker(time.Second / time.Duration(s.fps))
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ticker.C:
			seq++
			frame := protocol.EncodeFrame(protocol.Frame{
				Tag:     p.tag,
				Index:   uint8(p.key.index),
				Payload: syntheticImage(seq, size, p.settings().quality),
			})
			if err := tr.Send(ctx, transport.KindBinary, frame); err != nil {
				return
			}
		case <-p.update:
			ticker.Reset(time.Second / time.Duration(p.settings().fps))
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// syntheticImage is a JPEG-looking payload whose size follows quality.
func syntheticImage(seq uint64, size, quality int) []byte {
	n := max(size*quality/100, 16)
	buf := make([]byte, n)
	buf[0], buf[1] = 0xFF, 0xD8
	binary.BigEndian.PutUint64(buf[2:10], seq)
	buf[n-2], buf[n-1] = 0xFF, 0xD9
	return buf
}

func tagFor(domain string) [4]byte {
	if domain == protocol.TypeCamera {
		return protocol.TagCamera
	}
	return protocol.TagScreen
}

func (c *client) validIndex(domain string, index int) bool {
	if domain == protocol.TypeCamera {
		for _, cam := range c.host.opts.Cameras {
			if cam.Index == index {
				return true
			}
		}
		return false
	}
	for _, d := range c.host.opts.Displays {
		if d.Index == index {
			return true
		}
	}
	return false
}

func (c *client) handleStream(ctx context.Context, m protocol.StreamCommand) {
	switch m.Action {
	case protocol.ActionListDisplays:
		c.reply(ctx, protocol.DisplayList{Displays: c.host.opts.Displays})
	case protocol.ActionListCameras:
		c.reply(ctx, protocol.CameraList{Cameras: c.host.opts.Cameras})

	case protocol.ActionStart:
		s := clampSettings(settings{fps: m.FPS, quality: m.Quality, resolution: m.Resolution})
		if m.FPS == 0 {
			s.fps = 30
		}
		if m.Quality == 0 {
			s.quality = 50
		}
		for _, idx := range indicesOf(m) {
			if !c.validIndex(m.Domain, idx) {
				c.reply(ctx, protocol.ErrorReply{Domain: m.Domain, Message: fmt.Sprintf("Invalid index %d", idx)})
				continue
			}
			c.startPusher(ctx, streamKey{m.Domain, idx}, s)
		}

	case protocol.ActionStop:
		c.stopPushers(m.Domain, indicesOf(m))

	case protocol.ActionSetFPS, protocol.ActionSetQuality, protocol.ActionSetResolution:
		for _, p := range c.targets(m) {
			s := p.settings()
			switch m.Action {
			case protocol.ActionSetFPS:
				s.fps = m.FPS
			case protocol.ActionSetQuality:
				s.quality = m.Quality
			case protocol.ActionSetResolution:
				s.resolution = m.Resolution
			}
			s = clampSettings(s)
			p.set(s)
			c.reply(ctx, protocol.StreamSettingsUpdate{
				Domain:     p.key.domain,
				Index:      p.key.index,
				FPS:        s.fps,
				Quality:    s.quality,
				Resolution: s.resolution,
			})
		}

	case protocol.ActionRequestFrame:
		for _, idx := range indicesOf(m) {
			if !c.validIndex(m.Domain, idx) {
				continue
			}
			frame := protocol.EncodeFrame(protocol.Frame{
				Tag:     tagFor(m.Domain),
				Index:   uint8(idx),
				Payload: syntheticImage(0, c.host.opts.FrameSize, 50),
			})
			_ = c.tr.Send(ctx, transport.KindBinary, frame)
		}

	default:
		c.reply(ctx, protocol.ErrorReply{Domain: m.Domain, Message: "Unknown action: " + m.Action})
	}
}

// indicesOf merges the list and single-index forms of a command.
func indicesOf(m protocol.StreamCommand) []int {
	out := append([]int(nil), m.Indices...)
	if m.Index != nil {
		out = append(out, *m.Index)
	}
	return out
}

func (c *client) startPusher(ctx context.Context, key streamKey, s settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pushers == nil {
		c.pushers = make(map[streamKey]*pusher)
	}
	if p, ok := c.pushers[key]; ok {
		p.set(s)
		return
	}

	p := &pusher{
		key:    key,
		tag:    tagFor(key.domain),
		update: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		cur:    s,
	}
	c.pushers[key] = p
	go p.run(ctx, c.tr, c.host.opts.FrameSize)
	util.LogInfo("%s %d streaming at %d fps", key.domain, key.index, s.fps)
}

// stopPushers stops the given indices of domain, or all of them when
// indices is empty.
func (c *client) stopPushers(domain string, indices []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, p := range c.pushers {
		if key.domain != domain {
			continue
		}
		if len(indices) > 0 && !slices.Contains(indices, key.index) {
			continue
		}
		p.close()
		delete(c.pushers, key)
		util.LogInfo("%s %d stopped", key.domain, key.index)
	}
}

// targets returns the running pushers addressed by a set_* command: the
// named index, or every stream of the domain.
func (c *client) targets(m protocol.StreamCommand) []*pusher {
	c.mu.Lock()
	defer c.mu.Unlock()
	want := indicesOf(m)
	var out []*pusher
	for key, p := range c.pushers {
		if key.domain == m.Domain && (len(want) == 0 || slices.Contains(want, key.index)) {
			out = append(out, p)
		}
	}
	return out
}

func (c *client) stopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, p := range c.pushers {
		p.close()
		delete(c.pushers, key)
	}
}
