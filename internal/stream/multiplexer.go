package stream

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/1ureka/nexremote/internal/control"
	"github.com/1ureka/nexremote/internal/protocol"
	"github.com/1ureka/nexremote/internal/util"
)

var (
	ErrUnknownIndex = errors.New("stream index not in registry")
	ErrNotActive    = errors.New("stream not active")
)

// Stats is the observable state of one active stream.
type Stats struct {
	Index      int
	Settings   Settings
	FPS        float64
	Delivered  int64
	Superseded int64
}

type activeStream struct {
	settings Settings
	feed     *Feed
	rate     rate
}

// Multiplexer owns the registry, the active set and the feeds of one media
// class. Frames and pushes are fed to it by a Router; commands go out
// through conn.
type Multiplexer struct {
	class   Class
	conn    control.Conn
	intents *control.IntentTracker
	now     func() time.Time

	mu       sync.Mutex
	registry []Descriptor
	active   map[int]*activeStream
}

// NewMultiplexer returns a Multiplexer for class. A nil intents gets a
// private tracker.
func NewMultiplexer(class Class, conn control.Conn, intents *control.IntentTracker) *Multiplexer {
	if intents == nil {
		intents = control.NewIntentTracker(0, nil)
	}
	return &Multiplexer{
		class:   class,
		conn:    conn,
		intents: intents,
		now:     time.Now,
		active:  make(map[int]*activeStream),
	}
}

func (m *Multiplexer) Class() Class { return m.class }

// Descriptors returns a copy of the registry.
func (m *Multiplexer) Descriptors() []Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.registry)
}

// Descriptor looks up one registry entry.
func (m *Multiplexer) Descriptor(index int) (Descriptor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookupLocked(index)
}

func (m *Multiplexer) lookupLocked(index int) (Descriptor, bool) {
	for _, d := range m.registry {
		if d.Index == index {
			return d, true
		}
	}
	return Descriptor{}, false
}

// RequestList asks the host for its sources and replaces the registry with
// the answer.
func (m *Multiplexer) RequestList(ctx context.Context) ([]Descriptor, error) {
	cmd := protocol.StreamCommand{Domain: m.class.Domain, Action: m.class.ListAction}
	reply, err := control.Request(ctx, m.conn, cmd, func(msg protocol.Message) bool {
		_, ok := m.listReply(msg)
		return ok
	})
	if err != nil {
		return nil, fmt.Errorf("list %ss: %w", m.class.Name, err)
	}
	descs, _ := m.listReply(reply)
	m.setRegistry(descs)
	return slices.Clone(descs), nil
}

func (m *Multiplexer) listReply(msg protocol.Message) ([]Descriptor, bool) {
	if !m.isOwnList(msg) {
		return nil, false
	}
	return descriptorsOf(msg)
}

func (m *Multiplexer) isOwnList(msg protocol.Message) bool {
	switch msg.(type) {
	case protocol.DisplayList:
		return m.class.Domain == protocol.TypeScreenShare
	case protocol.CameraList:
		return m.class.Domain == protocol.TypeCamera
	}
	return false
}

// setRegistry replaces the registry wholesale. Active streams whose index
// vanished are stopped locally.
func (m *Multiplexer) setRegistry(descs []Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.registry = slices.Clone(descs)
	for idx := range m.active {
		if _, ok := m.lookupLocked(idx); !ok {
			util.LogWarning("%s %d disappeared from the host, stopping it", m.class.Name, idx)
			m.deactivateLocked(idx)
		}
	}
}

// Start activates indices with one control message. Every index must be in
// the registry. Zero fields of s take DefaultSettings. Already active
// indices take the new settings.
func (m *Multiplexer) Start(ctx context.Context, indices []int, s Settings) error {
	if len(indices) == 0 {
		return nil
	}
	s = s.withDefaults().Clamp()

	m.mu.Lock()
	for _, idx := range indices {
		if _, ok := m.lookupLocked(idx); !ok {
			m.mu.Unlock()
			return fmt.Errorf("%s %d: %w", m.class.Name, idx, ErrUnknownIndex)
		}
	}
	var fresh []int
	for _, idx := range indices {
		if st, ok := m.active[idx]; ok {
			st.settings = s
			continue
		}
		m.active[idx] = &activeStream{settings: s}
		fresh = append(fresh, idx)
	}
	m.mu.Unlock()

	err := m.conn.Send(ctx, protocol.StreamCommand{
		Domain:     m.class.Domain,
		Action:     protocol.ActionStart,
		Indices:    slices.Clone(indices),
		FPS:        s.FPS,
		Quality:    s.Quality,
		Resolution: s.Resolution,
	})
	if err != nil {
		m.mu.Lock()
		for _, idx := range fresh {
			m.deactivateLocked(idx)
		}
		m.mu.Unlock()
		return fmt.Errorf("start %s %v: %w", m.class.Name, indices, err)
	}
	util.LogInfo("%s %v started (%d fps, q%d, %s)", m.class.Name, indices, s.FPS, s.Quality, s.Resolution)
	return nil
}

// Stop deactivates indices, or every active stream when none are given.
// Other streams keep running.
func (m *Multiplexer) Stop(ctx context.Context, indices ...int) error {
	m.mu.Lock()
	if len(indices) == 0 {
		for idx := range m.active {
			m.deactivateLocked(idx)
		}
	} else {
		for _, idx := range indices {
			m.deactivateLocked(idx)
		}
	}
	m.mu.Unlock()

	err := m.conn.Send(ctx, protocol.StreamCommand{
		Domain:  m.class.Domain,
		Action:  protocol.ActionStop,
		Indices: slices.Clone(indices),
	})
	if err != nil {
		return fmt.Errorf("stop %s %v: %w", m.class.Name, indices, err)
	}
	return nil
}

// Reset stops every stream locally without telling the host, for use when
// the session is gone.
func (m *Multiplexer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for idx := range m.active {
		m.deactivateLocked(idx)
	}
	m.registry = nil
}

func (m *Multiplexer) deactivateLocked(idx int) {
	st, ok := m.active[idx]
	if !ok {
		return
	}
	if st.feed != nil {
		st.feed.close()
	}
	delete(m.active, idx)
	m.intents.Forget(m.intentPrefix(idx))
}

// SetFPS changes the frame rate of indices (every active stream when none
// are given). The local settings change at once; the host confirms later
// with a stream_settings push.
func (m *Multiplexer) SetFPS(ctx context.Context, fps int, indices ...int) error {
	return m.adjust(ctx, protocol.ActionSetFPS, indices, func(s *Settings) any {
		s.FPS = fps
		*s = s.Clamp()
		return s.FPS
	})
}

func (m *Multiplexer) SetQuality(ctx context.Context, quality int, indices ...int) error {
	return m.adjust(ctx, protocol.ActionSetQuality, indices, func(s *Settings) any {
		s.Quality = quality
		*s = s.Clamp()
		return s.Quality
	})
}

func (m *Multiplexer) SetResolution(ctx context.Context, resolution string, indices ...int) error {
	return m.adjust(ctx, protocol.ActionSetResolution, indices, func(s *Settings) any {
		s.Resolution = resolution
		*s = s.Clamp()
		return s.Resolution
	})
}

func (m *Multiplexer) adjust(ctx context.Context, action string, indices []int, apply func(*Settings) any) error {
	m.mu.Lock()
	targets := indices
	if len(targets) == 0 {
		for idx := range m.active {
			targets = append(targets, idx)
		}
		slices.Sort(targets)
	}
	if len(targets) == 0 {
		m.mu.Unlock()
		return fmt.Errorf("%s %s: %w", m.class.Name, action, ErrNotActive)
	}

	// All or nothing: an unknown index leaves every stream untouched.
	for _, idx := range targets {
		if _, ok := m.active[idx]; !ok {
			m.mu.Unlock()
			return fmt.Errorf("%s %d: %w", m.class.Name, idx, ErrNotActive)
		}
	}

	var sample Settings
	for _, idx := range targets {
		st := m.active[idx]
		v := apply(&st.settings)
		m.intents.Expect(m.intentKey(idx, action), v)
		sample = st.settings
	}
	m.mu.Unlock()

	cmd := protocol.StreamCommand{Domain: m.class.Domain, Action: action, Indices: slices.Clone(indices)}
	switch action {
	case protocol.ActionSetFPS:
		cmd.FPS = sample.FPS
	case protocol.ActionSetQuality:
		cmd.Quality = sample.Quality
	case protocol.ActionSetResolution:
		cmd.Resolution = sample.Resolution
	}
	return m.conn.Send(ctx, cmd)
}

func (m *Multiplexer) intentPrefix(idx int) string {
	return fmt.Sprintf("%s/%d/", m.class.Domain, idx)
}

func (m *Multiplexer) intentKey(idx int, action string) string {
	return m.intentPrefix(idx) + action
}

// applyPush merges a host stream_settings push. Each field is taken unless
// a pending local intent for it disagrees.
func (m *Multiplexer) applyPush(u protocol.StreamSettingsUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.active[u.Index]
	if !ok {
		return
	}
	if u.FPS != 0 && m.intents.Reconcile(m.intentKey(u.Index, protocol.ActionSetFPS), u.FPS) {
		st.settings.FPS = u.FPS
	}
	if u.Quality != 0 && m.intents.Reconcile(m.intentKey(u.Index, protocol.ActionSetQuality), u.Quality) {
		st.settings.Quality = u.Quality
	}
	if u.Resolution != "" && m.intents.Reconcile(m.intentKey(u.Index, protocol.ActionSetResolution), u.Resolution) {
		st.settings.Resolution = u.Resolution
	}
}

// Settings returns the local settings of an active stream.
func (m *Multiplexer) Settings(index int) (Settings, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.active[index]
	if !ok {
		return Settings{}, false
	}
	return st.settings, true
}

// Active returns the active indices in ascending order.
func (m *Multiplexer) Active() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, 0, len(m.active))
	for idx := range m.active {
		out = append(out, idx)
	}
	slices.Sort(out)
	return out
}

// Feed returns the feed of an active stream, creating it on first use.
func (m *Multiplexer) Feed(index int) (*Feed, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.active[index]
	if !ok {
		return nil, false
	}
	if st.feed == nil {
		st.feed = newFeed(index)
	}
	return st.feed, true
}

// Stats reports the state of one active stream.
func (m *Multiplexer) Stats(index int) (Stats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.active[index]
	if !ok {
		return Stats{}, false
	}
	out := Stats{Index: index, Settings: st.settings, FPS: st.rate.fps()}
	if st.feed != nil {
		out.Delivered = st.feed.Delivered()
		out.Superseded = st.feed.Superseded()
	}
	return out, true
}

// handleFrame delivers a frame to its index's feed. Frames for inactive
// indices are dropped.
func (m *Multiplexer) handleFrame(index int, payload []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.active[index]
	if !ok {
		util.Stats.AddDropped()
		return false
	}
	now := m.now()
	st.rate.observe(now)
	if st.feed == nil {
		st.feed = newFeed(index)
	}
	if st.feed.put(Frame{Index: index, Payload: payload, Received: now}) {
		util.Stats.AddDropped()
	}
	util.Stats.AddFrame()
	return true
}
