package stream

import (
	"context"
	"fmt"
	"strings"

	"github.com/1ureka/nexremote/internal/protocol"
	"github.com/1ureka/nexremote/internal/util"
)

// Router hands inbound frames and control pushes to the Multiplexer of
// their media class. Its route table is fixed at construction.
type Router struct {
	byTag    map[[4]byte]*Multiplexer
	byDomain map[string]*Multiplexer
	order    []*Multiplexer
}

func NewRouter(muxes ...*Multiplexer) *Router {
	r := &Router{
		byTag:    make(map[[4]byte]*Multiplexer, len(muxes)),
		byDomain: make(map[string]*Multiplexer, len(muxes)),
	}
	for _, m := range muxes {
		r.byTag[m.class.Tag] = m
		r.byDomain[m.class.Domain] = m
		r.order = append(r.order, m)
	}
	return r
}

// HandleFrame routes f by its tag. Unknown tags and inactive indices are
// dropped; the result reports delivery.
func (r *Router) HandleFrame(f protocol.Frame) bool {
	m, ok := r.byTag[f.Tag]
	if !ok {
		util.Stats.AddDropped()
		util.LogDebug("dropping frame with unknown tag %q", f.Tag[:])
		return false
	}
	return m.handleFrame(int(f.Index), f.Payload)
}

// HandleControl applies list replies, settings pushes and stream errors.
// Other messages are ignored.
func (r *Router) HandleControl(msg protocol.Message) {
	switch v := msg.(type) {
	case protocol.DisplayList, protocol.CameraList:
		for _, m := range r.order {
			if descs, ok := m.listReply(v); ok {
				m.setRegistry(descs)
			}
		}
	case protocol.StreamSettingsUpdate:
		if m, ok := r.byDomain[v.Domain]; ok {
			m.applyPush(v)
		}
	case protocol.ErrorReply:
		if m, ok := r.byDomain[v.Domain]; ok {
			util.LogWarning("%s: %s", m.class.Name, v.Message)
		}
	}
}

// Run routes until ctx is done or either channel closes.
func (r *Router) Run(ctx context.Context, frames <-chan protocol.Frame, controls <-chan protocol.Message) {
	for {
		select {
		case f, ok := <-frames:
			if !ok {
				return
			}
			r.HandleFrame(f)
		case msg, ok := <-controls:
			if !ok {
				return
			}
			r.HandleControl(msg)
		case <-ctx.Done():
			return
		}
	}
}

// Reset stops every stream locally; call it when the session disconnects.
func (r *Router) Reset() {
	for _, m := range r.order {
		m.Reset()
	}
}

// Summary renders per-stream frame rates for the stats reporter, e.g.
// "screen0 29.7fps screen2 14.9fps".
func (r *Router) Summary() string {
	var parts []string
	for _, m := range r.order {
		for _, idx := range m.Active() {
			st, ok := m.Stats(idx)
			if !ok {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s%d %.1ffps", m.class.Name, idx, st.FPS))
		}
	}
	return strings.Join(parts, " ")
}
