package session

import (
	"sync"

	"github.com/1ureka/nexremote/internal/util"
)

// hub fans values out to subscriber channels. Publishing never blocks: a
// subscriber whose buffer is full misses the value. Lossy hubs (frames)
// count the miss instead of logging it.
type hub[T any] struct {
	name  string
	size  int
	lossy bool

	mu     sync.Mutex
	subs   map[int]chan T
	next   int
	closed bool
}

func newHub[T any](name string, size int, lossy bool) *hub[T] {
	return &hub[T]{name: name, size: size, lossy: lossy, subs: make(map[int]chan T)}
}

// subscribe registers a new channel. cancel removes and closes it and may be
// called more than once.
func (h *hub[T]) subscribe() (<-chan T, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan T, h.size)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.next
	h.next++
	h.subs[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
}

func (h *hub[T]) publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- v:
		default:
			if h.lossy {
				util.Stats.AddDropped()
			} else {
				util.LogWarning("%s subscriber %d is full, event dropped", h.name, id)
			}
		}
	}
}

func (h *hub[T]) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
