package stream

import (
	"sync"
	"sync/atomic"
	"time"
)

// Frame is one image delivered to a consumer.
type Frame struct {
	Index    int
	Payload  []byte
	Received time.Time
}

// Feed holds the latest undelivered frame of one stream. A new frame
// replaces a pending one, so a slow consumer only ever sees the freshest
// image and nothing queues behind it.
type Feed struct {
	index int
	slot  chan Frame
	done  chan struct{}
	once  sync.Once

	delivered  atomic.Int64
	superseded atomic.Int64
}

func newFeed(index int) *Feed {
	return &Feed{
		index: index,
		slot:  make(chan Frame, 1),
		done:  make(chan struct{}),
	}
}

func (f *Feed) Index() int { return f.index }

// Frames yields frames as they arrive. It is never closed; select on Done
// to learn that the stream stopped.
func (f *Feed) Frames() <-chan Frame { return f.slot }

// Done is closed when the stream is stopped or the session resets.
func (f *Feed) Done() <-chan struct{} { return f.done }

// Delivered counts frames put into the feed.
func (f *Feed) Delivered() int64 { return f.delivered.Load() }

// Superseded counts frames replaced before a consumer took them.
func (f *Feed) Superseded() int64 { return f.superseded.Load() }

// put stores fr, evicting a pending frame. Callers serialize put.
func (f *Feed) put(fr Frame) (evicted bool) {
	f.delivered.Add(1)
	select {
	case f.slot <- fr:
		return false
	default:
	}

	select {
	case <-f.slot:
		evicted = true
		f.superseded.Add(1)
	default:
	}
	select {
	case f.slot <- fr:
	default:
		// The consumer cannot refill the slot, so this only happens if put
		// is called concurrently.
		f.superseded.Add(1)
	}
	return evicted
}

func (f *Feed) close() { f.once.Do(func() { close(f.done) }) }
