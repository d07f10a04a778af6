// Package input turns touch gestures on a rendered display image into host
// mouse commands.
package input

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/1ureka/nexremote/internal/protocol"
	"github.com/1ureka/nexremote/internal/stream"
)

var (
	// ErrEmptySurface is returned, and nothing is sent, when the rendered
	// surface has no measured size.
	ErrEmptySurface = errors.New("surface has zero size")
	ErrUnknownIndex = errors.New("display index not in registry")
	ErrNoDrag       = errors.New("no drag in progress")
)

// DefaultScrollStep is the drag distance, in surface pixels, of one wheel
// notch.
const DefaultScrollStep = 20.0

// Sender is the part of a session the mapper writes to.
type Sender interface {
	Send(ctx context.Context, msg protocol.Message) error
}

// Registry resolves display indices to their descriptors;
// *stream.Multiplexer satisfies it.
type Registry interface {
	Descriptor(index int) (stream.Descriptor, bool)
}

// Surface is the measured size of the rendered image.
type Surface struct {
	Width  float64
	Height float64
}

func (s Surface) empty() bool { return s.Width <= 0 || s.Height <= 0 }

// Touch is a gesture position in surface pixels on the image of display
// Index.
type Touch struct {
	Index   int
	Surface Surface
	X, Y    float64
}

type Mapper struct {
	conn       Sender
	displays   Registry
	ScrollStep float64

	mu        sync.Mutex
	dragIndex int
	dragging  bool
	scrollRem [2]float64
	moveRem   [2]float64
}

func NewMapper(conn Sender, displays Registry) *Mapper {
	return &Mapper{conn: conn, displays: displays, ScrollStep: DefaultScrollStep}
}

// ToAbsolute converts fractional coordinates on display index to host
// pixels. Fractions are clamped to [0,1].
func (m *Mapper) ToAbsolute(index int, relX, relY float64) (x, y int, err error) {
	d, ok := m.displays.Descriptor(index)
	if !ok {
		return 0, 0, fmt.Errorf("display %d: %w", index, ErrUnknownIndex)
	}
	relX = min(max(relX, 0), 1)
	relY = min(max(relY, 0), 1)
	return int(math.Round(relX * float64(d.Width))), int(math.Round(relY * float64(d.Height))), nil
}

func (m *Mapper) locate(t Touch) (x, y int, err error) {
	if t.Surface.empty() {
		return 0, 0, ErrEmptySurface
	}
	return m.ToAbsolute(t.Index, t.X/t.Surface.Width, t.Y/t.Surface.Height)
}

func (m *Mapper) pointer(ctx context.Context, t Touch, action, button string, count int) error {
	x, y, err := m.locate(t)
	if err != nil {
		return err
	}
	return m.conn.Send(ctx, protocol.Mouse{
		Action:       action,
		Button:       button,
		Count:        count,
		X:            &x,
		Y:            &y,
		DisplayIndex: t.Index,
	})
}

// Tap is a left click.
func (m *Mapper) Tap(ctx context.Context, t Touch) error {
	return m.pointer(ctx, t, "click", "left", 1)
}

// DoubleTap is a left double click.
func (m *Mapper) DoubleTap(ctx context.Context, t Touch) error {
	return m.pointer(ctx, t, "click", "left", 2)
}

// LongPress is a right click.
func (m *Mapper) LongPress(ctx context.Context, t Touch) error {
	return m.pointer(ctx, t, "click", "right", 1)
}

// PanStart presses the left button at t and begins a drag on t.Index. A drag
// still open from an earlier PanStart is released first.
func (m *Mapper) PanStart(ctx context.Context, t Touch) error {
	x, y, err := m.locate(t)
	if err != nil {
		return err
	}

	m.mu.Lock()
	prev, held := m.dragIndex, m.dragging
	m.dragging = false
	m.mu.Unlock()

	if held {
		if err := m.conn.Send(ctx, protocol.Mouse{Action: "release", Button: "left", DisplayIndex: prev}); err != nil {
			return err
		}
	}
	if err := m.conn.Send(ctx, protocol.Mouse{Action: "press", Button: "left", X: &x, Y: &y, DisplayIndex: t.Index}); err != nil {
		return err
	}

	m.mu.Lock()
	m.dragging = true
	m.dragIndex = t.Index
	m.mu.Unlock()
	return nil
}

// PanUpdate moves the pointer while the button is held.
func (m *Mapper) PanUpdate(ctx context.Context, t Touch) error {
	if !m.dragOn(t.Index) {
		return ErrNoDrag
	}
	return m.pointer(ctx, t, "move", "", 0)
}

// PanEnd releases the button at t.
func (m *Mapper) PanEnd(ctx context.Context, t Touch) error {
	m.mu.Lock()
	if !m.dragging || m.dragIndex != t.Index {
		m.mu.Unlock()
		return ErrNoDrag
	}
	m.dragging = false
	m.mu.Unlock()

	if t.Surface.empty() {
		// Still release, at the host's current pointer position.
		return m.conn.Send(ctx, protocol.Mouse{Action: "release", Button: "left", DisplayIndex: t.Index})
	}
	return m.pointer(ctx, t, "release", "left", 0)
}

func (m *Mapper) dragOn(index int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dragging && m.dragIndex == index
}

// Scroll converts a two-axis drag on the scroll surface (surface pixels)
// into wheel notches. Fractions of a notch carry over to the next call;
// nothing is sent until a whole notch accumulates.
func (m *Mapper) Scroll(ctx context.Context, index int, surface Surface, dx, dy float64) error {
	if surface.empty() {
		return ErrEmptySurface
	}
	step := m.ScrollStep
	if step <= 0 {
		step = DefaultScrollStep
	}

	m.mu.Lock()
	nx, ny := accumulate(&m.scrollRem, dx/step, dy/step)
	m.mu.Unlock()

	if nx == 0 && ny == 0 {
		return nil
	}
	return m.conn.Send(ctx, protocol.Mouse{Action: "scroll", DX: nx, DY: ny, DisplayIndex: index})
}

// MoveRelative is touchpad mode: the pointer moves by the finger delta
// scaled by sensitivity.
func (m *Mapper) MoveRelative(ctx context.Context, index int, dx, dy, sensitivity float64) error {
	if sensitivity <= 0 {
		sensitivity = 1
	}

	m.mu.Lock()
	nx, ny := accumulate(&m.moveRem, dx*sensitivity, dy*sensitivity)
	m.mu.Unlock()

	if nx == 0 && ny == 0 {
		return nil
	}
	return m.conn.Send(ctx, protocol.Mouse{Action: "move_relative", DX: nx, DY: ny, DisplayIndex: index})
}

// accumulate adds (dx, dy) to rem and takes out the whole part.
func accumulate(rem *[2]float64, dx, dy float64) (int, int) {
	rem[0] += dx
	rem[1] += dy
	nx, ny := math.Trunc(rem[0]), math.Trunc(rem[1])
	rem[0] -= nx
	rem[1] -= ny
	return int(nx), int(ny)
}
