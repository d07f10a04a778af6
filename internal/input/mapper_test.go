package input

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/1ureka/nexremote/internal/protocol"
	"github.com/1ureka/nexremote/internal/stream"
)

type recorder struct {
	sent []protocol.Mouse
	fail error
}

func (r *recorder) Send(_ context.Context, msg protocol.Message) error {
	if r.fail != nil {
		return r.fail
	}
	r.sent = append(r.sent, msg.(protocol.Mouse))
	return nil
}

func pt(v int) *int { return &v }

type registry map[int]stream.Descriptor

func (r registry) Descriptor(index int) (stream.Descriptor, bool) {
	d, ok := r[index]
	return d, ok
}

var displays = registry{
	0: {Index: 0, Width: 1920, Height: 1080, IsPrimary: true},
	2: {Index: 2, Width: 1280, Height: 720},
}

func TestToAbsolute(t *testing.T) {
	m := NewMapper(&recorder{}, displays)
	tests := []struct {
		name       string
		index      int
		relX, relY float64
		x, y       int
	}{
		{"centre", 0, 0.5, 0.5, 960, 540},
		{"origin", 0, 0, 0, 0, 0},
		{"far corner", 0, 1, 1, 1920, 1080},
		{"rounding", 2, 0.3333, 0.6667, 427, 480},
		{"clamped", 2, -0.2, 1.7, 0, 720},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, err := m.ToAbsolute(tt.index, tt.relX, tt.relY)
			if err != nil {
				t.Fatal(err)
			}
			if x != tt.x || y != tt.y {
				t.Fatalf("got (%d,%d), want (%d,%d)", x, y, tt.x, tt.y)
			}
		})
	}
}

func TestToAbsoluteUnknownIndex(t *testing.T) {
	m := NewMapper(&recorder{}, displays)
	if _, _, err := m.ToAbsolute(1, 0.5, 0.5); !errors.Is(err, ErrUnknownIndex) {
		t.Fatalf("err = %v, want ErrUnknownIndex", err)
	}
}

func TestGestureMapping(t *testing.T) {
	surface := Surface{Width: 800, Height: 450}
	centre := Touch{Index: 0, Surface: surface, X: 400, Y: 225}
	ctx := context.Background()

	tests := []struct {
		name    string
		gesture func(*Mapper) error
		want    protocol.Mouse
	}{
		{"tap", func(m *Mapper) error { return m.Tap(ctx, centre) },
			protocol.Mouse{Action: "click", Button: "left", Count: 1, X: pt(960), Y: pt(540)}},
		{"double tap", func(m *Mapper) error { return m.DoubleTap(ctx, centre) },
			protocol.Mouse{Action: "click", Button: "left", Count: 2, X: pt(960), Y: pt(540)}},
		{"long press", func(m *Mapper) error { return m.LongPress(ctx, centre) },
			protocol.Mouse{Action: "click", Button: "right", Count: 1, X: pt(960), Y: pt(540)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			if err := tt.gesture(NewMapper(rec, displays)); err != nil {
				t.Fatal(err)
			}
			if len(rec.sent) != 1 || !reflect.DeepEqual(rec.sent[0], tt.want) {
				t.Fatalf("sent %+v, want %+v", rec.sent, tt.want)
			}
		})
	}
}

func TestPanIsDrag(t *testing.T) {
	rec := &recorder{}
	m := NewMapper(rec, displays)
	ctx := context.Background()
	s := Surface{Width: 640, Height: 360}

	steps := []error{
		m.PanStart(ctx, Touch{Index: 2, Surface: s, X: 0, Y: 0}),
		m.PanUpdate(ctx, Touch{Index: 2, Surface: s, X: 320, Y: 180}),
		m.PanEnd(ctx, Touch{Index: 2, Surface: s, X: 640, Y: 360}),
	}
	for i, err := range steps {
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	want := []protocol.Mouse{
		{Action: "press", Button: "left", X: pt(0), Y: pt(0), DisplayIndex: 2},
		{Action: "move", X: pt(640), Y: pt(360), DisplayIndex: 2},
		{Action: "release", Button: "left", X: pt(1280), Y: pt(720), DisplayIndex: 2},
	}
	if len(rec.sent) != len(want) {
		t.Fatalf("sent %d commands, want %d", len(rec.sent), len(want))
	}
	for i := range want {
		if !reflect.DeepEqual(rec.sent[i], want[i]) {
			t.Errorf("command %d = %+v, want %+v", i, rec.sent[i], want[i])
		}
	}

	if err := m.PanUpdate(ctx, Touch{Index: 2, Surface: s}); !errors.Is(err, ErrNoDrag) {
		t.Fatalf("update after end: err = %v, want ErrNoDrag", err)
	}
}

func TestPanEndOnEmptySurfaceOmitsCoordinates(t *testing.T) {
	rec := &recorder{}
	m := NewMapper(rec, displays)
	ctx := context.Background()

	if err := m.PanStart(ctx, Touch{Index: 0, Surface: Surface{Width: 100, Height: 100}, X: 50, Y: 50}); err != nil {
		t.Fatal(err)
	}
	if err := m.PanEnd(ctx, Touch{Index: 0}); err != nil {
		t.Fatalf("PanEnd: %v", err)
	}

	release := rec.sent[len(rec.sent)-1]
	if release.Action != "release" || release.X != nil || release.Y != nil {
		t.Fatalf("release = %+v, want no coordinates", release)
	}
	data, err := json.Marshal(release)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `"x"`) || strings.Contains(string(data), `"y"`) {
		t.Fatalf("release encodes coordinates: %s", data)
	}
}

func TestPanStartReleasesOpenDrag(t *testing.T) {
	rec := &recorder{}
	m := NewMapper(rec, displays)
	ctx := context.Background()
	s := Surface{Width: 640, Height: 360}

	_ = m.PanStart(ctx, Touch{Index: 2, Surface: s})
	if err := m.PanStart(ctx, Touch{Index: 0, Surface: s, X: 320, Y: 180}); err != nil {
		t.Fatalf("second PanStart: %v", err)
	}

	want := []protocol.Mouse{
		{Action: "press", Button: "left", X: pt(0), Y: pt(0), DisplayIndex: 2},
		{Action: "release", Button: "left", DisplayIndex: 2},
		{Action: "press", Button: "left", X: pt(960), Y: pt(540), DisplayIndex: 0},
	}
	if !reflect.DeepEqual(rec.sent, want) {
		t.Fatalf("sent %+v, want %+v", rec.sent, want)
	}
	if err := m.PanUpdate(ctx, Touch{Index: 2, Surface: s}); !errors.Is(err, ErrNoDrag) {
		t.Fatalf("update on the old display: err = %v, want ErrNoDrag", err)
	}
}

func TestPanStartSendFailureLeavesNoDrag(t *testing.T) {
	rec := &recorder{fail: errors.New("link down")}
	m := NewMapper(rec, displays)
	ctx := context.Background()
	s := Surface{Width: 640, Height: 360}

	if err := m.PanStart(ctx, Touch{Index: 2, Surface: s}); err == nil {
		t.Fatal("PanStart succeeded with a failing link")
	}
	rec.fail = nil
	if err := m.PanUpdate(ctx, Touch{Index: 2, Surface: s}); !errors.Is(err, ErrNoDrag) {
		t.Fatalf("err = %v, want ErrNoDrag", err)
	}
	if err := m.PanEnd(ctx, Touch{Index: 2, Surface: s}); !errors.Is(err, ErrNoDrag) {
		t.Fatalf("err = %v, want ErrNoDrag", err)
	}
	if len(rec.sent) != 0 {
		t.Fatalf("sent %+v after a failed press", rec.sent)
	}
}

func TestEmptySurfaceEmitsNothing(t *testing.T) {
	rec := &recorder{}
	m := NewMapper(rec, displays)
	ctx := context.Background()
	empty := Touch{Index: 0, Surface: Surface{Width: 0, Height: 300}, X: 10, Y: 10}

	for name, err := range map[string]error{
		"tap":        m.Tap(ctx, empty),
		"double tap": m.DoubleTap(ctx, empty),
		"long press": m.LongPress(ctx, empty),
		"pan start":  m.PanStart(ctx, empty),
		"scroll":     m.Scroll(ctx, 0, empty.Surface, 100, 100),
	} {
		if !errors.Is(err, ErrEmptySurface) {
			t.Errorf("%s: err = %v, want ErrEmptySurface", name, err)
		}
	}
	if len(rec.sent) != 0 {
		t.Fatalf("sent %+v for an empty surface", rec.sent)
	}
}

func TestScrollAccumulates(t *testing.T) {
	rec := &recorder{}
	m := NewMapper(rec, displays)
	ctx := context.Background()
	s := Surface{Width: 100, Height: 100}

	_ = m.Scroll(ctx, 0, s, 0, 10) // half a notch
	if len(rec.sent) != 0 {
		t.Fatalf("sent %+v before a full notch", rec.sent)
	}
	_ = m.Scroll(ctx, 0, s, 0, 50) // 3 notches total
	if len(rec.sent) != 1 {
		t.Fatalf("sent %d scrolls, want 1", len(rec.sent))
	}
	if got := rec.sent[0]; got.Action != "scroll" || got.DX != 0 || got.DY != 3 {
		t.Fatalf("scroll = %+v", got)
	}
}

func TestMoveRelative(t *testing.T) {
	rec := &recorder{}
	m := NewMapper(rec, displays)
	ctx := context.Background()

	_ = m.MoveRelative(ctx, 0, 0.4, -0.4, 1)
	_ = m.MoveRelative(ctx, 0, 0.4, -0.4, 1)
	if len(rec.sent) != 0 {
		t.Fatal("sub-pixel motion sent")
	}
	_ = m.MoveRelative(ctx, 0, 5, 2.5, 2)
	if len(rec.sent) != 1 {
		t.Fatalf("sent %d moves, want 1", len(rec.sent))
	}
	// 0.8+10 = 10.8 -> 10, -0.8+5 = 4.2 -> 4
	if got := rec.sent[0]; got.Action != "move_relative" || got.DX != 10 || got.DY != 4 {
		t.Fatalf("move = %+v", got)
	}
}
