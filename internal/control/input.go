package control

import (
	"context"

	"github.com/1ureka/nexremote/internal/protocol"
)

// Keyboard sends key events.
type Keyboard struct{ c Conn }

func NewKeyboard(c Conn) *Keyboard { return &Keyboard{c: c} }

// Type sends literal text.
func (k *Keyboard) Type(ctx context.Context, text string) error {
	return k.c.Send(ctx, protocol.Keyboard{Action: "type", Text: text})
}

func (k *Keyboard) Press(ctx context.Context, key string) error {
	return k.c.Send(ctx, protocol.Keyboard{Action: "press", Key: key})
}

func (k *Keyboard) Release(ctx context.Context, key string) error {
	return k.c.Send(ctx, protocol.Keyboard{Action: "release", Key: key})
}

// Hotkey presses keys together, e.g. Hotkey(ctx, "ctrl", "c").
func (k *Keyboard) Hotkey(ctx context.Context, keys ...string) error {
	return k.c.Send(ctx, protocol.Keyboard{Action: "hotkey", Keys: keys})
}

// Gamepad drives the host's virtual controller.
type Gamepad struct{ c Conn }

func NewGamepad(c Conn) *Gamepad { return &Gamepad{c: c} }

func (g *Gamepad) Button(ctx context.Context, button string, pressed bool) error {
	return g.c.Send(ctx, protocol.Gamepad{InputType: "button", Button: button, Pressed: pressed})
}

// Trigger sets an analog trigger ("left"/"right") to value in [0,1].
func (g *Gamepad) Trigger(ctx context.Context, trigger string, value float64) error {
	return g.c.Send(ctx, protocol.Gamepad{InputType: "trigger", Trigger: trigger, Value: clampUnit(value, 0)})
}

// Joystick moves a stick ("left"/"right") to x, y in [-1,1].
func (g *Gamepad) Joystick(ctx context.Context, stick string, x, y float64) error {
	return g.c.Send(ctx, protocol.Gamepad{InputType: "joystick", Stick: stick, X: clampUnit(x, -1), Y: clampUnit(y, -1)})
}

func (g *Gamepad) DPad(ctx context.Context, direction string, pressed bool) error {
	return g.c.Send(ctx, protocol.Gamepad{InputType: "dpad", Direction: direction, Pressed: pressed})
}

// Gyro forwards device rotation for motion steering.
func (g *Gamepad) Gyro(ctx context.Context, x, y, z float64) error {
	return g.c.Send(ctx, protocol.Gamepad{InputType: "gyro", X: x, Y: y, Z: z})
}

func clampUnit(v, lo float64) float64 {
	return min(max(v, lo), 1)
}

// Sensor forwards raw motion sensor samples.
type Sensor struct{ c Conn }

func NewSensor(c Conn) *Sensor { return &Sensor{c: c} }

// Sample sends one reading; kind is "gyro" or "accelerometer".
func (s *Sensor) Sample(ctx context.Context, kind string, x, y, z float64, timestampMs int64) error {
	return s.c.Send(ctx, protocol.Sensor{Action: kind, X: x, Y: y, Z: z, Timestamp: timestampMs})
}

// Clipboard pushes text to the host clipboard.
type Clipboard struct{ c Conn }

func NewClipboard(c Conn) *Clipboard { return &Clipboard{c: c} }

func (cb *Clipboard) Set(ctx context.Context, text string) error {
	return cb.c.Send(ctx, protocol.Clipboard{Action: "set", Text: text})
}
