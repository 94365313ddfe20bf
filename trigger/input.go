// Package trigger provides ready-made triggers for machine.StateMachine:
// keyboard, mouse, and gamepad input, per-activation timers, chipmunk physics
// queries, and tengo-scripted predicates.
package trigger

import (
	"fmt"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/milk9111/machina/ecs"
	"github.com/milk9111/machina/machine"
)

type keyMode int

const (
	keyPressed keyMode = iota
	keyJustPressed
	keyJustReleased
)

type keyTrigger struct {
	key  ebiten.Key
	mode keyMode
}

// Pressed fires every tick the key is held.
func Pressed(key ebiten.Key) machine.Trigger {
	return keyTrigger{key: key, mode: keyPressed}
}

// JustPressed fires on the tick the key goes down.
func JustPressed(key ebiten.Key) machine.Trigger {
	return keyTrigger{key: key, mode: keyJustPressed}
}

// JustReleased fires on the tick the key comes up.
func JustReleased(key ebiten.Key) machine.Trigger {
	return keyTrigger{key: key, mode: keyJustReleased}
}

func (t keyTrigger) Init(*ecs.World) {}

func (t keyTrigger) Check(ecs.Entity, *ecs.World) machine.Result {
	var down bool
	switch t.mode {
	case keyJustPressed:
		down = inpututil.IsKeyJustPressed(t.key)
	case keyJustReleased:
		down = inpututil.IsKeyJustReleased(t.key)
	default:
		down = ebiten.IsKeyPressed(t.key)
	}
	if !down {
		return machine.Failure(nil)
	}
	return machine.Success(nil)
}

func (t keyTrigger) Name() string {
	switch t.mode {
	case keyJustPressed:
		return "JustPressed(" + t.key.String() + ")"
	case keyJustReleased:
		return "JustReleased(" + t.key.String() + ")"
	default:
		return "Pressed(" + t.key.String() + ")"
	}
}

type mouseTrigger struct {
	button ebiten.MouseButton
	just   bool
}

// MousePressed fires every tick the mouse button is held. The payload is the
// cursor position.
func MousePressed(button ebiten.MouseButton) machine.Trigger {
	return mouseTrigger{button: button}
}

// MouseJustPressed fires on the tick the mouse button goes down. The payload
// is the cursor position.
func MouseJustPressed(button ebiten.MouseButton) machine.Trigger {
	return mouseTrigger{button: button, just: true}
}

// CursorPosition is the payload of mouse triggers.
type CursorPosition struct {
	X, Y int
}

func (t mouseTrigger) Init(*ecs.World) {}

func (t mouseTrigger) Check(ecs.Entity, *ecs.World) machine.Result {
	var down bool
	if t.just {
		down = inpututil.IsMouseButtonJustPressed(t.button)
	} else {
		down = ebiten.IsMouseButtonPressed(t.button)
	}
	if !down {
		return machine.Failure(nil)
	}
	x, y := ebiten.CursorPosition()
	return machine.Success(CursorPosition{X: x, Y: y})
}

func (t mouseTrigger) Name() string {
	if t.just {
		return fmt.Sprintf("MouseJustPressed(%d)", t.button)
	}
	return fmt.Sprintf("MousePressed(%d)", t.button)
}

type axisTrigger struct {
	negative ebiten.Key
	positive ebiten.Key
}

// Axis maps a key pair to a -1/0/+1 axis, firing with the axis value while it
// is nonzero. Holding both keys cancels out and the trigger fails.
func Axis(negative, positive ebiten.Key) machine.Trigger {
	return axisTrigger{negative: negative, positive: positive}
}

func (t axisTrigger) Init(*ecs.World) {}

func (t axisTrigger) Check(ecs.Entity, *ecs.World) machine.Result {
	value := 0.0
	if ebiten.IsKeyPressed(t.negative) {
		value -= 1
	}
	if ebiten.IsKeyPressed(t.positive) {
		value += 1
	}
	if value == 0 {
		return machine.Failure(0.0)
	}
	return machine.Success(value)
}

func (t axisTrigger) Name() string {
	return "Axis(" + t.negative.String() + ", " + t.positive.String() + ")"
}

type gamepadButtonTrigger struct {
	id     ebiten.GamepadID
	button ebiten.StandardGamepadButton
	just   bool
}

// GamepadPressed fires every tick the standard gamepad button is held.
func GamepadPressed(id ebiten.GamepadID, button ebiten.StandardGamepadButton) machine.Trigger {
	return gamepadButtonTrigger{id: id, button: button}
}

// GamepadJustPressed fires on the tick the standard gamepad button goes down.
func GamepadJustPressed(id ebiten.GamepadID, button ebiten.StandardGamepadButton) machine.Trigger {
	return gamepadButtonTrigger{id: id, button: button, just: true}
}

func (t gamepadButtonTrigger) Init(*ecs.World) {}

func (t gamepadButtonTrigger) Check(ecs.Entity, *ecs.World) machine.Result {
	var down bool
	if t.just {
		down = inpututil.IsStandardGamepadButtonJustPressed(t.id, t.button)
	} else {
		down = ebiten.IsStandardGamepadButtonPressed(t.id, t.button)
	}
	if !down {
		return machine.Failure(nil)
	}
	return machine.Success(nil)
}

func (t gamepadButtonTrigger) Name() string {
	return fmt.Sprintf("GamepadPressed(%d, %d)", t.id, t.button)
}

type gamepadAxisTrigger struct {
	id       ebiten.GamepadID
	axis     ebiten.StandardGamepadAxis
	deadZone float64
}

// GamepadAxis fires with the axis value while it is outside the dead zone.
// The failure payload is the raw value inside the dead zone.
func GamepadAxis(id ebiten.GamepadID, axis ebiten.StandardGamepadAxis, deadZone float64) machine.Trigger {
	return gamepadAxisTrigger{id: id, axis: axis, deadZone: deadZone}
}

func (t gamepadAxisTrigger) Init(*ecs.World) {}

func (t gamepadAxisTrigger) Check(ecs.Entity, *ecs.World) machine.Result {
	value := ebiten.StandardGamepadAxisValue(t.id, t.axis)
	if math.Abs(value) <= t.deadZone {
		return machine.Failure(value)
	}
	return machine.Success(value)
}

func (t gamepadAxisTrigger) Name() string {
	return fmt.Sprintf("GamepadAxis(%d, %d)", t.id, t.axis)
}
