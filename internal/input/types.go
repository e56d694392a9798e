// Package input provides the recorded mouse event model plus the
// platform hooks that capture global input and the pointer control used
// to play it back.
package input

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnsupportedPlatform is returned by hooks and pointers on platforms
// without a native implementation.
var ErrUnsupportedPlatform = errors.New("input: unsupported platform")

// Kind identifies the variant of an Event
type Kind string

const (
	KindMove Kind = "move"
	KindDown Kind = "down"
	KindUp   Kind = "up"
)

// Button is one of a closed set of mouse buttons
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// buttonNames maps every accepted spelling to a Button. The "Button.*"
// forms are what older recordings stored.
var buttonNames = map[string]Button{
	"left":          ButtonLeft,
	"right":         ButtonRight,
	"middle":        ButtonMiddle,
	"Button.left":   ButtonLeft,
	"Button.right":  ButtonRight,
	"Button.middle": ButtonMiddle,
}

// ParseButton resolves a stored button identifier by exact comparison.
// Unknown values fall back to ButtonLeft and report ok=false.
func ParseButton(s string) (b Button, ok bool) {
	b, ok = buttonNames[s]
	if !ok {
		return ButtonLeft, false
	}
	return b, true
}

// Valid reports whether b belongs to the closed button set
func (b Button) Valid() bool {
	switch b {
	case ButtonLeft, ButtonRight, ButtonMiddle:
		return true
	}
	return false
}

// Event is a single recorded mouse sample. At is the offset from the
// start of the recording.
type Event struct {
	Kind   Kind
	X      int
	Y      int
	Button Button // empty for moves
	At     time.Duration
}

// Move builds a move event
func Move(x, y int, at time.Duration) Event {
	return Event{Kind: KindMove, X: x, Y: y, At: at}
}

// Click builds a press or release event
func Click(x, y int, b Button, pressed bool, at time.Duration) Event {
	k := KindUp
	if pressed {
		k = KindDown
	}
	return Event{Kind: k, X: x, Y: y, Button: b, At: at}
}

// Pressed reports whether the event is a button press
func (e Event) Pressed() bool {
	return e.Kind == KindDown
}

func (e Event) String() string {
	switch e.Kind {
	case KindMove:
		return fmt.Sprintf("move(%d,%d)@%s", e.X, e.Y, e.At)
	default:
		return fmt.Sprintf("%s %s(%d,%d)@%s", e.Kind, e.Button, e.X, e.Y, e.At)
	}
}

// Handler receives raw notifications from a Hook. Calls arrive on the
// hook-owned thread.
type Handler interface {
	OnMove(x, y int)
	OnButton(x, y int, b Button, pressed bool)
	OnKey(name string, pressed bool)
}

// Hook delivers global input notifications to a Handler
type Hook interface {
	Start(h Handler) error
	Stop() error
}

// Pointer sets the cursor position and synthesizes button actions
type Pointer interface {
	MoveTo(x, y int) error
	Press(b Button) error
	Release(b Button) error
}
