//go:build darwin

package input

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices
#include <CoreGraphics/CoreGraphics.h>
#include <ApplicationServices/ApplicationServices.h>
#include <stdbool.h>

static bool pointerTrusted() {
    return AXIsProcessTrusted();
}

static void postMouse(CGEventType type, double x, double y, CGMouseButton button) {
    CGEventRef event = CGEventCreateMouseEvent(NULL, type, CGPointMake(x, y), button);
    CGEventPost(kCGHIDEventTap, event);
    CFRelease(event);
}

static bool onDisplay(double x, double y) {
    uint32_t count = 0;
    CGDirectDisplayID id;
    CGGetDisplaysWithPoint(CGPointMake(x, y), 1, &id, &count);
    return count > 0;
}
*/
import "C"
import (
	"errors"
	"fmt"
	"sync"
)

// NativePointer drives the macOS cursor through CGEventPost. Moves made
// while a button is held are posted as drags so applications see them.
type NativePointer struct {
	mu      sync.Mutex
	x, y    int
	held    Button
	checked bool
}

// NewPointer creates a new macOS pointer
func NewPointer() *NativePointer {
	return &NativePointer{}
}

func (p *NativePointer) ensureTrusted() error {
	if p.checked {
		return nil
	}
	if !bool(C.pointerTrusted()) {
		return errors.New("accessibility permission required for pointer control")
	}
	p.checked = true
	return nil
}

// MoveTo sets the absolute cursor position
func (p *NativePointer) MoveTo(x, y int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureTrusted(); err != nil {
		return err
	}
	if !bool(C.onDisplay(C.double(x), C.double(y))) {
		return fmt.Errorf("position (%d,%d) is not on any display", x, y)
	}

	eventType := C.CGEventType(C.kCGEventMouseMoved)
	button := C.CGMouseButton(C.kCGMouseButtonLeft)
	switch p.held {
	case ButtonLeft:
		eventType = C.kCGEventLeftMouseDragged
	case ButtonRight:
		eventType = C.kCGEventRightMouseDragged
		button = C.kCGMouseButtonRight
	case ButtonMiddle:
		eventType = C.kCGEventOtherMouseDragged
		button = C.kCGMouseButtonCenter
	}
	C.postMouse(eventType, C.double(x), C.double(y), button)
	p.x, p.y = x, y
	return nil
}

// Press presses a button at the last position
func (p *NativePointer) Press(b Button) error {
	return p.button(b, true)
}

// Release releases a button at the last position
func (p *NativePointer) Release(b Button) error {
	return p.button(b, false)
}

func (p *NativePointer) button(b Button, pressed bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureTrusted(); err != nil {
		return err
	}

	var eventType C.CGEventType
	var cgButton C.CGMouseButton
	switch b {
	case ButtonRight:
		cgButton = C.kCGMouseButtonRight
		eventType = C.kCGEventRightMouseUp
		if pressed {
			eventType = C.kCGEventRightMouseDown
		}
	case ButtonMiddle:
		cgButton = C.kCGMouseButtonCenter
		eventType = C.kCGEventOtherMouseUp
		if pressed {
			eventType = C.kCGEventOtherMouseDown
		}
	default:
		cgButton = C.kCGMouseButtonLeft
		eventType = C.kCGEventLeftMouseUp
		if pressed {
			eventType = C.kCGEventLeftMouseDown
		}
	}

	C.postMouse(eventType, C.double(p.x), C.double(p.y), cgButton)
	if pressed {
		p.held = b
	} else if p.held == b {
		p.held = ""
	}
	return nil
}
