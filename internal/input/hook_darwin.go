//go:build darwin

package input

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices
#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdint.h>

CGEventRef hookCallback(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *refcon);

// createTap returns NULL when Accessibility permission is missing.
static inline CFMachPortRef createTap(uintptr_t refcon) {
    CGEventMask mask = CGEventMaskBit(kCGEventMouseMoved) |
        CGEventMaskBit(kCGEventLeftMouseDragged) |
        CGEventMaskBit(kCGEventRightMouseDragged) |
        CGEventMaskBit(kCGEventOtherMouseDragged) |
        CGEventMaskBit(kCGEventLeftMouseDown) | CGEventMaskBit(kCGEventLeftMouseUp) |
        CGEventMaskBit(kCGEventRightMouseDown) | CGEventMaskBit(kCGEventRightMouseUp) |
        CGEventMaskBit(kCGEventOtherMouseDown) | CGEventMaskBit(kCGEventOtherMouseUp) |
        CGEventMaskBit(kCGEventKeyDown) | CGEventMaskBit(kCGEventKeyUp) |
        CGEventMaskBit(kCGEventFlagsChanged);
    return CGEventTapCreate(
        kCGSessionEventTap,
        kCGHeadInsertEventTap,
        kCGEventTapOptionListenOnly,
        mask,
        hookCallback,
        (void*)refcon
    );
}

static inline CFRunLoopRef currentRunLoop() {
    return CFRunLoopGetCurrent();
}

// runTap blocks until the run loop is stopped.
static inline void runTap(CFMachPortRef tap, CFRunLoopRef loop) {
    CFRunLoopSourceRef source = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, tap, 0);
    CFRunLoopAddSource(loop, source, kCFRunLoopCommonModes);
    CGEventTapEnable(tap, true);
    CFRunLoopRun();
    CGEventTapEnable(tap, false);
    CFRelease(source);
    CFRelease(tap);
}

static inline void stopRunLoop(CFRunLoopRef loop) {
    if (loop) {
        CFRunLoopStop(loop);
    }
}
*/
import "C"
import (
	"fmt"
	"log"
	"runtime"
	"runtime/cgo"
	"sync"
	"unsafe"
)

// NativeHook captures global mouse and keyboard input through a
// listen-only CGEventTap.
type NativeHook struct {
	mu      sync.Mutex
	running bool
	handle  cgo.Handle
	loop    C.CFRunLoopRef
	done    chan struct{}
	handler Handler
}

// NewHook creates a new macOS input hook
func NewHook() *NativeHook {
	return &NativeHook{}
}

// Start creates the event tap on a locked OS thread
func (h *NativeHook) Start(handler Handler) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return fmt.Errorf("hook already running")
	}
	h.handler = handler
	h.handle = cgo.NewHandle(h)
	h.done = make(chan struct{})
	created := make(chan error, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(h.done)

		tap := C.createTap(C.uintptr_t(h.handle))
		if tap == 0 {
			created <- fmt.Errorf("failed to create CGEventTap, accessibility permissions missing?")
			return
		}
		h.loop = C.currentRunLoop()
		created <- nil
		log.Println("Input Hook: macOS CGEventTap started")
		C.runTap(tap, h.loop)
	}()

	if err := <-created; err != nil {
		h.handle.Delete()
		return err
	}
	h.running = true
	return nil
}

// Stop ends the tap run loop
func (h *NativeHook) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	h.mu.Unlock()

	C.stopRunLoop(h.loop)
	<-h.done
	h.handle.Delete()
	return nil
}

//export hookCallback
func hookCallback(proxy C.CGEventTapProxy, eventType C.CGEventType, event C.CGEventRef, refcon unsafe.Pointer) C.CGEventRef {
	h := cgo.Handle(uintptr(refcon)).Value().(*NativeHook)
	if h.handler == nil {
		return event
	}

	loc := C.CGEventGetLocation(event)
	x, y := int(loc.x), int(loc.y)

	switch eventType {
	case C.kCGEventMouseMoved, C.kCGEventLeftMouseDragged, C.kCGEventRightMouseDragged, C.kCGEventOtherMouseDragged:
		h.handler.OnMove(x, y)
	case C.kCGEventLeftMouseDown:
		h.handler.OnButton(x, y, ButtonLeft, true)
	case C.kCGEventLeftMouseUp:
		h.handler.OnButton(x, y, ButtonLeft, false)
	case C.kCGEventRightMouseDown:
		h.handler.OnButton(x, y, ButtonRight, true)
	case C.kCGEventRightMouseUp:
		h.handler.OnButton(x, y, ButtonRight, false)
	case C.kCGEventOtherMouseDown:
		h.handler.OnButton(x, y, ButtonMiddle, true)
	case C.kCGEventOtherMouseUp:
		h.handler.OnButton(x, y, ButtonMiddle, false)
	case C.kCGEventKeyDown, C.kCGEventKeyUp:
		code := uint16(C.CGEventGetIntegerValueField(event, C.kCGKeyboardEventKeycode))
		if name, ok := macKeyNames[code]; ok {
			h.handler.OnKey(name, eventType == C.kCGEventKeyDown)
		}
	case C.kCGEventFlagsChanged:
		flags := C.CGEventGetFlags(event)
		code := uint16(C.CGEventGetIntegerValueField(event, C.kCGKeyboardEventKeycode))
		switch code {
		case 55, 54:
			h.handler.OnKey("CMD", flags&C.kCGEventFlagMaskCommand != 0)
		case 56, 60:
			h.handler.OnKey("SHIFT", flags&C.kCGEventFlagMaskShift != 0)
		case 58, 61:
			h.handler.OnKey("ALT", flags&C.kCGEventFlagMaskAlternate != 0)
		case 59, 62:
			h.handler.OnKey("CTRL", flags&C.kCGEventFlagMaskControl != 0)
		}
	}
	return event
}

// macKeyNames maps CGKeyCode to the hotkey naming scheme
var macKeyNames = map[uint16]string{
	0: "A", 11: "B", 8: "C", 2: "D", 14: "E", 3: "F", 5: "G", 4: "H", 34: "I",
	38: "J", 40: "K", 37: "L", 46: "M", 45: "N", 31: "O", 35: "P", 12: "Q",
	15: "R", 1: "S", 17: "T", 32: "U", 9: "V", 13: "W", 7: "X", 16: "Y", 6: "Z",

	29: "0", 18: "1", 19: "2", 20: "3", 21: "4", 23: "5", 22: "6", 26: "7", 28: "8", 25: "9",

	122: "F1", 120: "F2", 99: "F3", 118: "F4", 96: "F5", 97: "F6",
	98: "F7", 100: "F8", 101: "F9", 109: "F10", 103: "F11", 111: "F12",

	49: "SPACE", 36: "ENTER", 53: "ESC", 48: "TAB",
}
