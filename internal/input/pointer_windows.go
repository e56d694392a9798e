//go:build windows

package input

import (
	"fmt"
)

var (
	procSetCursorPos     = user32.NewProc("SetCursorPos")
	procMouseEvent       = user32.NewProc("mouse_event")
	procGetSystemMetrics = user32.NewProc("GetSystemMetrics")
)

const (
	mouseeventfLeftDown   = 0x0002
	mouseeventfLeftUp     = 0x0004
	mouseeventfRightDown  = 0x0008
	mouseeventfRightUp    = 0x0010
	mouseeventfMiddleDown = 0x0020
	mouseeventfMiddleUp   = 0x0040

	smXVirtualScreen  = 76
	smYVirtualScreen  = 77
	smCxVirtualScreen = 78
	smCyVirtualScreen = 79
)

// NativePointer drives the Windows cursor
type NativePointer struct{}

// NewPointer creates a new Windows pointer
func NewPointer() *NativePointer {
	return &NativePointer{}
}

// MoveTo sets the absolute cursor position in virtual-screen coordinates
func (p *NativePointer) MoveTo(x, y int) error {
	if !onVirtualScreen(x, y) {
		return fmt.Errorf("position (%d,%d) outside virtual screen", x, y)
	}
	ret, _, err := procSetCursorPos.Call(uintptr(x), uintptr(y))
	if ret == 0 {
		return fmt.Errorf("SetCursorPos failed: %v", err)
	}
	return nil
}

// Press presses a button at the current position
func (p *NativePointer) Press(b Button) error {
	return sendButton(b, true)
}

// Release releases a button at the current position
func (p *NativePointer) Release(b Button) error {
	return sendButton(b, false)
}

func sendButton(b Button, pressed bool) error {
	var flags uintptr
	switch b {
	case ButtonRight:
		flags = mouseeventfRightUp
		if pressed {
			flags = mouseeventfRightDown
		}
	case ButtonMiddle:
		flags = mouseeventfMiddleUp
		if pressed {
			flags = mouseeventfMiddleDown
		}
	default:
		flags = mouseeventfLeftUp
		if pressed {
			flags = mouseeventfLeftDown
		}
	}
	procMouseEvent.Call(flags, 0, 0, 0, 0)
	return nil
}

func onVirtualScreen(x, y int) bool {
	left := metric(smXVirtualScreen)
	top := metric(smYVirtualScreen)
	w := metric(smCxVirtualScreen)
	h := metric(smCyVirtualScreen)
	if w == 0 || h == 0 {
		return true
	}
	return x >= left && x < left+w && y >= top && y < top+h
}

func metric(index uintptr) int {
	ret, _, _ := procGetSystemMetrics.Call(index)
	return int(int32(ret))
}
