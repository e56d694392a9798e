//go:build windows

package input

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Windows implementation of global capture using low-level hooks

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessage     = user32.NewProc("DispatchMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	procGetModuleHandle     = kernel32.NewProc("GetModuleHandleW")
)

const (
	whKeyboardLL = 13
	whMouseLL    = 14

	wmQuit        = 0x0012
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmSysKeyDown  = 0x0104
	wmSysKeyUp    = 0x0105
	wmMouseMove   = 0x0200
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205
	wmMButtonDown = 0x0207
	wmMButtonUp   = 0x0208

	// LLMHF_INJECTED marks events synthesized by SendInput/mouse_event
	llmhfInjected = 0x00000001
)

type msllHookStruct struct {
	Pt          struct{ X, Y int32 }
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type winMsg struct {
	Hwnd    windows.Handle
	Message uint32
	Wparam  uintptr
	Lparam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// NativeHook captures global mouse and keyboard input on Windows.
// Only one hook may be active per process; the LL hook callbacks have no
// user-data pointer so the active instance is kept in a package variable.
type NativeHook struct {
	mu        sync.Mutex
	handler   Handler
	running   bool
	threadID  uint32
	mouseHook uintptr
	keyHook   uintptr
	done      chan struct{}
}

var activeHook *NativeHook

// NewHook creates a new Windows input hook
func NewHook() *NativeHook {
	return &NativeHook{}
}

// Start installs the hooks on a dedicated, locked OS thread
func (h *NativeHook) Start(handler Handler) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return fmt.Errorf("hook already running")
	}
	h.handler = handler
	activeHook = h

	started := make(chan error, 1)
	h.done = make(chan struct{})
	go h.hookThread(started)

	if err := <-started; err != nil {
		return err
	}
	h.running = true
	return nil
}

// Stop removes the hooks and ends the message loop
func (h *NativeHook) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	tid := h.threadID
	done := h.done
	h.mu.Unlock()

	procPostThreadMessage.Call(uintptr(tid), wmQuit, 0, 0)
	<-done
	return nil
}

func (h *NativeHook) hookThread(started chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(h.done)

	h.threadID = windows.GetCurrentThreadId()
	hMod, _, _ := procGetModuleHandle.Call(0)

	var err error
	h.mouseHook, _, err = procSetWindowsHookEx.Call(whMouseLL, windows.NewCallback(mouseHookProc), hMod, 0)
	if h.mouseHook == 0 {
		started <- fmt.Errorf("failed to set mouse hook: %v", err)
		return
	}
	h.keyHook, _, err = procSetWindowsHookEx.Call(whKeyboardLL, windows.NewCallback(keyboardHookProc), hMod, 0)
	if h.keyHook == 0 {
		procUnhookWindowsHookEx.Call(h.mouseHook)
		started <- fmt.Errorf("failed to set keyboard hook: %v", err)
		return
	}
	log.Println("Input Hook: Windows low-level hooks installed")
	started <- nil

	var msg winMsg
	for {
		ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		if int32(ret) <= 0 {
			break
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessage.Call(uintptr(unsafe.Pointer(&msg)))
	}

	procUnhookWindowsHookEx.Call(h.keyHook)
	procUnhookWindowsHookEx.Call(h.mouseHook)
	log.Println("Input Hook: Windows hooks removed")
}

func mouseHookProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	h := activeHook
	if nCode == 0 && h != nil && h.handler != nil {
		ms := (*msllHookStruct)(unsafe.Pointer(lParam))
		if ms.Flags&llmhfInjected == 0 {
			x, y := int(ms.Pt.X), int(ms.Pt.Y)
			switch wParam {
			case wmMouseMove:
				h.handler.OnMove(x, y)
			case wmLButtonDown:
				h.handler.OnButton(x, y, ButtonLeft, true)
			case wmLButtonUp:
				h.handler.OnButton(x, y, ButtonLeft, false)
			case wmRButtonDown:
				h.handler.OnButton(x, y, ButtonRight, true)
			case wmRButtonUp:
				h.handler.OnButton(x, y, ButtonRight, false)
			case wmMButtonDown:
				h.handler.OnButton(x, y, ButtonMiddle, true)
			case wmMButtonUp:
				h.handler.OnButton(x, y, ButtonMiddle, false)
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func keyboardHookProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	h := activeHook
	if nCode == 0 && h != nil && h.handler != nil {
		kbd := (*kbdllHookStruct)(unsafe.Pointer(lParam))
		if name := vkName(kbd.VkCode); name != "" {
			switch wParam {
			case wmKeyDown, wmSysKeyDown:
				h.handler.OnKey(name, true)
			case wmKeyUp, wmSysKeyUp:
				h.handler.OnKey(name, false)
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

var vkNames = map[uint32]string{
	0x10: "SHIFT", 0xA0: "SHIFT", 0xA1: "SHIFT",
	0x11: "CTRL", 0xA2: "CTRL", 0xA3: "CTRL",
	0x12: "ALT", 0xA4: "ALT", 0xA5: "ALT",
	0x5B: "CMD", 0x5C: "CMD",
	0x1B: "ESC",
	0x20: "SPACE",
	0x0D: "ENTER",
	0x09: "TAB",
	0x13: "PAUSE",
	0x91: "SCROLLLOCK",
}

// vkName converts a virtual-key code to the hotkey naming scheme
func vkName(vk uint32) string {
	if name, ok := vkNames[vk]; ok {
		return name
	}
	switch {
	case vk >= 0x41 && vk <= 0x5A, vk >= 0x30 && vk <= 0x39:
		return string(rune(vk))
	case vk >= 0x70 && vk <= 0x7B:
		return fmt.Sprintf("F%d", vk-0x6F)
	}
	return ""
}
