// Package tray provides system tray functionality using getlantern/systray.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"mousereplay/internal/controller"
)

// MenuItem represents a menu item
type MenuItem struct {
	ID       int
	Title    string
	Callback func()
	item     *systray.MenuItem
}

// Tray manages the system tray icon and menu
type Tray struct {
	mu      sync.Mutex
	items   []*MenuItem
	tooltip string
	ready   bool
	onReady func()
	onExit  func()
	quitCh  chan struct{}
}

// New creates a new system tray
func New(tooltip string) *Tray {
	t := &Tray{
		items:   make([]*MenuItem, 0),
		tooltip: tooltip,
		quitCh:  make(chan struct{}),
	}

	t.onReady = func() {
		systray.SetTitle("MR")
		systray.SetTooltip(t.tooltip)
		systray.SetIcon(getIcon())
	}

	t.onExit = func() {
		close(t.quitCh)
	}

	return t
}

// AddMenuItem adds a menu item to the tray. Items must be added before Run.
func (t *Tray) AddMenuItem(title string, callback func()) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := len(t.items)
	t.items = append(t.items, &MenuItem{
		ID:       id,
		Title:    title,
		Callback: callback,
	})
	return id
}

// AddSeparator adds a separator to the menu
func (t *Tray) AddSeparator() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, nil) // nil indicates separator
}

// SetItemChecked sets the checked state of a menu item
func (t *Tray) SetItemChecked(id int, checked bool) {
	if mi := t.lookup(id); mi != nil && mi.item != nil {
		if checked {
			mi.item.Check()
		} else {
			mi.item.Uncheck()
		}
	}
}

// SetItemTitle renames a menu item
func (t *Tray) SetItemTitle(id int, title string) {
	mi := t.lookup(id)
	if mi == nil {
		return
	}
	t.mu.Lock()
	mi.Title = title
	item := mi.item
	t.mu.Unlock()
	if item != nil {
		item.SetTitle(title)
	}
}

// SetTooltip changes the icon tooltip
func (t *Tray) SetTooltip(tooltip string) {
	t.mu.Lock()
	t.tooltip = tooltip
	ready := t.ready
	t.mu.Unlock()
	if ready {
		systray.SetTooltip(tooltip)
	}
}

func (t *Tray) lookup(id int) *MenuItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 0 || id >= len(t.items) {
		return nil
	}
	return t.items[id]
}

// Follow keeps the tooltip and the recording and auto replay items in step
// with controller updates until the channel closes or the tray exits.
func (t *Tray) Follow(updates <-chan controller.Update, recordID, autoID int) {
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return
			}
			t.SetTooltip(Tooltip(u))
			if u.Snapshot.Mode == controller.ModeRecording {
				t.SetItemTitle(recordID, "Stop Recording")
			} else {
				t.SetItemTitle(recordID, "Start Recording")
			}
			t.SetItemChecked(autoID, u.Snapshot.AutoReplay)
		case <-t.quitCh:
			return
		}
	}
}

// Tooltip renders an update as tray tooltip text
func Tooltip(u controller.Update) string {
	msg := u.Message
	if msg == "" {
		msg = u.Snapshot.Message
	}
	s := "Mouse Replay: " + string(u.Snapshot.Mode)
	if u.Snapshot.AutoReplay {
		s += fmt.Sprintf(" (auto every %s)", u.Snapshot.AutoInterval)
	}
	if msg != "" {
		s += "\n" + msg
	}
	return s
}

// Run starts the tray event loop (blocks)
func (t *Tray) Run() {
	systray.Run(t.setupMenu, t.onExit)
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	t.onReady()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.ready = true

	for _, menuItem := range t.items {
		if menuItem == nil {
			systray.AddSeparator()
			continue
		}
		menuItem.item = systray.AddMenuItem(menuItem.Title, "")

		// Handle clicks in goroutine
		if menuItem.Callback != nil {
			go func(mi *MenuItem, clicked chan struct{}) {
				for {
					select {
					case <-clicked:
						mi.Callback()
					case <-t.quitCh:
						return
					}
				}
			}(menuItem, menuItem.item.ClickedCh)
		}
	}
}

// Stop stops the tray
func (t *Tray) Stop() {
	systray.Quit()
}

// getIcon returns a placeholder icon (valid 16x16 ICO)
func getIcon() []byte {
	icon := make([]byte, 1118)
	// ICO Header
	copy(icon[0:6], []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00})
	// Icon Directory
	copy(icon[6:22], []byte{
		0x10, 0x10, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00,
		0x48, 0x04, 0x00, 0x00,
		0x16, 0x00, 0x00, 0x00,
	})
	// DIB Header
	copy(icon[22:62], []byte{
		0x28, 0x00, 0x00, 0x00,
		0x10, 0x00, 0x00, 0x00,
		0x20, 0x00, 0x00, 0x00,
		0x01, 0x00,
		0x20, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x04, 0x00, 0x00,
	})
	// Opaque cursor-coloured pixels, bottom-up BGRA
	for i := 62; i < 62+1024; i += 4 {
		copy(icon[i:i+4], []byte{0xea, 0x7e, 0x66, 0xff})
	}
	return icon
}
