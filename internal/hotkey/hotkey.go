// Package hotkey matches global key combinations against the keys the
// input hook reports as held.
package hotkey

import (
	"errors"
	"log"
	"strings"
	"sync"
	"time"
)

// DefaultDebounce is the minimum time between two firings of one hotkey
const DefaultDebounce = 500 * time.Millisecond

// ErrEmpty is returned when registering a blank hotkey
var ErrEmpty = errors.New("hotkey: empty combination")

var aliases = map[string]string{
	"CONTROL": "CTRL",
	"OPTION":  "ALT",
	"OPT":     "ALT",
	"ESCAPE":  "ESC",
	"COMMAND": "CMD",
	"WIN":     "CMD",
	"SUPER":   "CMD",
	"RETURN":  "ENTER",
}

// Manager handles global hotkey registration and matching
type Manager struct {
	mu           sync.RWMutex
	hotkeys      []*registeredHotkey
	currentState map[string]bool // keys currently pressed
	debounce     time.Duration
	now          func() time.Time
}

type registeredHotkey struct {
	parts    []string // e.g., ["CTRL", "ALT", "R"]
	original string
	callback func()
	lastFire time.Time
}

// NewManager creates a new hotkey manager
func NewManager() *Manager {
	return &Manager{
		currentState: make(map[string]bool),
		debounce:     DefaultDebounce,
		now:          time.Now,
	}
}

// SetDebounce changes the per-hotkey debounce window
func (m *Manager) SetDebounce(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debounce = d
}

// Register registers a hotkey string (e.g. "F9", "Ctrl+Alt+R") and a callback.
func (m *Manager) Register(hotkeyStr string, callback func()) error {
	parts := Parse(hotkeyStr)
	if len(parts) == 0 {
		return ErrEmpty
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.hotkeys = append(m.hotkeys, &registeredHotkey{
		parts:    parts,
		original: hotkeyStr,
		callback: callback,
	})
	log.Printf("Hotkey: Registered %s", strings.Join(parts, "+"))
	return nil
}

// Parse splits a combination into normalised key names
func Parse(hotkeyStr string) []string {
	var parts []string
	for _, p := range strings.Split(hotkeyStr, "+") {
		p = normalize(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func normalize(key string) string {
	key = strings.ToUpper(strings.TrimSpace(key))
	if alias, ok := aliases[key]; ok {
		return alias
	}
	return key
}

// Clear removes all registered hotkeys
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = nil
}

// UpdateState updates the internal state of a key and checks for matches.
// Auto-repeat downs of a key already held are ignored.
func (m *Manager) UpdateState(key string, isDown bool) {
	key = normalize(key)
	if key == "" {
		return
	}

	m.mu.Lock()
	wasDown := m.currentState[key]
	if isDown {
		m.currentState[key] = true
	} else {
		delete(m.currentState, key)
	}
	m.mu.Unlock()

	if isDown && !wasDown {
		m.checkMatches(key)
	}
}

func (m *Manager) checkMatches(pressed string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, hk := range m.hotkeys {
		match, involved := true, false
		// All parts of the hotkey must be in currentState
		for _, part := range hk.parts {
			if !m.currentState[part] {
				match = false
				break
			}
			if part == pressed {
				involved = true
			}
		}
		if !match || !involved {
			continue
		}
		if !hk.lastFire.IsZero() && now.Sub(hk.lastFire) < m.debounce {
			continue
		}
		hk.lastFire = now

		log.Printf("Hotkey: Triggered %s", hk.original)
		go hk.callback()
	}
}
