// Package capture turns raw input-hook notifications into timestamped
// events while a recording is active.
package capture

import (
	"sync"
	"time"

	"mousereplay/internal/input"
	"mousereplay/internal/store"
)

// KeyFunc receives keyboard transitions, typically a hotkey matcher
type KeyFunc func(name string, pressed bool)

// Sink implements input.Handler. Mouse callbacks are forwarded to the
// store only while it is recording; key callbacks always go to OnKey.
type Sink struct {
	mu    sync.Mutex
	store *store.Store
	now   func() time.Time
	start time.Time
	onKey KeyFunc
}

// NewSink creates a sink that appends to st
func NewSink(st *store.Store) *Sink {
	return &Sink{store: st, now: time.Now}
}

// SetClock replaces the time source. time.Now readings carry a monotonic
// component, so offsets are immune to wall-clock steps.
func (s *Sink) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetKeyHandler registers the receiver of keyboard notifications
func (s *Sink) SetKeyHandler(fn KeyFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onKey = fn
}

// Start opens the store and resets the recording origin
func (s *Sink) Start() {
	s.mu.Lock()
	s.start = s.now()
	s.mu.Unlock()
	s.store.Begin()
}

// Stop closes the store and returns the captured sequence
func (s *Sink) Stop() []input.Event {
	return s.store.End()
}

func (s *Sink) elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.now().Sub(s.start)
	if d < 0 {
		return 0
	}
	return d
}

// OnMove records an absolute pointer position
func (s *Sink) OnMove(x, y int) {
	if !s.store.Recording() {
		return
	}
	s.store.Append(input.Move(x, y, s.elapsed()))
}

// OnButton records a press or release at the given position
func (s *Sink) OnButton(x, y int, b input.Button, pressed bool) {
	if !s.store.Recording() {
		return
	}
	s.store.Append(input.Click(x, y, b, pressed, s.elapsed()))
}

// OnKey forwards keyboard notifications; keys are never recorded
func (s *Sink) OnKey(name string, pressed bool) {
	s.mu.Lock()
	fn := s.onKey
	s.mu.Unlock()
	if fn != nil {
		fn(name, pressed)
	}
}

var _ input.Handler = (*Sink)(nil)
