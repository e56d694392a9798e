// Package store holds the recorded event sequence and persists it to a
// single JSON file.
package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"mousereplay/internal/input"
)

// Store is the in-memory event sequence. Appends are accepted only
// between Begin and End.
type Store struct {
	mu     sync.Mutex
	fs     afero.Fs
	events []input.Event
	open   bool
}

// New creates a store backed by fs. A nil fs means the OS filesystem.
func New(fs afero.Fs) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{fs: fs}
}

// Begin clears the sequence and opens it for appends
func (s *Store) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.open = true
}

// End closes the sequence and returns a copy of it
func (s *Store) End() []input.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return s.snapshot()
}

// Recording reports whether appends are currently accepted
func (s *Store) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Append adds ev to the sequence. It is a no-op unless the store is
// recording. Timestamps are clamped so the sequence never goes backwards.
func (s *Store) Append(ev input.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return false
	}
	if n := len(s.events); n > 0 && ev.At < s.events[n-1].At {
		ev.At = s.events[n-1].At
	}
	s.events = append(s.events, ev)
	return true
}

// Clear empties the sequence without changing the recording flag
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// Len returns the number of events held
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Events returns a copy of the sequence
func (s *Store) Events() []input.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) snapshot() []input.Event {
	out := make([]input.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Save writes the full sequence to path, replacing any existing file
func (s *Store) Save(path string) error {
	return Save(s.fs, path, s.Events())
}

// Load reads a sequence from path. The in-memory sequence is left alone.
func (s *Store) Load(path string) ([]input.Event, error) {
	return Load(s.fs, path)
}

// Save serializes events to path. The data goes to a sibling temp file
// first so a failed write never truncates an existing recording.
func Save(fs afero.Fs, path string, events []input.Event) error {
	data, err := encode(events)
	if err != nil {
		return fmt.Errorf("encode recording: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create recording dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0644); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		fs.Remove(tmp)
		return fmt.Errorf("replace recording: %w", err)
	}

	log.Printf("Store: Saved %d events to %s (%d bytes)", len(events), path, len(data))
	return nil
}

// Load deserializes a sequence. A missing file yields ErrNotFound and an
// undecodable one ErrParse; a valid file with no events yields an empty,
// non-nil slice.
func Load(fs afero.Fs, path string) ([]input.Event, error) {
	data, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}

	events, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}
